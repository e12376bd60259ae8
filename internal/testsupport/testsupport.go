// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"reddot-watch/newsdesk/internal/database"
	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/storage"
)

// OpenStore opens a migrated database under t.TempDir and closes it on cleanup.
func OpenStore(t *testing.T) *storage.Store {
	t.Helper()
	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "newsdesk.db")))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.New(db)
}

// AddSource registers a feed source with url.
func AddSource(t *testing.T, store *storage.Store, name, url string) *models.Source {
	t.Helper()
	src := models.NewSource()
	src.Name = name
	src.URL = url
	if err := store.InsertSource(context.Background(), src); err != nil {
		t.Fatalf("insert source: %v", err)
	}
	return src
}

// AddItem stores an item fetched at fetchedAt.
func AddItem(t *testing.T, store *storage.Store, sourceID int64, url, title string, fetchedAt time.Time) *models.Item {
	t.Helper()
	item := &models.Item{SourceID: sourceID, URL: url, Title: title, Language: "fr", FetchedAt: fetchedAt}
	created, err := store.InsertItemIfAbsent(context.Background(), item)
	if err != nil {
		t.Fatalf("insert item: %v", err)
	}
	if !created {
		t.Fatalf("item %s already present", url)
	}
	return item
}

// AddCluster creates a cluster founded by item.
func AddCluster(t *testing.T, store *storage.Store, item *models.Item, at time.Time) int64 {
	t.Helper()
	ctx := context.Background()
	var id int64
	err := store.InTx(ctx, func(tx *storage.Tx) error {
		var err error
		if id, err = tx.CreateCluster(ctx, item.Title, at); err != nil {
			return err
		}
		return tx.LinkItem(ctx, id, item.ID, nil, item.Title, at)
	})
	if err != nil {
		t.Fatalf("create cluster: %v", err)
	}
	return id
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
