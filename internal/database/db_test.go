package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"reddot-watch/newsdesk/internal/database/migrations"
)

func TestNewDBAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pipeline.db")
	db, err := NewDB(NewConfig(path))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Fatalf("Path() = %q, want %q", db.Path(), path)
	}

	for _, table := range []string{"sources", "items", "clusters", "cluster_items", "generated_contents", "drafts", "articles"} {
		var count int
		if err := db.Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table); err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected table %s to exist", table)
		}
	}

	var fk int
	if err := db.Get(&fk, `PRAGMA foreign_keys`); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Fatalf("expected foreign keys to be enforced")
	}
}

func TestNewDBIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.db")
	first, err := NewDB(NewConfig(path))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	first.Close()

	second, err := NewDB(NewConfig(path))
	if err != nil {
		t.Fatalf("NewDB second open: %v", err)
	}
	defer second.Close()

	var applied int
	if err := second.Get(&applied, `SELECT COUNT(*) FROM schema_migrations`); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected 1 applied migration, got %d", applied)
	}
}

func TestDownMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.db")
	db, err := NewDB(NewConfig(path))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer db.Close()

	files, err := migrations.Embedded()
	if err != nil {
		t.Fatalf("Embedded: %v", err)
	}
	if len(files) == 0 || files[0].Name != "pipeline" || files[0].Down == "" {
		t.Fatalf("expected embedded migrations with down scripts, got %+v", files)
	}
	ctx := context.Background()
	if err := migrations.Down(ctx, db.DB, files, 1); err != nil {
		t.Fatalf("Down: %v", err)
	}

	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'items'`); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected items table to be dropped")
	}
	if applied, _ := migrations.Applied(ctx, db.DB); len(applied) != 0 {
		t.Fatalf("expected no applied migrations, got %v", applied)
	}

	if ran, err := migrations.Up(ctx, db.DB, files); err != nil || ran != 1 {
		t.Fatalf("Up after Down = %d, %v", ran, err)
	}
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.up.sql":  {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"001_first.up.sql":   {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"001_first.down.sql": {Data: []byte("DROP TABLE a;")},
		"README.md":          {Data: []byte("not a migration")},
	}
	files, err := migrations.Load(fsys)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(files) != 2 || files[0].Version != 1 || files[1].Name != "second" || files[0].Down == "" {
		t.Fatalf("unexpected migrations: %+v", files)
	}

	if _, err := migrations.Load(fstest.MapFS{"003_orphan.down.sql": {Data: []byte("DROP TABLE c;")}}); err == nil {
		t.Fatalf("expected error for a version without an up script")
	}
}
