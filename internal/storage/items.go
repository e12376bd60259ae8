package storage

import (
	"context"
	"fmt"
	"time"

	"reddot-watch/newsdesk/internal/models"
)

// InsertItemIfAbsent stores item unless its URL is already known. It reports
// whether a row was created; on creation item.ID is set.
func (q queries) InsertItemIfAbsent(ctx context.Context, item *models.Item) (bool, error) {
	if item.FetchedAt.IsZero() {
		item.FetchedAt = nowUTC()
	}
	if item.Language == "" {
		item.Language = "fr"
	}
	res, err := q.ext.ExecContext(ctx, `
		INSERT INTO items (source_id, url, title, published_at, language, excerpt, raw_body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		item.SourceID, item.URL, item.Title, utcPtr(item.PublishedAt), item.Language, item.Excerpt, item.RawBody, item.FetchedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert item %s: %w", item.URL, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert item %s: rows affected: %w", item.URL, err)
	}
	if affected == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("insert item %s: last insert id: %w", item.URL, err)
	}
	item.ID = id
	return true, nil
}

// ItemExists reports whether an item with the given URL is stored.
func (q queries) ItemExists(ctx context.Context, url string) (bool, error) {
	var count int
	if err := q.getContext(ctx, &count, `SELECT COUNT(*) FROM items WHERE url = ?`, url); err != nil {
		return false, fmt.Errorf("check item %s: %w", url, err)
	}
	return count > 0, nil
}

// UnclusteredItemsSince returns items fetched at or after since that belong to
// no cluster, oldest first.
func (q queries) UnclusteredItemsSince(ctx context.Context, since time.Time) ([]models.Item, error) {
	var items []models.Item
	err := q.selectContext(ctx, &items, `
		SELECT i.* FROM items i
		LEFT JOIN cluster_items ci ON ci.item_id = i.id
		WHERE ci.item_id IS NULL AND i.fetched_at >= ?
		ORDER BY i.fetched_at ASC, i.id ASC`,
		since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list unclustered items: %w", err)
	}
	return items, nil
}

// CountItems returns the number of stored items.
func (q queries) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := q.getContext(ctx, &count, `SELECT COUNT(*) FROM items`); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
