package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reddot-watch/newsdesk/internal/models"
)

// ManualSourceURL identifies the synthetic source that owns operator submissions.
const ManualSourceURL = "manual://operator"

// FindSourceByURL returns the source registered for url, or nil when none exists.
func (q queries) FindSourceByURL(ctx context.Context, url string) (*models.Source, error) {
	var src models.Source
	err := q.getContext(ctx, &src, `SELECT * FROM sources WHERE url = ?`, url)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find source %s: %w", url, err)
	}
	return &src, nil
}

// GetSource returns the source with the given id.
func (q queries) GetSource(ctx context.Context, id int64) (*models.Source, error) {
	var src models.Source
	err := q.getContext(ctx, &src, `SELECT * FROM sources WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, notFound("source", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get source %d: %w", id, err)
	}
	return &src, nil
}

// InsertSource inserts a new source and assigns its id.
func (q queries) InsertSource(ctx context.Context, src *models.Source) error {
	now := nowUTC()
	if src.CreatedAt.IsZero() {
		src.CreatedAt = now
	}
	src.UpdatedAt = now
	res, err := q.ext.ExecContext(ctx, `
		INSERT INTO sources (name, type, url, language, trust_weight, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		src.Name, src.Type, src.URL, src.Language, src.TrustWeight, src.Active, src.CreatedAt, src.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert source %s: %w", src.URL, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert source %s: last insert id: %w", src.URL, err)
	}
	src.ID = id
	return nil
}

// UpdateSource rewrites the mutable fields of an existing source, keeping its id.
func (q queries) UpdateSource(ctx context.Context, src *models.Source) error {
	src.UpdatedAt = nowUTC()
	_, err := q.ext.ExecContext(ctx, `
		UPDATE sources
		SET name = ?, type = ?, language = ?, trust_weight = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		src.Name, src.Type, src.Language, src.TrustWeight, src.Active, src.UpdatedAt, src.ID)
	if err != nil {
		return fmt.Errorf("update source %d: %w", src.ID, err)
	}
	return nil
}

// ListSources returns sources in id order, optionally only the active ones.
func (q queries) ListSources(ctx context.Context, activeOnly bool) ([]models.Source, error) {
	query := `SELECT * FROM sources ORDER BY id ASC`
	if activeOnly {
		query = `SELECT * FROM sources WHERE active = 1 ORDER BY id ASC`
	}
	var sources []models.Source
	if err := q.selectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

// RecordFetchResult updates the fetch bookkeeping of a source after a run.
func (q queries) RecordFetchResult(ctx context.Context, id int64, fetchErr error, at time.Time) error {
	var err error
	if fetchErr != nil {
		_, err = q.ext.ExecContext(ctx, `
			UPDATE sources
			SET failures_count = failures_count + 1, last_error = ?, last_fetched_at = ?, updated_at = ?
			WHERE id = ?`,
			fetchErr.Error(), at, at, id)
	} else {
		_, err = q.ext.ExecContext(ctx, `
			UPDATE sources
			SET failures_count = 0, last_error = NULL, last_fetched_at = ?, updated_at = ?
			WHERE id = ?`,
			at, at, id)
	}
	if err != nil {
		return fmt.Errorf("record fetch result for source %d: %w", id, err)
	}
	return nil
}

// EnsureManualSource returns the synthetic manual source, creating it on first use.
func (q queries) EnsureManualSource(ctx context.Context) (*models.Source, error) {
	now := nowUTC()
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO sources (name, type, url, language, trust_weight, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		"Manual submissions", models.SourceManual, ManualSourceURL, "fr", 1.0, now, now)
	if err != nil {
		return nil, fmt.Errorf("ensure manual source: %w", err)
	}
	src, err := q.FindSourceByURL(ctx, ManualSourceURL)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("ensure manual source: %w", sql.ErrNoRows)
	}
	return src, nil
}
