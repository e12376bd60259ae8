package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
)

// SlugExists reports whether a draft already uses slug.
func (q queries) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int
	if err := q.getContext(ctx, &count, `SELECT COUNT(*) FROM drafts WHERE slug = ?`, slug); err != nil {
		return false, fmt.Errorf("check slug %s: %w", slug, err)
	}
	return count > 0, nil
}

// InsertDraft stores a new draft and assigns its id. A slug collision yields
// ErrSlugTaken so callers can retry with another suffix.
func (q queries) InsertDraft(ctx context.Context, d *models.Draft) error {
	now := nowUTC()
	if d.Status == "" {
		d.Status = models.DraftPending
	}
	if d.Sources == nil {
		d.Sources = models.SourceRefs{}
	}
	d.CreatedAt, d.UpdatedAt = now, now
	res, err := q.ext.ExecContext(ctx, `
		INSERT INTO drafts (cluster_id, title, slug, excerpt, content, image_url, sources, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ClusterID, d.Title, d.Slug, d.Excerpt, d.Content, d.ImageURL, d.Sources, d.Status, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert draft %s: %w", d.Slug, ErrSlugTaken)
		}
		return fmt.Errorf("insert draft %s: %w", d.Slug, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert draft %s: last insert id: %w", d.Slug, err)
	}
	d.ID = id
	return nil
}

// GetDraft returns the draft with the given id.
func (q queries) GetDraft(ctx context.Context, id int64) (*models.Draft, error) {
	var d models.Draft
	err := q.getContext(ctx, &d, `SELECT * FROM drafts WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, notFound("draft", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get draft %d: %w", id, err)
	}
	return &d, nil
}

// ClusterDrafts returns the drafts of a cluster, oldest first.
func (q queries) ClusterDrafts(ctx context.Context, clusterID int64) ([]models.Draft, error) {
	var drafts []models.Draft
	err := q.selectContext(ctx, &drafts, `SELECT * FROM drafts WHERE cluster_id = ? ORDER BY id ASC`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("list drafts of cluster %d: %w", clusterID, err)
	}
	return drafts, nil
}

// UpdateDraft applies an operator edit. Published drafts are immutable.
func (q queries) UpdateDraft(ctx context.Context, id int64, patch models.DraftPatch) (*models.Draft, error) {
	current, err := q.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.DraftPublished {
		return nil, errs.Wrap(errs.ErrValidation, "update draft", fmt.Sprintf("draft %d is published", id), nil)
	}
	if patch.Empty() {
		return current, nil
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, errs.Wrap(errs.ErrValidation, "update draft", "title must not be empty", nil)
	}

	builder := sq.Update("drafts").Set("updated_at", nowUTC())
	if patch.Title != nil {
		builder = builder.Set("title", strings.TrimSpace(*patch.Title))
	}
	if patch.Excerpt != nil {
		builder = builder.Set("excerpt", *patch.Excerpt)
	}
	if patch.Content != nil {
		builder = builder.Set("content", *patch.Content)
	}
	if patch.ImageURL != nil {
		if strings.TrimSpace(*patch.ImageURL) == "" {
			builder = builder.Set("image_url", nil)
		} else {
			builder = builder.Set("image_url", strings.TrimSpace(*patch.ImageURL))
		}
	}
	query, args, err := builder.Where(sq.Eq{"id": id, "status": string(models.DraftPending)}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build draft update: %w", err)
	}
	if _, err := q.ext.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update draft %d: %w", id, err)
	}
	return q.GetDraft(ctx, id)
}

// MarkDraftPublished flips a draft to published. The first publication
// timestamp is kept on repeated calls.
func (q queries) MarkDraftPublished(ctx context.Context, id int64, at time.Time) error {
	at = at.UTC()
	_, err := q.ext.ExecContext(ctx, `
		UPDATE drafts SET status = ?, published_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.DraftPublished, at, at, id, models.DraftPending)
	if err != nil {
		return fmt.Errorf("publish draft %d: %w", id, err)
	}
	return nil
}
