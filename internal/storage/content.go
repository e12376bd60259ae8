package storage

import (
	"context"
	"fmt"

	"reddot-watch/newsdesk/internal/models"
)

// InsertContent appends a generated content row for a cluster.
func (q queries) InsertContent(ctx context.Context, content *models.GeneratedContent) error {
	if content.Kind == "" {
		content.Kind = models.ContentKindBrief
	}
	if content.CreatedAt.IsZero() {
		content.CreatedAt = nowUTC()
	}
	res, err := q.ext.ExecContext(ctx, `
		INSERT INTO generated_contents (cluster_id, kind, content, created_at)
		VALUES (?, ?, ?, ?)`,
		content.ClusterID, content.Kind, content.Content, content.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert content for cluster %d: %w", content.ClusterID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert content for cluster %d: last insert id: %w", content.ClusterID, err)
	}
	content.ID = id
	return nil
}

// LatestBrief returns the most recent brief of a cluster, or nil when none exists.
func (q queries) LatestBrief(ctx context.Context, clusterID int64) (*models.GeneratedContent, error) {
	var content models.GeneratedContent
	err := q.getContext(ctx, &content, `
		SELECT * FROM generated_contents
		WHERE cluster_id = ? AND kind = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		clusterID, models.ContentKindBrief)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest brief of cluster %d: %w", clusterID, err)
	}
	return &content, nil
}

// ClusterContents returns the generated contents of a cluster, oldest first.
func (q queries) ClusterContents(ctx context.Context, clusterID int64) ([]models.GeneratedContent, error) {
	var contents []models.GeneratedContent
	err := q.selectContext(ctx, &contents, `
		SELECT * FROM generated_contents WHERE cluster_id = ? ORDER BY created_at ASC, id ASC`,
		clusterID)
	if err != nil {
		return nil, fmt.Errorf("list contents of cluster %d: %w", clusterID, err)
	}
	return contents, nil
}
