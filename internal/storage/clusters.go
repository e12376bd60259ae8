package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
)

// DefaultListLimit and MaxListLimit bound cluster listings.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// CandidateMember is one member title of a cluster open for linking.
type CandidateMember struct {
	ClusterID int64  `db:"cluster_id"`
	Title     string `db:"title"`
}

// ClusterFilter selects a page of clusters, newest first.
type ClusterFilter struct {
	Status   models.ClusterStatus
	Limit    int
	BeforeAt *time.Time
	BeforeID int64
}

// CandidateMembers returns the member titles of every cluster created at or
// after since, ordered by cluster id then link time.
func (q queries) CandidateMembers(ctx context.Context, since time.Time) ([]CandidateMember, error) {
	var members []CandidateMember
	err := q.selectContext(ctx, &members, `
		SELECT c.id AS cluster_id, i.title AS title
		FROM clusters c
		JOIN cluster_items ci ON ci.cluster_id = c.id
		JOIN items i ON i.id = ci.item_id
		WHERE c.created_at >= ?
		ORDER BY c.id ASC, ci.created_at ASC, i.id ASC`,
		since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list candidate cluster members: %w", err)
	}
	return members, nil
}

// CreateCluster inserts a pending cluster titled after its founding item.
func (q queries) CreateCluster(ctx context.Context, topicTitle string, at time.Time) (int64, error) {
	at = at.UTC()
	res, err := q.ext.ExecContext(ctx, `
		INSERT INTO clusters (topic_title, status, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		topicTitle, models.ClusterPending, models.DefaultClusterConfidence, at, at)
	if err != nil {
		return 0, fmt.Errorf("create cluster: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create cluster: last insert id: %w", err)
	}
	return id, nil
}

// LinkItem attaches an item to a cluster. The cluster's topic title becomes
// the item title when that one is shorter.
func (q queries) LinkItem(ctx context.Context, clusterID, itemID int64, similarity *float64, title string, at time.Time) error {
	at = at.UTC()
	if _, err := q.ext.ExecContext(ctx, `
		INSERT INTO cluster_items (cluster_id, item_id, similarity, created_at)
		VALUES (?, ?, ?, ?)`,
		clusterID, itemID, similarity, at); err != nil {
		if isUniqueViolation(err) {
			return errs.Wrap(errs.ErrValidation, "link item", fmt.Sprintf("item %d already clustered", itemID), err)
		}
		return fmt.Errorf("link item %d to cluster %d: %w", itemID, clusterID, err)
	}
	if _, err := q.ext.ExecContext(ctx, `
		UPDATE clusters SET topic_title = ?, updated_at = ?
		WHERE id = ? AND length(?) < length(topic_title)`,
		title, at, clusterID, title); err != nil {
		return fmt.Errorf("update topic title of cluster %d: %w", clusterID, err)
	}
	return nil
}

// GetCluster returns the cluster with the given id.
func (q queries) GetCluster(ctx context.Context, id int64) (*models.Cluster, error) {
	var c models.Cluster
	err := q.getContext(ctx, &c, `SELECT * FROM clusters WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, notFound("cluster", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get cluster %d: %w", id, err)
	}
	return &c, nil
}

// ClusterMembers returns the items of a cluster with their source names, in link order.
func (q queries) ClusterMembers(ctx context.Context, clusterID int64) ([]models.ClusterMember, error) {
	var members []models.ClusterMember
	err := q.selectContext(ctx, &members, `
		SELECT i.*, s.name AS source_name, ci.similarity AS similarity
		FROM cluster_items ci
		JOIN items i ON i.id = ci.item_id
		JOIN sources s ON s.id = i.source_id
		WHERE ci.cluster_id = ?
		ORDER BY ci.created_at ASC, i.id ASC`,
		clusterID)
	if err != nil {
		return nil, fmt.Errorf("list members of cluster %d: %w", clusterID, err)
	}
	return members, nil
}

// ListClusters returns cluster summaries, newest first, honouring the filter.
func (q queries) ListClusters(ctx context.Context, filter ClusterFilter) ([]models.ClusterSummary, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	// One row past MaxListLimit lets callers detect a following page.
	if limit > MaxListLimit+1 {
		limit = MaxListLimit + 1
	}

	builder := sq.Select(
		"c.*",
		"(SELECT COUNT(*) FROM cluster_items ci WHERE ci.cluster_id = c.id) AS item_count",
		"(SELECT COUNT(*) FROM generated_contents g WHERE g.cluster_id = c.id) AS content_count",
		"(SELECT COUNT(*) FROM drafts d WHERE d.cluster_id = c.id) AS draft_count",
	).From("clusters c")

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"c.status": string(filter.Status)})
	}
	if filter.BeforeAt != nil {
		before := filter.BeforeAt.UTC()
		builder = builder.Where(sq.Or{
			sq.Lt{"c.created_at": before},
			sq.And{sq.Eq{"c.created_at": before}, sq.Lt{"c.id": filter.BeforeID}},
		})
	}
	builder = builder.OrderBy("c.created_at DESC", "c.id DESC").Limit(uint64(limit))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build cluster list query: %w", err)
	}

	var summaries []models.ClusterSummary
	if err := q.selectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	return summaries, nil
}

// ClusterDetail loads a cluster with its members, generated contents and drafts.
func (q queries) ClusterDetail(ctx context.Context, id int64) (*models.ClusterDetail, error) {
	c, err := q.GetCluster(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.ClusterDetail{Cluster: *c}
	if detail.Items, err = q.ClusterMembers(ctx, id); err != nil {
		return nil, err
	}
	if detail.Contents, err = q.ClusterContents(ctx, id); err != nil {
		return nil, err
	}
	if detail.Drafts, err = q.ClusterDrafts(ctx, id); err != nil {
		return nil, err
	}
	return detail, nil
}

// AdvanceClusterStatus moves a cluster forward to status. It never moves a
// cluster backwards; a cluster already at or past status is left alone.
func (q queries) AdvanceClusterStatus(ctx context.Context, id int64, status models.ClusterStatus) error {
	var from []string
	switch status {
	case models.ClusterDraft:
		from = []string{string(models.ClusterPending)}
	case models.ClusterPublished:
		from = []string{string(models.ClusterPending), string(models.ClusterDraft)}
	default:
		return errs.Wrap(errs.ErrValidation, "advance cluster", fmt.Sprintf("cannot move to %q", status), nil)
	}

	query, args, err := sq.Update("clusters").
		Set("status", string(status)).
		Set("updated_at", nowUTC()).
		Where(sq.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cluster status update: %w", err)
	}
	if _, err := q.ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("advance cluster %d to %s: %w", id, status, err)
	}
	return nil
}

// SetClusterCategory stores the category reported by the generator.
func (q queries) SetClusterCategory(ctx context.Context, id int64, category string) error {
	_, err := q.ext.ExecContext(ctx, `UPDATE clusters SET category = ?, updated_at = ? WHERE id = ?`,
		category, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("set category of cluster %d: %w", id, err)
	}
	return nil
}
