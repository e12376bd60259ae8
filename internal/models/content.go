package models

import "time"

// ContentKindBrief is the only generated content kind stored today.
const ContentKindBrief = "brief"

// GeneratedContent is an append-only generated text attached to a cluster.
type GeneratedContent struct {
	ID        int64     `db:"id" json:"id"`
	ClusterID int64     `db:"cluster_id" json:"cluster_id"`
	Kind      string    `db:"kind" json:"kind"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
