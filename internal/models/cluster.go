package models

import "time"

// ClusterStatus is the lifecycle state of a story cluster. It only moves forward:
// pending -> draft -> published.
type ClusterStatus string

const (
	ClusterPending   ClusterStatus = "pending"
	ClusterDraft     ClusterStatus = "draft"
	ClusterPublished ClusterStatus = "published"
)

// Valid reports whether s is a known cluster status.
func (s ClusterStatus) Valid() bool {
	switch s {
	case ClusterPending, ClusterDraft, ClusterPublished:
		return true
	}
	return false
}

// DefaultClusterConfidence is assigned to clusters created by the clusterer.
const DefaultClusterConfidence = 0.5

// Cluster groups items believed to cover the same story.
type Cluster struct {
	ID         int64         `db:"id" json:"id"`
	TopicTitle string        `db:"topic_title" json:"topic_title"`
	Status     ClusterStatus `db:"status" json:"status"`
	Category   *string       `db:"category" json:"category,omitempty"`
	Confidence float64       `db:"confidence" json:"confidence"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// ClusterSummary is a cluster with the counts shown in listings.
type ClusterSummary struct {
	Cluster
	ItemCount    int `db:"item_count" json:"item_count"`
	ContentCount int `db:"content_count" json:"content_count"`
	DraftCount   int `db:"draft_count" json:"draft_count"`
}

// ClusterDetail is a cluster with its members, generated content and drafts.
type ClusterDetail struct {
	Cluster
	Items    []ClusterMember    `json:"items"`
	Contents []GeneratedContent `json:"contents"`
	Drafts   []Draft            `json:"drafts"`
}
