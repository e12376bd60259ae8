package models

import "time"

// Item is one discovered candidate article, unique by URL.
type Item struct {
	ID          int64      `db:"id" json:"id"`
	SourceID    int64      `db:"source_id" json:"source_id"`
	URL         string     `db:"url" json:"url"`
	Title       string     `db:"title" json:"title"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	Language    string     `db:"language" json:"language"`
	Excerpt     *string    `db:"excerpt" json:"excerpt,omitempty"`
	RawBody     *string    `db:"raw_body" json:"-"`
	FetchedAt   time.Time  `db:"fetched_at" json:"fetched_at"`
}

// ClusterMember is an item as seen from its cluster, with the source it came
// from and the similarity recorded when it was linked.
type ClusterMember struct {
	Item
	SourceName string   `db:"source_name" json:"source_name"`
	Similarity *float64 `db:"similarity" json:"similarity,omitempty"`
}
