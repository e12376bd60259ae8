package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DraftStatus is the lifecycle state of a generated article.
type DraftStatus string

const (
	DraftPending   DraftStatus = "draft"
	DraftPublished DraftStatus = "published"
)

// SourceRef identifies one source cited by a draft.
type SourceRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Date string `json:"date,omitempty"`
}

// SourceRefs is stored as a JSON array in a TEXT column.
type SourceRefs []SourceRef

// Value implements driver.Valuer.
func (s SourceRefs) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	blob, err := json.Marshal([]SourceRef(s))
	if err != nil {
		return nil, err
	}
	return string(blob), nil
}

// Scan implements sql.Scanner.
func (s *SourceRefs) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = SourceRefs{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan source refs: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*s = SourceRefs{}
		return nil
	}
	var refs []SourceRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		return fmt.Errorf("scan source refs: %w", err)
	}
	*s = refs
	return nil
}

// Draft is a generated article awaiting review. It is immutable once published.
type Draft struct {
	ID          int64       `db:"id" json:"id"`
	ClusterID   int64       `db:"cluster_id" json:"cluster_id"`
	Title       string      `db:"title" json:"title"`
	Slug        string      `db:"slug" json:"slug"`
	Excerpt     string      `db:"excerpt" json:"excerpt"`
	Content     string      `db:"content" json:"content"`
	ImageURL    *string     `db:"image_url" json:"image_url,omitempty"`
	Sources     SourceRefs  `db:"sources" json:"sources"`
	Status      DraftStatus `db:"status" json:"status"`
	PublishedAt *time.Time  `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// DraftPatch carries the fields an operator may edit while a draft is unpublished.
// Nil fields are left untouched.
type DraftPatch struct {
	Title    *string `json:"title"`
	Excerpt  *string `json:"excerpt"`
	Content  *string `json:"content"`
	ImageURL *string `json:"image_url"`
}

// Empty reports whether the patch changes nothing.
func (p DraftPatch) Empty() bool {
	return p.Title == nil && p.Excerpt == nil && p.Content == nil && p.ImageURL == nil
}
