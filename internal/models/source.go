package models

import (
	"database/sql"
	"time"
)

// SourceType enumerates how a source is fetched.
type SourceType string

const (
	SourceFeed       SourceType = "feed"
	SourceSinglePage SourceType = "single_page"
	SourceManual     SourceType = "manual"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	switch t {
	case SourceFeed, SourceSinglePage, SourceManual:
		return true
	}
	return false
}

// DefaultTrustWeight is applied to declared sources that omit a weight.
const DefaultTrustWeight = 0.5

// Source represents a row in the 'sources' table
type Source struct {
	ID            int64          `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Type          SourceType     `db:"type" json:"type"`
	URL           string         `db:"url" json:"url"`
	Language      string         `db:"language" json:"language"`
	TrustWeight   float64        `db:"trust_weight" json:"trust_weight"`
	Active        bool           `db:"active" json:"active"`
	FailuresCount int            `db:"failures_count" json:"failures_count"`
	LastError     sql.NullString `db:"last_error" json:"-"`
	LastFetchedAt sql.NullTime   `db:"last_fetched_at" json:"-"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// NewSource creates a new Source with default values
func NewSource() *Source {
	now := time.Now().UTC()
	return &Source{
		Type:        SourceFeed,
		Language:    "fr",
		TrustWeight: DefaultTrustWeight,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
