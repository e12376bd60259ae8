package models

import "time"

// Article is a public article. Only the publisher creates them.
type Article struct {
	ID      int64     `db:"id" json:"id"`
	DraftID *int64    `db:"draft_id" json:"draft_id,omitempty"`
	Title   string    `db:"title" json:"title"`
	Excerpt string    `db:"excerpt" json:"excerpt"`
	Content string    `db:"content" json:"content"`
	Image   string    `db:"image" json:"image"`
	Date    time.Time `db:"date" json:"date"`
}
