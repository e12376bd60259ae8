package storage

import (
	"context"
	"fmt"

	"reddot-watch/newsdesk/internal/models"
)

// FindArticleByDraft returns the article published from draftID, or nil.
func (q queries) FindArticleByDraft(ctx context.Context, draftID int64) (*models.Article, error) {
	var a models.Article
	err := q.getContext(ctx, &a, `SELECT * FROM articles WHERE draft_id = ?`, draftID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find article for draft %d: %w", draftID, err)
	}
	return &a, nil
}

// InsertArticle stores a public article unless one already exists for its
// draft, and returns the stored row either way.
func (q queries) InsertArticle(ctx context.Context, a *models.Article) (*models.Article, error) {
	if a.DraftID == nil {
		return nil, fmt.Errorf("insert article: missing draft id")
	}
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO articles (draft_id, title, excerpt, content, image, date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(draft_id) DO NOTHING`,
		a.DraftID, a.Title, a.Excerpt, a.Content, a.Image, a.Date.UTC())
	if err != nil {
		return nil, fmt.Errorf("insert article for draft %d: %w", *a.DraftID, err)
	}
	stored, err := q.FindArticleByDraft(ctx, *a.DraftID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("insert article for draft %d: row not found after insert", *a.DraftID)
	}
	return stored, nil
}

// CountArticles returns the number of public articles.
func (q queries) CountArticles(ctx context.Context) (int, error) {
	var count int
	if err := q.getContext(ctx, &count, `SELECT COUNT(*) FROM articles`); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}
