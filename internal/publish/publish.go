// Package publish promotes reviewed drafts to public articles.
package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/storage"
)

// DefaultPlaceholderImage is used for drafts without an image.
const DefaultPlaceholderImage = "/images/placeholder-article.jpg"

// Publisher turns drafts into articles.
type Publisher struct {
	store            *storage.Store
	placeholderImage string
	now              func() time.Time

	// beforeTx runs after Publish is called and before the transaction
	// opens. afterArticleWrite runs inside the transaction right after the
	// article insert. Tests use them to race edits and inject failures.
	beforeTx          func() error
	afterArticleWrite func() error
}

// New creates a Publisher. An empty placeholderImage uses DefaultPlaceholderImage.
func New(store *storage.Store, placeholderImage string) *Publisher {
	if strings.TrimSpace(placeholderImage) == "" {
		placeholderImage = DefaultPlaceholderImage
	}
	return &Publisher{store: store, placeholderImage: placeholderImage, now: time.Now}
}

// Publish creates the article for draftID, marks the draft published and
// moves its cluster to published, all in one transaction. The draft is read
// inside that transaction so edits saved before it opens are the ones
// published. Publishing an already published draft returns its existing
// article.
func (p *Publisher) Publish(ctx context.Context, draftID int64) (*models.Article, error) {
	if p.beforeTx != nil {
		if err := p.beforeTx(); err != nil {
			return nil, err
		}
	}

	var (
		draft   *models.Draft
		article *models.Article
	)
	err := p.store.InTx(ctx, func(tx *storage.Tx) error {
		var err error
		draft, err = tx.GetDraft(ctx, draftID)
		if err != nil {
			return err
		}
		if len(draft.Sources) == 0 {
			return errs.Wrap(errs.ErrValidation, "publish", fmt.Sprintf("draft %d has no sources", draftID), nil)
		}

		now := p.now().UTC()
		image := p.placeholderImage
		if draft.ImageURL != nil && strings.TrimSpace(*draft.ImageURL) != "" {
			image = *draft.ImageURL
		}

		article, err = tx.InsertArticle(ctx, &models.Article{
			DraftID: &draft.ID,
			Title:   draft.Title,
			Excerpt: draft.Excerpt,
			Content: draft.Content,
			Image:   image,
			Date:    now,
		})
		if err != nil {
			return err
		}
		if p.afterArticleWrite != nil {
			if err := p.afterArticleWrite(); err != nil {
				return err
			}
		}
		if err := tx.MarkDraftPublished(ctx, draft.ID, now); err != nil {
			return err
		}
		return tx.AdvanceClusterStatus(ctx, draft.ClusterID, models.ClusterPublished)
	})
	if err != nil {
		return nil, fmt.Errorf("publish draft %d: %w", draftID, err)
	}

	log.Info().
		Int64("draft_id", draft.ID).
		Int64("cluster_id", draft.ClusterID).
		Int64("article_id", article.ID).
		Bool("republished", draft.Status == models.DraftPublished).
		Msg("Draft published")
	return article, nil
}
