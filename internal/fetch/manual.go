package fetch

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/storage"
)

// URL outcome statuses reported by Submit.
const (
	OutcomeCreated        = "created"
	OutcomeAlreadyPresent = "already_present"
	OutcomeError          = "error"
)

// URLOutcome is the result of one manual submission.
type URLOutcome struct {
	URL    string `json:"url"`
	Status string `json:"status"`
	ItemID int64  `json:"item_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ManualFetcher stores operator-submitted URLs under the synthetic manual source.
// Submissions bypass the topic filter but still need a page title.
type ManualFetcher struct {
	store *storage.Store
	pages *PageFetcher
}

// NewManualFetcher creates a manual fetcher.
func NewManualFetcher(store *storage.Store, pages *PageFetcher) *ManualFetcher {
	return &ManualFetcher{store: store, pages: pages}
}

// Submit processes urls in order and reports one outcome per URL. Only a
// storage failure on the manual source itself aborts the batch.
func (m *ManualFetcher) Submit(ctx context.Context, urls []string) ([]URLOutcome, error) {
	if len(urls) == 0 {
		return nil, errs.Wrap(errs.ErrValidation, "ingest urls", "no urls given", nil)
	}
	src, err := m.store.EnsureManualSource(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]URLOutcome, 0, len(urls))
	for _, raw := range urls {
		outcome := m.submitOne(ctx, src, raw)
		logger := log.With().Str("url", outcome.URL).Str("status", outcome.Status).Logger()
		if outcome.Status == OutcomeError {
			logger.Warn().Str("reason", outcome.Reason).Msg("Manual URL rejected")
		} else {
			logger.Debug().Int64("item_id", outcome.ItemID).Msg("Manual URL processed")
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (m *ManualFetcher) submitOne(ctx context.Context, src *models.Source, raw string) URLOutcome {
	canonical, err := CanonicalURL(raw, "")
	if err != nil {
		return URLOutcome{URL: raw, Status: OutcomeError, Reason: err.Error()}
	}

	exists, err := m.store.ItemExists(ctx, canonical)
	if err != nil {
		return URLOutcome{URL: canonical, Status: OutcomeError, Reason: err.Error()}
	}
	if exists {
		return URLOutcome{URL: canonical, Status: OutcomeAlreadyPresent}
	}

	meta, err := m.pages.Extract(ctx, canonical)
	if err != nil {
		return URLOutcome{URL: canonical, Status: OutcomeError, Reason: reason(err)}
	}
	if meta.Title == "" {
		return URLOutcome{URL: canonical, Status: OutcomeError, Reason: "no title found"}
	}

	item := &models.Item{
		SourceID: src.ID,
		URL:      meta.Canonical,
		Title:    meta.Title,
		Language: src.Language,
	}
	if meta.Description != "" {
		e := excerpt(meta.Description)
		item.Excerpt = &e
	}
	created, err := m.store.InsertItemIfAbsent(ctx, item)
	if err != nil {
		return URLOutcome{URL: canonical, Status: OutcomeError, Reason: err.Error()}
	}
	if !created {
		return URLOutcome{URL: meta.Canonical, Status: OutcomeAlreadyPresent}
	}
	return URLOutcome{URL: meta.Canonical, Status: OutcomeCreated, ItemID: item.ID}
}

func reason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return err.Error()
	}
}
