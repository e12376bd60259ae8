package fetch

import (
	"context"
	"time"

	"github.com/reddot-watch/feedfetcher"
	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
)

// FeedHealth reports whether a feed source is alive: how many of its entries
// were published within the recency window and when the newest one was.
type FeedHealth struct {
	SourceID   int64      `json:"source_id"`
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	Recent     int        `json:"recent"`
	Newest     *time.Time `json:"newest,omitempty"`
	Error      string     `json:"error,omitempty"`
	ErrorClass string     `json:"error_class,omitempty"`
}

// Stale reports whether the feed answered but published nothing recently.
func (h FeedHealth) Stale() bool {
	return h.Error == "" && h.Recent == 0
}

// FeedChecker checks feed liveness. Undated, old and far-future entries do
// not count as recent, and requests are rate limited per domain.
type FeedChecker struct {
	fetcher *feedfetcher.FeedFetcher
	window  time.Duration
}

// NewFeedChecker creates a checker whose recency window is opts.MaxAge.
func NewFeedChecker(opts Options) *FeedChecker {
	opts = opts.withDefaults()
	f := feedfetcher.NewFeedFetcher(feedfetcher.Config{
		UserAgent:            opts.UserAgent,
		RequestTimeout:       opts.Timeout,
		MaxHeadingLength:     300,
		MaxAge:               opts.MaxAge,
		FutureDriftTolerance: 12 * time.Hour,
	}).WithLogger(log.With().Str("component", "feed_checker").Logger())
	return &FeedChecker{fetcher: f, window: opts.MaxAge}
}

// Check fetches src once and summarizes its recent entries.
func (c *FeedChecker) Check(ctx context.Context, src models.Source) FeedHealth {
	h := FeedHealth{SourceID: src.ID, Name: src.Name, URL: src.URL}

	items, err := c.fetcher.FetchAndProcess(ctx, src.URL)
	if err != nil {
		err = errs.Wrap(errs.ErrFetch, "check feed", src.URL, err)
		h.Error = err.Error()
		h.ErrorClass = errs.Class(err)
		return h
	}

	h.Recent = len(items)
	for _, item := range items {
		if h.Newest == nil || item.PublishedAt.After(*h.Newest) {
			t := item.PublishedAt
			h.Newest = &t
		}
	}
	log.Debug().Int64("source_id", src.ID).Int("recent", h.Recent).Dur("window", c.window).Msg("Feed checked")
	return h
}

// CheckAll checks every feed source in order. Other source types are skipped.
func (c *FeedChecker) CheckAll(ctx context.Context, sources []models.Source) []FeedHealth {
	var out []FeedHealth
	for _, src := range sources {
		if src.Type != models.SourceFeed {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		out = append(out, c.Check(ctx, src))
	}
	return out
}
