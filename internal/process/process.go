// Package process runs ingestion over every active source.
package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/fetch"
	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/registry"
	"reddot-watch/newsdesk/internal/storage"
	"reddot-watch/newsdesk/internal/topic"
)

const (
	DefaultWorkers = 1
	// sourceDeadline bounds the whole handling of one source, fetch and writes.
	sourceDeadline = 2 * time.Minute
)

// Options configures an Ingester.
type Options struct {
	Workers  int
	Keywords []string
	// Fetchers maps source types to fetchers. Sources of other types are skipped.
	Fetchers map[models.SourceType]fetch.SourceFetcher
	Now      func() time.Time
}

// SourceOutcome reports what happened to one source during a run.
type SourceOutcome struct {
	SourceID   int64             `json:"source_id"`
	Name       string            `json:"name"`
	URL        string            `json:"url"`
	Type       models.SourceType `json:"type"`
	Entries    int               `json:"entries"`
	Created    int               `json:"created"`
	Duplicates int               `json:"duplicates"`
	Filtered   int               `json:"filtered"`
	Error      string            `json:"error,omitempty"`
	ErrorClass string            `json:"error_class,omitempty"`
}

// Report summarizes an ingestion run.
type Report struct {
	SourcesCreated []string        `json:"sources_created"`
	Sources        []SourceOutcome `json:"sources"`
	Created        int             `json:"created"`
	Duplicates     int             `json:"duplicates"`
	Filtered       int             `json:"filtered"`
	Failed         int             `json:"failed"`
}

// Ingester fetches active sources and stores their on-topic entries.
type Ingester struct {
	store    *storage.Store
	registry *registry.Registry
	opts     Options
}

// NewIngester creates an ingester.
func NewIngester(store *storage.Store, opts Options) (*Ingester, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if len(opts.Keywords) == 0 {
		opts.Keywords = topic.DefaultKeywords
	}
	if opts.Fetchers == nil {
		fetchOpts := fetch.Options{}
		opts.Fetchers = map[models.SourceType]fetch.SourceFetcher{
			models.SourceFeed:       fetch.NewFeedFetcher(fetchOpts),
			models.SourceSinglePage: fetch.NewPageFetcher(fetchOpts),
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ingester{store: store, registry: registry.New(store), opts: opts}, nil
}

// Run reconciles declared into the source registry, then fetches every active
// source. A failing source is reported in its outcome and does not stop the
// run. A nil declared list skips reconciliation.
func (p *Ingester) Run(ctx context.Context, declared []registry.Declared) (*Report, error) {
	report := &Report{SourcesCreated: []string{}}

	if declared != nil {
		created, err := p.registry.Reconcile(ctx, declared)
		if err != nil {
			return nil, fmt.Errorf("reconcile sources: %w", err)
		}
		report.SourcesCreated = created
	}

	sources, err := p.store.ListSources(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	var runnable []models.Source
	for _, src := range sources {
		if _, ok := p.opts.Fetchers[src.Type]; ok {
			runnable = append(runnable, src)
		}
	}
	log.Info().
		Int("loaded_sources", len(runnable)).
		Int("workers", p.opts.Workers).
		Msg("Loaded active sources to process.")

	report.Sources = make([]SourceOutcome, len(runnable))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, src := range runnable {
		g.Go(func() error {
			outcome, err := p.processSource(gctx, src)
			report.Sources[i] = outcome
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, o := range report.Sources {
		report.Created += o.Created
		report.Duplicates += o.Duplicates
		report.Filtered += o.Filtered
		if o.Error != "" {
			report.Failed++
		}
	}
	log.Info().
		Int("sources", len(report.Sources)).
		Int("created", report.Created).
		Int("duplicates", report.Duplicates).
		Int("filtered", report.Filtered).
		Int("failed", report.Failed).
		Msg("Ingestion complete")
	return report, nil
}

// processSource fetches one source and stores its entries. Only storage
// failures are returned; fetch failures end up in the outcome.
func (p *Ingester) processSource(ctx context.Context, src models.Source) (SourceOutcome, error) {
	outcome := SourceOutcome{SourceID: src.ID, Name: src.Name, URL: src.URL, Type: src.Type}
	logger := log.With().Int64("source_id", src.ID).Str("url", src.URL).Logger()
	logger.Info().Msg("Processing source")

	srcCtx, cancel := context.WithTimeout(ctx, sourceDeadline)
	defer cancel()

	entries, fetchErr := p.opts.Fetchers[src.Type].Fetch(srcCtx, src)
	now := p.opts.Now().UTC()
	if err := p.store.RecordFetchResult(ctx, src.ID, fetchErr, now); err != nil {
		return outcome, fmt.Errorf("failed to update fetch status for source %d (%s): %w", src.ID, src.URL, err)
	}
	if fetchErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, ctxErr
		}
		outcome.Error = fetchErr.Error()
		outcome.ErrorClass = errs.Class(fetchErr)
		logger.Warn().Err(fetchErr).Msg("Source fetch failed")
		return outcome, nil
	}
	outcome.Entries = len(entries)

	for _, entry := range entries {
		if !topic.IsOnTopic(entry.Title, p.opts.Keywords) {
			outcome.Filtered++
			continue
		}
		item := &models.Item{
			SourceID:    src.ID,
			URL:         entry.URL,
			Title:       entry.Title,
			PublishedAt: entry.PublishedAt,
			Language:    src.Language,
			Excerpt:     optional(entry.Excerpt),
			RawBody:     optional(entry.RawBody),
			FetchedAt:   now,
		}
		created, err := p.store.InsertItemIfAbsent(ctx, item)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return outcome, err
			}
			return outcome, fmt.Errorf("insert item %s from source %d: %w", entry.URL, src.ID, err)
		}
		if created {
			outcome.Created++
		} else {
			outcome.Duplicates++
			logger.Debug().Str("item_url", entry.URL).Msg("Duplicate URL detected")
		}
	}

	logger.Info().
		Int("entries", outcome.Entries).
		Int("created", outcome.Created).
		Int("duplicates", outcome.Duplicates).
		Int("filtered", outcome.Filtered).
		Msg("Source processed")
	return outcome, nil
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
