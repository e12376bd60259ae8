package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/cluster"
	"reddot-watch/newsdesk/internal/config"
	"reddot-watch/newsdesk/internal/database"
	"reddot-watch/newsdesk/internal/fetch"
	"reddot-watch/newsdesk/internal/generate"
	"reddot-watch/newsdesk/internal/jobs"
	"reddot-watch/newsdesk/internal/llm"
	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/process"
	"reddot-watch/newsdesk/internal/publish"
	"reddot-watch/newsdesk/internal/registry"
	"reddot-watch/newsdesk/internal/server"
	"reddot-watch/newsdesk/internal/server/api"
	"reddot-watch/newsdesk/internal/storage"
	"reddot-watch/newsdesk/internal/textutil"
)

// app wires the pipeline components from one configuration.
type app struct {
	cfg   *config.Config
	db    *database.DB
	store *storage.Store
	lock  *jobs.Lock
}

func openApp(cfg *config.Config) (*app, error) {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Debug().Str("path", db.Path()).Msg("Database ready")
	return &app{
		cfg:   cfg,
		db:    db,
		store: storage.New(db),
		lock:  jobs.NewLock(cfg.JobLockPath()),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) fetchOptions() fetch.Options {
	return fetch.Options{Timeout: a.cfg.FetchTimeout()}
}

func (a *app) ingester() (*process.Ingester, error) {
	opts := a.fetchOptions()
	return process.NewIngester(a.store, process.Options{
		Workers:  a.cfg.WorkerCount,
		Keywords: a.cfg.Keywords,
		Fetchers: map[models.SourceType]fetch.SourceFetcher{
			models.SourceFeed:       fetch.NewFeedFetcher(opts),
			models.SourceSinglePage: fetch.NewPageFetcher(opts),
		},
	})
}

func (a *app) feedChecker() *fetch.FeedChecker {
	opts := a.fetchOptions()
	opts.MaxAge = a.cfg.ClusterWindow()
	return fetch.NewFeedChecker(opts)
}

func (a *app) manual() *fetch.ManualFetcher {
	return fetch.NewManualFetcher(a.store, fetch.NewPageFetcher(a.fetchOptions()))
}

func (a *app) clusterer() *cluster.Clusterer {
	return cluster.New(a.store, cluster.Options{
		Window:    a.cfg.ClusterWindow(),
		Threshold: a.cfg.ClusterThreshold,
		Aliases:   textutil.NewAliases(a.cfg.Aliases),
	})
}

func (a *app) generator() (*generate.Generator, error) {
	templates, err := generate.LoadTemplates(a.cfg.PromptDir)
	if err != nil {
		return nil, err
	}
	client := llm.NewClient(llm.Config{
		APIKey:         a.cfg.LLM.APIKey,
		BaseURL:        a.cfg.LLM.BaseURL,
		Model:          a.cfg.LLM.Model,
		SystemPrompt:   a.cfg.LLM.SystemPrompt,
		TimeoutSeconds: a.cfg.LLM.TimeoutSeconds,
	})
	var backend generate.Backend = generate.Placeholder{}
	if client.Configured() {
		backend = client
		log.Debug().Str("model", a.cfg.LLM.Model).Msg("Generation backend configured")
	} else {
		log.Info().Msg("No generation backend credential, using placeholder output")
	}
	return generate.New(a.store, backend, templates), nil
}

func (a *app) publisher() *publish.Publisher {
	return publish.New(a.store, a.cfg.PlaceholderImage)
}

// loadSources reads the declared source list. A missing local file means
// there is nothing to reconcile.
func (a *app) loadSources(ctx context.Context) ([]registry.Declared, error) {
	if a.cfg.SourcesPath == "" {
		return nil, nil
	}
	declared, err := registry.Load(ctx, a.cfg.SourcesPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", a.cfg.SourcesPath).Msg("Source list not found, skipping reconciliation")
		return nil, nil
	}
	return declared, err
}

func (a *app) handlers() (server.Handlers, error) {
	ingester, err := a.ingester()
	if err != nil {
		return server.Handlers{}, fmt.Errorf("failed to initialize ingester: %w", err)
	}
	generator, err := a.generator()
	if err != nil {
		return server.Handlers{}, fmt.Errorf("failed to initialize generator: %w", err)
	}
	return server.Handlers{
		Jobs:     api.NewJobsHandler(a.lock, a.store, ingester, a.manual(), a.clusterer(), a.loadSources),
		Clusters: api.NewClustersHandler(a.store, generator),
		Drafts:   api.NewDraftsHandler(a.store, a.publisher()),
	}, nil
}
