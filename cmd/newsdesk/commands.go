package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/config"
	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/registry"
	"reddot-watch/newsdesk/internal/server"
	"reddot-watch/newsdesk/internal/storage"
)

// signalContext is cancelled on SIGINT or SIGTERM so running jobs stop cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// withApp opens the pipeline for one command and closes it afterwards.
func withApp(cfg *config.Config, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()
	return fn(ctx, a)
}

// positionalID reads the single numeric argument left after flag parsing.
func positionalID(args []string, what string) (int64, error) {
	if len(args) != 1 {
		return 0, errs.Wrap(errs.ErrValidation, "cli", fmt.Sprintf("expected exactly one %s id", what), nil)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Wrap(errs.ErrValidation, "cli", fmt.Sprintf("invalid %s id %q", what, args[0]), nil)
	}
	return id, nil
}

func runSources(args []string) error {
	fs, common := newCommand("sources")
	var sourcesPath string
	var check bool
	fs.StringVar(&sourcesPath, "sources", "", "Path or URL of the YAML/CSV source list (env: NEWSDESK_SOURCES)")
	fs.BoolVar(&check, "check", false, "Check that every active feed published within the cluster window")
	fs.Parse(args)

	cfg, err := common.load(func(c *config.Config) {
		if sourcesPath != "" {
			c.SourcesPath = sourcesPath
		}
	})
	if err != nil {
		return err
	}
	return withApp(cfg, func(ctx context.Context, a *app) error {
		if check {
			sources, err := a.store.ListSources(ctx, true)
			if err != nil {
				return err
			}
			printFeedHealth(os.Stdout, a.feedChecker().CheckAll(ctx, sources))
			return nil
		}
		declared, err := a.loadSources(ctx)
		if err != nil {
			return err
		}
		return a.lock.Run(ctx, "sources", func(ctx context.Context, _ string) error {
			if declared != nil {
				created, err := registry.New(a.store).Reconcile(ctx, declared)
				if err != nil {
					return err
				}
				fmt.Printf("Registered %d new sources\n", len(created))
			}
			sources, err := a.store.ListSources(ctx, false)
			if err != nil {
				return err
			}
			printSources(os.Stdout, sources)
			return nil
		})
	})
}

func runIngest(args []string) error {
	fs, common := newCommand("ingest")
	var sourcesPath string
	var workers int
	fs.StringVar(&sourcesPath, "sources", "", "Path or URL of the YAML/CSV source list (env: NEWSDESK_SOURCES)")
	fs.IntVar(&workers, "workers", 0, "Number of sources fetched concurrently (env: NEWSDESK_WORKERS)")
	fs.Parse(args)

	cfg, err := common.load(func(c *config.Config) {
		if sourcesPath != "" {
			c.SourcesPath = sourcesPath
		}
		if workers > 0 {
			c.WorkerCount = workers
		}
	})
	if err != nil {
		return err
	}
	return withApp(cfg, func(ctx context.Context, a *app) error {
		ingester, err := a.ingester()
		if err != nil {
			return err
		}
		declared, err := a.loadSources(ctx)
		if err != nil {
			return err
		}
		return a.lock.Run(ctx, "ingest", func(ctx context.Context, _ string) error {
			report, err := ingester.Run(ctx, declared)
			if err != nil {
				return err
			}
			printIngestReport(os.Stdout, report)
			return nil
		})
	})
}

func runIngestURLs(args []string) error {
	fs, common := newCommand("ingest-urls")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: newsdesk ingest-urls [options] URL...")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if fs.NArg() == 0 {
		return errs.Wrap(errs.ErrValidation, "cli", "at least one URL is required", nil)
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	return withApp(cfg, func(ctx context.Context, a *app) error {
		return a.lock.Run(ctx, "ingest-urls", func(ctx context.Context, _ string) error {
			outcomes, err := a.manual().Submit(ctx, fs.Args())
			if err != nil {
				return err
			}
			printURLOutcomes(os.Stdout, outcomes)
			return nil
		})
	})
}

func runCluster(args []string) error {
	fs, common := newCommand("cluster")
	var windowHours, threshold int
	fs.IntVar(&windowHours, "window-hours", 0, "Only cluster items fetched within this many hours (env: NEWSDESK_CLUSTER_WINDOW_HOURS)")
	fs.IntVar(&threshold, "threshold", 0, "Title similarity threshold, 1..100 (env: NEWSDESK_CLUSTER_THRESHOLD)")
	fs.Parse(args)

	cfg, err := common.load(func(c *config.Config) {
		if windowHours > 0 {
			c.ClusterWindowHours = windowHours
		}
		if threshold > 0 {
			c.ClusterThreshold = threshold
		}
	})
	if err != nil {
		return err
	}
	return withApp(cfg, func(ctx context.Context, a *app) error {
		return a.lock.Run(ctx, "cluster", func(ctx context.Context, _ string) error {
			result, err := a.clusterer().Run(ctx)
			if err != nil {
				return err
			}
			printClusterResult(os.Stdout, result)
			return nil
		})
	})
}

func runClusters(args []string) error {
	fs, common := newCommand("clusters")
	var status string
	var limit int
	fs.StringVar(&status, "status", "", "Only list clusters in this status: pending, draft, published")
	fs.IntVar(&limit, "limit", storage.DefaultListLimit, "Maximum number of clusters to list")
	fs.Parse(args)

	filter := storage.ClusterFilter{Limit: limit}
	if status != "" {
		filter.Status = models.ClusterStatus(status)
		if !filter.Status.Valid() {
			return errs.Wrap(errs.ErrValidation, "cli", fmt.Sprintf("invalid status %q", status), nil)
		}
	}
	if limit <= 0 || limit > storage.MaxListLimit {
		return errs.Wrap(errs.ErrValidation, "cli", fmt.Sprintf("limit must be between 1 and %d", storage.MaxListLimit), nil)
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	return withApp(cfg, func(ctx context.Context, a *app) error {
		clusters, err := a.store.ListClusters(ctx, filter)
		if err != nil {
			return err
		}
		if len(clusters) > limit {
			clusters = clusters[:limit]
		}
		printClusters(os.Stdout, clusters)
		return nil
	})
}

func runBrief(args []string) error {
	fs, common := newCommand("brief")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: newsdesk brief [options] CLUSTER_ID")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	clusterID, err := positionalID(fs.Args(), "cluster")
	if err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	return withApp(cfg, func(ctx context.Context, a *app) error {
		generator, err := a.generator()
		if err != nil {
			return err
		}
		brief, err := generator.GenerateBrief(ctx, clusterID)
		if err != nil {
			return err
		}
		log.Info().Int64("cluster_id", clusterID).Int64("content_id", brief.ID).Msg("Brief generated")
		fmt.Println(brief.Content)
		return nil
	})
}

func runArticle(args []string) error {
	fs, common := newCommand("article")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: newsdesk article [options] CLUSTER_ID")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	clusterID, err := positionalID(fs.Args(), "cluster")
	if err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	return withApp(cfg, func(ctx context.Context, a *app) error {
		generator, err := a.generator()
		if err != nil {
			return err
		}
		draft, err := generator.GenerateArticleDraft(ctx, clusterID)
		if err != nil {
			return err
		}
		fmt.Printf("Draft %d  %s\nSlug: %s\nSources: %d\n\n%s\n", draft.ID, draft.Title, draft.Slug, len(draft.Sources), draft.Excerpt)
		return nil
	})
}

func runPublish(args []string) error {
	fs, common := newCommand("publish")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: newsdesk publish [options] DRAFT_ID")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	draftID, err := positionalID(fs.Args(), "draft")
	if err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	return withApp(cfg, func(ctx context.Context, a *app) error {
		article, err := a.publisher().Publish(ctx, draftID)
		if err != nil {
			return err
		}
		fmt.Printf("Article %d published: %s\n", article.ID, article.Title)
		return nil
	})
}

// runReset clears the pipeline. It asks for confirmation unless -yes is given;
// without a terminal to ask on, -yes is required.
func runReset(args []string) error {
	fs, common := newCommand("reset")
	var yes bool
	fs.BoolVar(&yes, "yes", false, "Do not ask for confirmation")
	fs.Parse(args)

	cfg, err := common.load()
	if err != nil {
		return err
	}

	if !yes {
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return errs.Wrap(errs.ErrValidation, "cli", "refusing to reset without confirmation, pass -yes", nil)
		}
		fmt.Printf("All sources, items, clusters, briefs and drafts in %s will be deleted. Published articles are kept.\n", cfg.DBPath)
		fmt.Print("Continue? (y/N): ")

		var answer string
		fmt.Scanln(&answer)
		if strings.ToLower(answer) != "y" {
			log.Info().Msg("Operation canceled by user")
			return fmt.Errorf("operation canceled by user")
		}
	}

	return withApp(cfg, func(ctx context.Context, a *app) error {
		return a.lock.Run(ctx, "reset", func(ctx context.Context, _ string) error {
			counts, err := a.store.Reset(ctx)
			if err != nil {
				return err
			}
			printResetCounts(os.Stdout, counts)
			return nil
		})
	})
}

func runServer(args []string) error {
	fs, common := newCommand("server")
	var host string
	var port int
	fs.StringVar(&host, "host", "", "Host to bind the server to (env: NEWSDESK_HOST)")
	fs.IntVar(&port, "port", 0, "Port to listen on (env: NEWSDESK_PORT)")
	fs.Parse(args)

	cfg, err := common.load(func(c *config.Config) {
		if host != "" {
			c.ServerHost = host
		}
		if port > 0 {
			c.ServerPort = port
		}
	})
	if err != nil {
		return err
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	handlers, err := a.handlers()
	if err != nil {
		return err
	}
	return server.RunServer(context.Background(), handlers, cfg.ListenAddr(), log.Logger, cfg.APIToken)
}
