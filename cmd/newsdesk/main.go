package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/config"
	"reddot-watch/newsdesk/internal/errs"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

const usage = `Usage: newsdesk [command] [options]

Commands:
  sources      reconcile the declared source list and show the registry (-check: feed health)
  ingest       fetch every active source and store on-topic items
  ingest-urls  store operator-submitted article URLs
  cluster      group recent unclustered items into topics
  clusters     list topic clusters
  brief        generate an editorial brief for a cluster
  article      generate an article draft for a cluster
  publish      publish a draft as an article
  reset        clear sources, items, clusters, briefs and drafts
  server       serve the operator API

For command-specific options, use: newsdesk [command] -h`

// commonFlags are accepted by every command. Empty values keep what the
// config file and environment resolved.
type commonFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

func newCommand(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	common := &commonFlags{}
	fs.StringVar(&common.configPath, "config", config.GetEnvString(config.EnvPrefix+"CONFIG", ""),
		"Path to a TOML config file (env: NEWSDESK_CONFIG)")
	fs.StringVar(&common.dbPath, "db", "",
		"Path to the SQLite database file (env: NEWSDESK_DB_PATH)")
	fs.StringVar(&common.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (env: NEWSDESK_LOG_LEVEL)")
	return fs, common
}

// load resolves the configuration and applies the log level.
func (c *commonFlags) load(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	for _, apply := range overrides {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	config.SetupLogging(os.Stderr, cfg.Level())
	return cfg, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "sources":
		err = runSources(os.Args[2:])
	case "ingest":
		err = runIngest(os.Args[2:])
	case "ingest-urls":
		err = runIngestURLs(os.Args[2:])
	case "cluster":
		err = runCluster(os.Args[2:])
	case "clusters":
		err = runClusters(os.Args[2:])
	case "brief":
		err = runBrief(os.Args[2:])
	case "article":
		err = runArticle(os.Args[2:])
	case "publish":
		err = runPublish(os.Args[2:])
	case "reset":
		err = runReset(os.Args[2:])
	case "server":
		err = runServer(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
		os.Exit(0)
	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Str("class", errs.Class(err)).
			Msg(strings.ToUpper(os.Args[1][:1]) + os.Args[1][1:] + " failed")
		os.Exit(exitCode(err))
	}
}

// exitCode maps error classes to process exit codes so scripts can tell a
// busy pipeline from a bad request.
func exitCode(err error) int {
	switch errs.Class(err) {
	case "validation", "not_found":
		return 2
	case "busy":
		return 3
	default:
		return 1
	}
}
