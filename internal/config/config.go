package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"reddot-watch/newsdesk/internal/llm"
	"reddot-watch/newsdesk/internal/publish"
	"reddot-watch/newsdesk/internal/topic"
)

// LLM configures the generation backend. An empty APIKey keeps the pipeline
// on the offline placeholder.
type LLM struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	SystemPrompt   string `toml:"system_prompt"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Config holds all configuration for the application
type Config struct {
	// File paths
	SourcesPath string `toml:"sources"`
	DBPath      string `toml:"db_path"`
	LockPath    string `toml:"lock_path"`
	PromptDir   string `toml:"prompt_dir"`

	// Server settings
	ServerHost string `toml:"host"`
	ServerPort int    `toml:"port"`
	APIToken   string `toml:"api_token"`

	// Processing settings
	WorkerCount         int               `toml:"workers"`
	FetchTimeoutSeconds int               `toml:"fetch_timeout_seconds"`
	ClusterWindowHours  int               `toml:"cluster_window_hours"`
	ClusterThreshold    int               `toml:"cluster_threshold"`
	Keywords            []string          `toml:"keywords"`
	Aliases             map[string]string `toml:"aliases"`
	PlaceholderImage    string            `toml:"placeholder_image"`

	LLM LLM `toml:"llm"`

	// Log settings
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	aliases := make(map[string]string, len(topic.DefaultAliases))
	for k, v := range topic.DefaultAliases {
		aliases[k] = v
	}
	return &Config{
		SourcesPath:         DefaultSourcesPath,
		DBPath:              DefaultDBPath,
		ServerHost:          DefaultServerHost,
		ServerPort:          DefaultServerPort,
		WorkerCount:         DefaultWorkerCount,
		FetchTimeoutSeconds: DefaultFetchTimeoutSeconds,
		ClusterWindowHours:  DefaultClusterWindowHours,
		ClusterThreshold:    DefaultClusterThreshold,
		Keywords:            append([]string(nil), topic.DefaultKeywords...),
		Aliases:             aliases,
		PlaceholderImage:    publish.DefaultPlaceholderImage,
		LLM: LLM{
			BaseURL:        llm.DefaultBaseURL,
			Model:          llm.DefaultModel,
			TimeoutSeconds: DefaultLLMTimeoutSeconds,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load builds the configuration from defaults, the optional TOML file at path
// and NEWSDESK_* environment variables, in that order. An explicit path that
// does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("open config: %w", err)
		}
		if err := toml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.SourcesPath = GetEnvString(EnvPrefix+"SOURCES", c.SourcesPath)
	c.DBPath = GetEnvString(EnvPrefix+"DB_PATH", c.DBPath)
	c.LockPath = GetEnvString(EnvPrefix+"LOCK_PATH", c.LockPath)
	c.PromptDir = GetEnvString(EnvPrefix+"PROMPT_DIR", c.PromptDir)
	c.ServerHost = GetEnvString(EnvPrefix+"HOST", c.ServerHost)
	c.ServerPort = GetEnvInt(EnvPrefix+"PORT", c.ServerPort)
	c.APIToken = GetEnvString(EnvPrefix+"API_TOKEN", c.APIToken)
	c.WorkerCount = GetEnvInt(EnvPrefix+"WORKERS", c.WorkerCount)
	c.FetchTimeoutSeconds = GetEnvInt(EnvPrefix+"FETCH_TIMEOUT_SECONDS", c.FetchTimeoutSeconds)
	c.ClusterWindowHours = GetEnvInt(EnvPrefix+"CLUSTER_WINDOW_HOURS", c.ClusterWindowHours)
	c.ClusterThreshold = GetEnvInt(EnvPrefix+"CLUSTER_THRESHOLD", c.ClusterThreshold)
	c.Keywords = GetEnvList(EnvPrefix+"KEYWORDS", c.Keywords)
	c.PlaceholderImage = GetEnvString(EnvPrefix+"PLACEHOLDER_IMAGE", c.PlaceholderImage)
	c.LLM.BaseURL = GetEnvString(EnvPrefix+"LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = GetEnvString(EnvPrefix+"LLM_API_KEY", GetEnvString("OPENAI_API_KEY", c.LLM.APIKey))
	c.LLM.Model = GetEnvString(EnvPrefix+"LLM_MODEL", c.LLM.Model)
	c.LLM.TimeoutSeconds = GetEnvInt(EnvPrefix+"LLM_TIMEOUT_SECONDS", c.LLM.TimeoutSeconds)
	c.LogLevel = GetEnvString(EnvPrefix+"LOG_LEVEL", c.LogLevel)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.DBPath) == "" {
		problems = append(problems, "db_path must be set")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.ServerPort))
	}
	if c.WorkerCount <= 0 {
		problems = append(problems, "workers must be positive")
	}
	if c.FetchTimeoutSeconds <= 0 {
		problems = append(problems, "fetch_timeout_seconds must be positive")
	}
	if c.ClusterWindowHours <= 0 {
		problems = append(problems, "cluster_window_hours must be positive")
	}
	if c.ClusterThreshold <= 0 || c.ClusterThreshold > 100 {
		problems = append(problems, "cluster_threshold must be within 1..100")
	}
	if len(c.Keywords) == 0 {
		problems = append(problems, "keywords must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log_level %q", c.LogLevel))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// JobLockPath returns the advisory lock file, next to the database by default.
func (c *Config) JobLockPath() string {
	if c.LockPath != "" {
		return c.LockPath
	}
	return c.DBPath + ".lock"
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// FetchTimeout bounds each outbound fetch.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// ClusterWindow is how far back the clusterer looks.
func (c *Config) ClusterWindow() time.Duration {
	return time.Duration(c.ClusterWindowHours) * time.Hour
}
