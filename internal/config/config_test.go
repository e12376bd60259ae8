package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reddot-watch/newsdesk/internal/llm"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.ListenAddr() != ":8080" {
		t.Fatalf("ListenAddr() = %q", cfg.ListenAddr())
	}
	if cfg.JobLockPath() != "./newsdesk.db.lock" {
		t.Fatalf("JobLockPath() = %q", cfg.JobLockPath())
	}
	if cfg.ClusterWindow() != 48*time.Hour || cfg.FetchTimeout() != 8*time.Second {
		t.Fatalf("unexpected durations: %v %v", cfg.ClusterWindow(), cfg.FetchTimeout())
	}
	if cfg.Aliases["paris saint-germain"] != "psg" {
		t.Fatalf("expected default aliases, got %v", cfg.Aliases)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsdesk.toml")
	content := `
db_path = "/var/lib/newsdesk/pipeline.db"
workers = 4
keywords = ["psg", "parc des princes"]
log_level = "debug"

[llm]
model = "gpt-4o"
timeout_seconds = 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEWSDESK_WORKERS", "2")
	t.Setenv("NEWSDESK_API_TOKEN", "secret")
	t.Setenv("NEWSDESK_LLM_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/var/lib/newsdesk/pipeline.db" || cfg.JobLockPath() != "/var/lib/newsdesk/pipeline.db.lock" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if cfg.WorkerCount != 2 {
		t.Fatalf("environment should override file, workers = %d", cfg.WorkerCount)
	}
	if len(cfg.Keywords) != 2 || cfg.Level() != zerolog.DebugLevel {
		t.Fatalf("unexpected keywords/level: %v %v", cfg.Keywords, cfg.Level())
	}
	if cfg.LLM.Model != "gpt-4o" || cfg.LLM.TimeoutSeconds != 30 || cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("unexpected llm settings: %+v", cfg.LLM)
	}
	if cfg.LLM.BaseURL != llm.DefaultBaseURL {
		t.Fatalf("unset file keys should keep defaults, got %q", cfg.LLM.BaseURL)
	}
	if cfg.APIToken != "secret" {
		t.Fatalf("unexpected token")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatalf("expected error for missing explicit file")
	}

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("workers = ["), 0o644)
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.toml")
	os.WriteFile(invalid, []byte("cluster_threshold = 150\nlog_level = \"loud\""), 0o644)
	_, err := Load(invalid)
	if err == nil || !strings.Contains(err.Error(), "cluster_threshold") || !strings.Contains(err.Error(), "log_level") {
		t.Fatalf("expected validation errors, got %v", err)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("NEWSDESK_TEST_INT", "nope")
	if GetEnvInt("NEWSDESK_TEST_INT", 3) != 3 {
		t.Fatalf("invalid int should return default")
	}
	t.Setenv("NEWSDESK_TEST_LIST", " psg , ,paris sg ")
	if got := GetEnvList("NEWSDESK_TEST_LIST", nil); len(got) != 2 || got[1] != "paris sg" {
		t.Fatalf("GetEnvList = %q", got)
	}
	if got := GetEnvList("NEWSDESK_TEST_UNSET", []string{"x"}); len(got) != 1 {
		t.Fatalf("unset list should return default")
	}
	t.Setenv("NEWSDESK_TEST_BLANK", "   ")
	if got := GetEnvString("NEWSDESK_TEST_BLANK", "fallback"); got != "fallback" {
		t.Fatalf("blank value should return default, got %q", got)
	}
}
