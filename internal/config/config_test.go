package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]byte("{}"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(cfg.Reddit.Subreddits) == 0 {
		t.Error("expected default subreddits")
	}
	if cfg.Compose.MinConfidence != 0.5 {
		t.Errorf("expected default min_confidence 0.5, got %v", cfg.Compose.MinConfidence)
	}
	if cfg.Compose.MinPriority != "medium" {
		t.Errorf("expected default min_priority medium, got %q", cfg.Compose.MinPriority)
	}
	if cfg.Compose.AutoApproveConfidence != 0.8 {
		t.Errorf("expected default auto_approve_confidence 0.8, got %v", cfg.Compose.AutoApproveConfidence)
	}
	if cfg.Monitor.IntervalHours != 24 {
		t.Errorf("expected default interval 24h, got %d", cfg.Monitor.IntervalHours)
	}
	if cfg.Classifier.Mode != "llm" {
		t.Errorf("expected default classifier mode llm, got %q", cfg.Classifier.Mode)
	}
}

func TestParseOverrides(t *testing.T) {
	yaml := `
reddit:
  subreddits: [testsub]
classifier:
  mode: keyword
compose:
  min_confidence: 0.7
monitor:
  interval_hours: 6
`
	cfg, err := parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Reddit.Subreddits) != 1 || cfg.Reddit.Subreddits[0] != "testsub" {
		t.Errorf("unexpected subreddits: %v", cfg.Reddit.Subreddits)
	}
	if cfg.Classifier.Mode != "keyword" {
		t.Errorf("expected keyword mode, got %q", cfg.Classifier.Mode)
	}
	if cfg.Compose.MinConfidence != 0.7 {
		t.Errorf("expected 0.7, got %v", cfg.Compose.MinConfidence)
	}
	if cfg.Monitor.IntervalHours != 6 {
		t.Errorf("expected 6, got %d", cfg.Monitor.IntervalHours)
	}
}

func TestParseRejectsBadConfidence(t *testing.T) {
	if _, err := parse([]byte("compose:\n  min_confidence: 1.5\n")); err == nil {
		t.Error("expected error for out-of-range min_confidence")
	}
}

func TestDefaultYAMLParses(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("embedded default config must parse: %v", err)
	}
	if len(cfg.Reddit.Subreddits) == 0 {
		t.Error("embedded default config must list subreddits")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ResolveConfigPath(path)
	if err != nil || got != path {
		t.Errorf("ResolveConfigPath = %q, %v", got, err)
	}

	if _, err := ResolveConfigPath(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestRedditCredentials(t *testing.T) {
	cfg, _ := parse([]byte("{}"))
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret")
	t.Setenv("REDDIT_USERNAME", "user")
	t.Setenv("REDDIT_PASSWORD", "pass")

	id, secret, user, pass := cfg.RedditCredentials()
	if id != "id" || secret != "secret" || user != "user" || pass != "pass" {
		t.Errorf("unexpected credentials: %q %q %q %q", id, secret, user, pass)
	}
}
