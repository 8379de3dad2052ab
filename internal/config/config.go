package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Reddit     Reddit     `yaml:"reddit"`
	Completion Completion `yaml:"completion"`
	Classifier Classifier `yaml:"classifier"`
	Compose    Compose    `yaml:"compose"`
	Monitor    Monitor    `yaml:"monitor"`
	Output     Output     `yaml:"output"`
	Metrics    Metrics    `yaml:"metrics"`
	Logging    Logging    `yaml:"logging"`
}

type Reddit struct {
	Subreddits []string `yaml:"subreddits"`
	Keywords   []string `yaml:"keywords"`
	UserAgent  string   `yaml:"user_agent"`

	// Script-app credentials are read from the named environment variables.
	// When client credentials are missing the fetcher falls back to public
	// subreddit feeds (read-only: no posting, no metrics refresh).
	ClientIDEnv     string `yaml:"client_id_env"`
	ClientSecretEnv string `yaml:"client_secret_env"`
	UsernameEnv     string `yaml:"username_env"`
	PasswordEnv     string `yaml:"password_env"`

	// Minimum seconds between successive API calls within a batch.
	RequestIntervalSeconds float64 `yaml:"request_interval_seconds"`
	FetchHoursBack         int     `yaml:"fetch_hours_back"`
}

type Completion struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
}

type Classifier struct {
	// "llm" or "keyword". Both satisfy the same contract; keyword mode
	// needs no completion provider.
	Mode string `yaml:"mode"`
}

type Compose struct {
	// A reply is only drafted when the classification is an opportunity,
	// confidence reaches MinConfidence, and priority reaches MinPriority.
	MinConfidence float64 `yaml:"min_confidence"`
	MinPriority   string  `yaml:"min_priority"`

	// Below this confidence a drafted reply is held for manual approval
	// instead of being auto-approved by the posting job.
	AutoApproveConfidence float64 `yaml:"auto_approve_confidence"`
}

type Monitor struct {
	IntervalHours          int `yaml:"interval_hours"`
	FollowUpScoreThreshold int `yaml:"follow_up_score_threshold"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Metrics struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for redditlead.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "redditlead")
}

// DataDir returns the XDG data directory for redditlead.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "redditlead")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/redditlead/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'redditlead init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Reddit: Reddit{
			Subreddits:             []string{"forhire", "slavelabour", "hiring"},
			Keywords:               []string{"looking for", "need help", "budget", "hire", "automation", "developer"},
			UserAgent:              "redditlead/1.0",
			ClientIDEnv:            "REDDIT_CLIENT_ID",
			ClientSecretEnv:        "REDDIT_CLIENT_SECRET",
			UsernameEnv:            "REDDIT_USERNAME",
			PasswordEnv:            "REDDIT_PASSWORD",
			RequestIntervalSeconds: 3,
			FetchHoursBack:         24,
		},
		Completion: Completion{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
		},
		Classifier: Classifier{Mode: "llm"},
		Compose: Compose{
			MinConfidence:         0.5,
			MinPriority:           "medium",
			AutoApproveConfidence: 0.8,
		},
		Monitor: Monitor{
			IntervalHours:          24,
			FollowUpScoreThreshold: 10,
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Compose.MinConfidence < 0 || cfg.Compose.MinConfidence > 1 {
		return nil, fmt.Errorf("compose.min_confidence must be in [0, 1], got %v", cfg.Compose.MinConfidence)
	}
	if cfg.Monitor.IntervalHours <= 0 {
		cfg.Monitor.IntervalHours = 24
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// RedditCredentials resolves the configured credential environment variables.
// All four must be set for authenticated API mode.
func (c *Config) RedditCredentials() (clientID, clientSecret, username, password string) {
	return os.Getenv(c.Reddit.ClientIDEnv),
		os.Getenv(c.Reddit.ClientSecretEnv),
		os.Getenv(c.Reddit.UsernameEnv),
		os.Getenv(c.Reddit.PasswordEnv)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
