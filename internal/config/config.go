// Package config provides configuration loading for sited.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the sited daemon and its services.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	Cache     CacheConfig     `koanf:"cache"`
	Quiz      QuizConfig      `koanf:"quiz"`
	Dex       DexConfig       `koanf:"dex"`
	Images    ImagesConfig    `koanf:"images"`
	NATS      NATSConfig      `koanf:"nats"`
	Syndicate SyndicateConfig `koanf:"syndicate"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DatabaseConfig holds the SQLite document store settings.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// AuthConfig holds the API bearer token.
//
// When the token is unset the /api/v1 group is open; intended only for
// local development.
type AuthConfig struct {
	Token Secret `koanf:"token"`
}

// CacheConfig holds TTL cache settings shared by the dex client and
// stats endpoints.
type CacheConfig struct {
	TTL        Duration `koanf:"ttl"`
	MaxEntries int      `koanf:"max_entries"`
}

// QuizConfig holds spaced-repetition settings.
type QuizConfig struct {
	// IntervalDays is the review ladder in days. An "understood" answer
	// advances one rung; "not understood" resets to the first rung.
	IntervalDays []int `koanf:"interval_days"`
}

// DexConfig holds the upstream dex API settings.
type DexConfig struct {
	BaseURL        string   `koanf:"base_url"`
	CacheTTL       Duration `koanf:"cache_ttl"`
	RequestsPerSec float64  `koanf:"requests_per_sec"`
	Timeout        Duration `koanf:"timeout"`
}

// ImagesConfig holds image storage settings.
type ImagesConfig struct {
	Root     string `koanf:"root"`
	MaxBytes int64  `koanf:"max_bytes"`
}

// NATSConfig holds event bus settings.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

// SyndicateConfig holds the content syndication pipeline settings.
type SyndicateConfig struct {
	Enabled     bool     `koanf:"enabled"`
	Interval    Duration `koanf:"interval"`
	ContentDir  string   `koanf:"content_dir"`
	NotesToken  Secret   `koanf:"notes_token"`
	NotesAPIURL string   `koanf:"notes_api_url"`
	QiitaToken  Secret   `koanf:"qiita_token"`
	QiitaAPIURL string   `koanf:"qiita_api_url"`
	SocialToken Secret   `koanf:"social_token"`
	SocialAPIURL string  `koanf:"social_api_url"`

	// Zenn publishing: a local git clone of the article repository.
	ZennRepoPath string `koanf:"zenn_repo_path"`
	ZennGitRemote string `koanf:"zenn_git_remote"`
	ZennBranch   string `koanf:"zenn_branch"`

	// Review mode: push a branch and open a GitHub pull request instead of
	// committing to the default branch directly.
	ReviewMode  bool   `koanf:"review_mode"`
	GitHubToken Secret `koanf:"github_token"`
	GitHubOwner string `koanf:"github_owner"`
	GitHubRepo  string `koanf:"github_repo"`

	RequestsPerSec float64 `koanf:"requests_per_sec"`
	SiteBaseURL    string  `koanf:"site_base_url"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Cache.TTL.Duration() <= 0 {
		return fmt.Errorf("cache.ttl must be > 0")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be > 0")
	}
	if len(c.Quiz.IntervalDays) == 0 {
		return fmt.Errorf("quiz.interval_days must not be empty")
	}
	for i, d := range c.Quiz.IntervalDays {
		if d <= 0 {
			return fmt.Errorf("quiz.interval_days[%d] must be > 0, got %d", i, d)
		}
		if i > 0 && d <= c.Quiz.IntervalDays[i-1] {
			return fmt.Errorf("quiz.interval_days must be strictly increasing")
		}
	}
	if c.Dex.RequestsPerSec <= 0 {
		return fmt.Errorf("dex.requests_per_sec must be > 0")
	}
	if c.Images.MaxBytes <= 0 {
		return fmt.Errorf("images.max_bytes must be > 0")
	}
	if c.Syndicate.Enabled {
		if c.Syndicate.Interval.Duration() <= 0 {
			return fmt.Errorf("syndicate.interval must be > 0 when syndication is enabled")
		}
		if c.Syndicate.ContentDir == "" {
			return fmt.Errorf("syndicate.content_dir is required when syndication is enabled")
		}
		if c.Syndicate.ReviewMode {
			if !c.Syndicate.GitHubToken.IsSet() {
				return fmt.Errorf("syndicate.github_token is required in review mode")
			}
			if c.Syndicate.GitHubOwner == "" || c.Syndicate.GitHubRepo == "" {
				return fmt.Errorf("syndicate.github_owner and syndicate.github_repo are required in review mode")
			}
		}
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8700
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "~/.config/sited/sited.db"
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = Duration(5 * time.Minute)
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 256
	}

	if len(cfg.Quiz.IntervalDays) == 0 {
		cfg.Quiz.IntervalDays = []int{1, 3, 7, 14, 30, 60}
	}

	if cfg.Dex.BaseURL == "" {
		cfg.Dex.BaseURL = "https://pokeapi.co/api/v2"
	}
	if cfg.Dex.CacheTTL == 0 {
		cfg.Dex.CacheTTL = Duration(24 * time.Hour)
	}
	if cfg.Dex.RequestsPerSec == 0 {
		cfg.Dex.RequestsPerSec = 2
	}
	if cfg.Dex.Timeout == 0 {
		cfg.Dex.Timeout = Duration(10 * time.Second)
	}

	if cfg.Images.Root == "" {
		cfg.Images.Root = "~/.config/sited/images"
	}
	if cfg.Images.MaxBytes == 0 {
		cfg.Images.MaxBytes = 10 << 20
	}

	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}

	if cfg.Syndicate.Interval == 0 {
		cfg.Syndicate.Interval = Duration(6 * time.Hour)
	}
	if cfg.Syndicate.NotesAPIURL == "" {
		cfg.Syndicate.NotesAPIURL = "https://api.notion.com/v1"
	}
	if cfg.Syndicate.QiitaAPIURL == "" {
		cfg.Syndicate.QiitaAPIURL = "https://qiita.com/api/v2"
	}
	if cfg.Syndicate.ZennBranch == "" {
		cfg.Syndicate.ZennBranch = "main"
	}
	if cfg.Syndicate.ZennGitRemote == "" {
		cfg.Syndicate.ZennGitRemote = "origin"
	}
	if cfg.Syndicate.RequestsPerSec == 0 {
		cfg.Syndicate.RequestsPerSec = 1
	}
}
