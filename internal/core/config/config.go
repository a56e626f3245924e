// Package config handles configuration loading and validation for sitefeed.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"

	"github.com/umerkhan95/sitefeed/internal/core/styles"
)

// Default endpoints.
const (
	DefaultGitHubAPIURL = "https://api.github.com"
	DefaultGEOAPIURL    = "https://aiseo-geo-api.fly.dev/api/v2"
	DefaultTokenEnv     = "GITHUB_TOKEN"
)

// Config holds the application configuration.
type Config struct {
	GitHub      GitHubConfig   `yaml:"github"`
	GEO         GEOConfig      `yaml:"geo"`
	Cache       CacheConfig    `yaml:"cache"`
	Database    DatabaseConfig `yaml:"database"`
	Theme       string         `yaml:"theme"`
	UpdateCheck *bool          `yaml:"update_check"`
	DataDir     string         `yaml:"-"` // set by caller, not from config file
}

// GitHubConfig controls the commit activity feed.
type GitHubConfig struct {
	Username          string   `yaml:"username"`
	Repos             []string `yaml:"repos"`   // owner/repo identifiers
	Exclude           []string `yaml:"exclude"` // doublestar patterns matched against repos
	LookbackMonths    int      `yaml:"lookback_months"`
	PerPage           int      `yaml:"per_page"`
	MaxPages          int      `yaml:"max_pages"`
	APIURL            string   `yaml:"api_url"`
	TokenEnv          string   `yaml:"token_env"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
}

// Token reads the GitHub token from the configured environment variable.
func (g GitHubConfig) Token() string {
	return os.Getenv(g.TokenEnv)
}

// GEOConfig controls the optimizer API client.
type GEOConfig struct {
	APIURL          string        `yaml:"api_url"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxPages        int           `yaml:"max_pages"`
	ShowcaseLimit   int           `yaml:"showcase_limit"`
	ShowcaseRefresh time.Duration `yaml:"showcase_refresh"`
}

// CacheConfig controls the SQLite response cache.
type CacheConfig struct {
	Disabled      bool          `yaml:"disabled"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// DatabaseConfig tunes the SQLite connection pool.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GitHub: GitHubConfig{
			Username: "umerkhan95",
			Repos: []string{
				"umerkhan95/Shopify-Employee-Agent",
				"umerkhan95/umerkhan.eu",
			},
			LookbackMonths:    120,
			PerPage:           100,
			MaxPages:          50,
			APIURL:            DefaultGitHubAPIURL,
			TokenEnv:          DefaultTokenEnv,
			RequestsPerSecond: 5,
		},
		GEO: GEOConfig{
			APIURL:          DefaultGEOAPIURL,
			PollInterval:    3 * time.Second,
			RequestTimeout:  2 * time.Minute,
			ShowcaseLimit:   20,
			ShowcaseRefresh: 30 * time.Second,
		},
		Cache: CacheConfig{
			TTL:           10 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			BusyTimeout:  5000,
		},
		Theme: styles.DefaultTheme,
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// UpdateCheckEnabled reports whether the release notice is enabled. Unset means enabled.
func (c *Config) UpdateCheckEnabled() bool {
	return c.UpdateCheck == nil || *c.UpdateCheck
}

// applyDefaults sets default values for any unset configuration options.
// An explicitly empty repos list is kept so the feed can be switched off.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.GitHub.LookbackMonths == 0 {
		c.GitHub.LookbackMonths = defaults.GitHub.LookbackMonths
	}
	if c.GitHub.PerPage == 0 {
		c.GitHub.PerPage = defaults.GitHub.PerPage
	}
	if c.GitHub.MaxPages == 0 {
		c.GitHub.MaxPages = defaults.GitHub.MaxPages
	}
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = defaults.GitHub.APIURL
	}
	if c.GitHub.TokenEnv == "" {
		c.GitHub.TokenEnv = defaults.GitHub.TokenEnv
	}
	if c.GitHub.RequestsPerSecond == 0 {
		c.GitHub.RequestsPerSecond = defaults.GitHub.RequestsPerSecond
	}

	if c.GEO.APIURL == "" {
		c.GEO.APIURL = defaults.GEO.APIURL
	}
	if c.GEO.PollInterval == 0 {
		c.GEO.PollInterval = defaults.GEO.PollInterval
	}
	if c.GEO.RequestTimeout == 0 {
		c.GEO.RequestTimeout = defaults.GEO.RequestTimeout
	}
	if c.GEO.ShowcaseLimit == 0 {
		c.GEO.ShowcaseLimit = defaults.GEO.ShowcaseLimit
	}
	if c.GEO.ShowcaseRefresh == 0 {
		c.GEO.ShowcaseRefresh = defaults.GEO.ShowcaseRefresh
	}

	if c.Cache.TTL == 0 {
		c.Cache.TTL = defaults.Cache.TTL
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = defaults.Cache.SweepInterval
	}

	if c.Theme == "" {
		c.Theme = defaults.Theme
	}

	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.DataDir == "" {
		errs = errs.Append("data_dir", fmt.Errorf("cannot be empty"))
	}

	if _, ok := styles.GetPalette(c.Theme); !ok {
		errs = errs.Append("theme", fmt.Errorf("unknown theme %q, available: %v", c.Theme, styles.ThemeNames()))
	}

	if c.GitHub.LookbackMonths < 1 {
		errs = errs.Append("github.lookback_months", fmt.Errorf("must be at least 1"))
	}
	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > 100 {
		errs = errs.Append("github.per_page", fmt.Errorf("must be between 1 and 100, got %d", c.GitHub.PerPage))
	}
	if c.GitHub.MaxPages < 1 {
		errs = errs.Append("github.max_pages", fmt.Errorf("must be at least 1"))
	}
	if c.GitHub.RequestsPerSecond < 0 {
		errs = errs.Append("github.requests_per_second", fmt.Errorf("cannot be negative"))
	}

	if c.GEO.PollInterval < 100*time.Millisecond {
		errs = errs.Append("geo.poll_interval", fmt.Errorf("must be at least 100ms, got %s", c.GEO.PollInterval))
	}
	if c.GEO.MaxPages < 0 {
		errs = errs.Append("geo.max_pages", fmt.Errorf("cannot be negative"))
	}
	if c.GEO.ShowcaseLimit < 1 {
		errs = errs.Append("geo.showcase_limit", fmt.Errorf("must be at least 1"))
	}
	if c.GEO.ShowcaseRefresh < time.Second {
		errs = errs.Append("geo.showcase_refresh", fmt.Errorf("must be at least 1s, got %s", c.GEO.ShowcaseRefresh))
	}

	if c.Cache.TTL < 0 {
		errs = errs.Append("cache.ttl", fmt.Errorf("cannot be negative"))
	}
	if c.Cache.SweepInterval <= 0 {
		errs = errs.Append("cache.sweep_interval", fmt.Errorf("must be positive"))
	}

	if c.Database.MaxOpenConns < 1 {
		errs = errs.Append("database.max_open_conns", fmt.Errorf("must be at least 1"))
	}
	if c.Database.MaxIdleConns < 0 {
		errs = errs.Append("database.max_idle_conns", fmt.Errorf("cannot be negative"))
	}
	if c.Database.BusyTimeout < 0 {
		errs = errs.Append("database.busy_timeout", fmt.Errorf("cannot be negative"))
	}

	return errs.ToError()
}
