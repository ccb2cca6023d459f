package config

import "time"

// Config is the root configuration.
type Config struct {
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Backoff    BackoffConfig    `yaml:"backoff"`
	Universe   UniverseConfig   `yaml:"universe"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Store      StoreConfig      `yaml:"store"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Server     ServerConfig     `yaml:"server"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Log        LogConfig        `yaml:"log"`
}

// UpstreamConfig selects and configures the market data vendor.
type UpstreamConfig struct {
	Vendor            string        `yaml:"vendor"` // "polygon" or "finnhub"
	PolygonURL        string        `yaml:"polygon_url"`
	PolygonAPIKey     string        `yaml:"polygon_api_key"`
	FinnhubURL        string        `yaml:"finnhub_url"`
	FinnhubToken      string        `yaml:"finnhub_token"`
	FinnhubExchange   string        `yaml:"finnhub_exchange"`
	WikipediaURL      string        `yaml:"wikipedia_url"`
	Timeout           time.Duration `yaml:"timeout"`             // Per-request HTTP timeout
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 disables the limiter
	Burst             int           `yaml:"burst"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings. Failures 0 disables it.
type BreakerConfig struct {
	Failures    uint32        `yaml:"failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// BackoffConfig holds retry policy settings.
type BackoffConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      *bool         `yaml:"jitter"`
}

// JitterEnabled reports whether jitter is on (default true).
func (b BackoffConfig) JitterEnabled() bool {
	return b.Jitter == nil || *b.Jitter
}

// UniverseConfig holds paginated lister settings.
type UniverseConfig struct {
	Source    string        `yaml:"source"` // "vendor" or "sp500"
	PageSize  int           `yaml:"page_size"`
	MaxPages  int           `yaml:"max_pages"`
	PagePause time.Duration `yaml:"page_pause"`
	WikiPage  string        `yaml:"wiki_page"`
}

// EnrichmentConfig holds enrichment pool settings.
type EnrichmentConfig struct {
	Concurrency int           `yaml:"concurrency"`
	Delay       time.Duration `yaml:"delay"`
	MaxEnriched int           `yaml:"max_enriched"`
	Timeout     time.Duration `yaml:"timeout"` // Per-entry, including retries
}

// RankingConfig holds ranker settings.
type RankingConfig struct {
	TopN       int `yaml:"top_n"`
	MinEntries int `yaml:"min_entries"` // Acceptance threshold; defaults to TopN
}

// StoreConfig holds snapshot store settings.
type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// PipelineConfig holds run-level settings.
type PipelineConfig struct {
	Timeout  time.Duration `yaml:"timeout"`  // Global run timeout
	Timezone string        `yaml:"timezone"` // Zone used to derive the run date
}

// ServerConfig holds read API settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	MoversTop    int           `yaml:"movers_top"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ScheduleConfig holds daily trigger settings.
type ScheduleConfig struct {
	Enabled    *bool  `yaml:"enabled"`
	At         string `yaml:"at"` // HH:MM
	Timezone   string `yaml:"timezone"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// IsEnabled reports whether the scheduler runs under serve (default true).
func (s ScheduleConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	Console    bool   `yaml:"console"` // Human-readable output instead of JSON
	File       bool   `yaml:"file"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Credential returns the credential for the configured vendor.
func (c *Config) Credential() string {
	switch c.Upstream.Vendor {
	case VendorFinnhub:
		return c.Upstream.FinnhubToken
	default:
		return c.Upstream.PolygonAPIKey
	}
}

// CredentialEnv names the environment variable that supplies the vendor credential.
func (c *Config) CredentialEnv() string {
	switch c.Upstream.Vendor {
	case VendorFinnhub:
		return EnvFinnhubToken
	default:
		return EnvPolygonAPIKey
	}
}
