package config

import "time"

// Vendors and universe sources.
const (
	VendorPolygon = "polygon"
	VendorFinnhub = "finnhub"

	SourceVendor = "vendor"
	SourceSP500  = "sp500"
)

// Default values for optional configuration fields.
const (
	DefaultVendor             = VendorPolygon
	DefaultPolygonURL         = "https://api.polygon.io"
	DefaultFinnhubURL         = "https://finnhub.io/api/v1"
	DefaultFinnhubExchange    = "US"
	DefaultWikipediaURL       = "https://en.wikipedia.org/w/api.php"
	DefaultUpstreamTimeout    = 30 * time.Second
	DefaultBreakerOpen        = 30 * time.Second
	DefaultMaxAttempts        = 6
	DefaultBaseDelay          = 800 * time.Millisecond
	DefaultMaxDelay           = 20 * time.Second
	DefaultUniverseSource     = SourceVendor
	DefaultPageSize           = 1000
	DefaultMaxPages           = 10
	DefaultPagePause          = 150 * time.Millisecond
	DefaultWikiPage           = "List_of_S&P_500_companies"
	DefaultConcurrency        = 6
	DefaultEnrichDelay        = 120 * time.Millisecond
	DefaultMaxEnriched        = 1500
	DefaultEnrichTimeout      = 2 * time.Minute
	DefaultTopN               = 500
	DefaultStoreDir           = "data/snapshots"
	DefaultPipelineTimeout    = 90 * time.Minute
	DefaultTimezone           = "America/New_York"
	DefaultServerAddr         = ":8080"
	DefaultMoversTop          = 10
	DefaultServerReadTimeout  = 10 * time.Second
	DefaultServerWriteTimeout = 30 * time.Second
	DefaultScheduleAt         = "16:05"
	DefaultLogLevel           = "info"
	DefaultLogFilePath        = "logs/top500.log"
	DefaultLogMaxSizeMB       = 100
	DefaultLogMaxBackups      = 5
	DefaultLogMaxAgeDays      = 30
)

func (c *Config) applyDefaults() {
	// Upstream defaults
	if c.Upstream.Vendor == "" {
		c.Upstream.Vendor = DefaultVendor
	}
	if c.Upstream.PolygonURL == "" {
		c.Upstream.PolygonURL = DefaultPolygonURL
	}
	if c.Upstream.FinnhubURL == "" {
		c.Upstream.FinnhubURL = DefaultFinnhubURL
	}
	if c.Upstream.FinnhubExchange == "" {
		c.Upstream.FinnhubExchange = DefaultFinnhubExchange
	}
	if c.Upstream.WikipediaURL == "" {
		c.Upstream.WikipediaURL = DefaultWikipediaURL
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if c.Upstream.Breaker.Failures > 0 && c.Upstream.Breaker.OpenTimeout == 0 {
		c.Upstream.Breaker.OpenTimeout = DefaultBreakerOpen
	}

	// Backoff defaults
	if c.Backoff.MaxAttempts == 0 {
		c.Backoff.MaxAttempts = DefaultMaxAttempts
	}
	if c.Backoff.BaseDelay == 0 {
		c.Backoff.BaseDelay = DefaultBaseDelay
	}
	if c.Backoff.MaxDelay == 0 {
		c.Backoff.MaxDelay = DefaultMaxDelay
	}

	// Universe defaults
	if c.Universe.Source == "" {
		c.Universe.Source = DefaultUniverseSource
	}
	if c.Universe.PageSize == 0 {
		c.Universe.PageSize = DefaultPageSize
	}
	if c.Universe.MaxPages == 0 {
		c.Universe.MaxPages = DefaultMaxPages
	}
	if c.Universe.PagePause == 0 {
		c.Universe.PagePause = DefaultPagePause
	}
	if c.Universe.WikiPage == "" {
		c.Universe.WikiPage = DefaultWikiPage
	}

	// Enrichment defaults
	if c.Enrichment.Concurrency == 0 {
		c.Enrichment.Concurrency = DefaultConcurrency
	}
	if c.Enrichment.Delay == 0 {
		c.Enrichment.Delay = DefaultEnrichDelay
	}
	if c.Enrichment.MaxEnriched == 0 {
		c.Enrichment.MaxEnriched = DefaultMaxEnriched
	}
	if c.Enrichment.Timeout == 0 {
		c.Enrichment.Timeout = DefaultEnrichTimeout
	}

	// Ranking defaults
	if c.Ranking.TopN == 0 {
		c.Ranking.TopN = DefaultTopN
	}
	if c.Ranking.MinEntries == 0 {
		c.Ranking.MinEntries = c.Ranking.TopN
	}

	// Store defaults
	if c.Store.Dir == "" {
		c.Store.Dir = DefaultStoreDir
	}

	// Pipeline defaults
	if c.Pipeline.Timeout == 0 {
		c.Pipeline.Timeout = DefaultPipelineTimeout
	}
	if c.Pipeline.Timezone == "" {
		c.Pipeline.Timezone = DefaultTimezone
	}

	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.MoversTop == 0 {
		c.Server.MoversTop = DefaultMoversTop
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultServerWriteTimeout
	}

	// Schedule defaults
	if c.Schedule.At == "" {
		c.Schedule.At = DefaultScheduleAt
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = DefaultTimezone
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.FilePath == "" {
		c.Log.FilePath = DefaultLogFilePath
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = DefaultLogMaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = DefaultLogMaxAgeDays
	}
}
