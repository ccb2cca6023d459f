package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Validate checks that all required fields are set and values are valid.
// Credentials are not checked here; the pipeline fails pre-flight without one
// so read-only commands work unauthenticated.
func (c *Config) Validate() error {
	switch c.Upstream.Vendor {
	case VendorPolygon, VendorFinnhub:
	default:
		return fmt.Errorf("upstream.vendor must be %q or %q, got %q", VendorPolygon, VendorFinnhub, c.Upstream.Vendor)
	}
	if c.Upstream.RequestsPerSecond < 0 {
		return errors.New("upstream.requests_per_second must be >= 0")
	}

	if c.Backoff.MaxAttempts < 1 {
		return errors.New("backoff.max_attempts must be >= 1")
	}
	if c.Backoff.BaseDelay < 0 {
		return errors.New("backoff.base_delay must be >= 0")
	}
	if c.Backoff.MaxDelay < c.Backoff.BaseDelay {
		return errors.New("backoff.max_delay must be >= backoff.base_delay")
	}

	switch c.Universe.Source {
	case SourceVendor, SourceSP500:
	default:
		return fmt.Errorf("universe.source must be %q or %q, got %q", SourceVendor, SourceSP500, c.Universe.Source)
	}
	if c.Universe.PageSize < 1 {
		return errors.New("universe.page_size must be >= 1")
	}
	if c.Universe.MaxPages < 1 {
		return errors.New("universe.max_pages must be >= 1")
	}

	if c.Enrichment.Concurrency < 1 {
		return errors.New("enrichment.concurrency must be >= 1")
	}
	if c.Enrichment.MaxEnriched < 0 {
		return errors.New("enrichment.max_enriched must be >= 0")
	}

	if c.Ranking.TopN < 1 {
		return errors.New("ranking.top_n must be >= 1")
	}
	if c.Ranking.MinEntries < 0 || c.Ranking.MinEntries > c.Ranking.TopN {
		return errors.New("ranking.min_entries must be between 0 and ranking.top_n")
	}

	if c.Store.Dir == "" {
		return errors.New("store.dir is required")
	}

	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		return fmt.Errorf("pipeline.timezone: %w", err)
	}

	if c.Server.MoversTop < 1 {
		return errors.New("server.movers_top must be >= 1")
	}

	if _, _, err := c.Schedule.Clock(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

// Clock parses At as hour and minute.
func (s ScheduleConfig) Clock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.At)
	if err != nil {
		return 0, 0, fmt.Errorf("schedule.at must be HH:MM, got %q", s.At)
	}
	return t.Hour(), t.Minute(), nil
}
