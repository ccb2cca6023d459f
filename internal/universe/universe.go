package universe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rickgao/top500/internal/backoff"
	"github.com/rickgao/top500/internal/model"
)

// ErrEmptyUniverse is returned when no page produced a usable record.
var ErrEmptyUniverse = errors.New("empty universe")

// Record is one raw upstream record.
type Record struct {
	ID   string
	Name string
}

// Page is one upstream response. Next is the opaque cursor for the
// following page; empty means upstream has no further page.
type Page struct {
	Records []Record
	Next    string
}

// Pager fetches a single page. An empty cursor requests the first page.
// Implementations route their network calls through the backoff executor.
type Pager interface {
	Page(ctx context.Context, cursor string, pageSize int) (Page, error)
}

// PagerFunc is a function adapter for Pager.
type PagerFunc func(ctx context.Context, cursor string, pageSize int) (Page, error)

func (f PagerFunc) Page(ctx context.Context, cursor string, pageSize int) (Page, error) {
	return f(ctx, cursor, pageSize)
}

// Options controls pagination.
type Options struct {
	PageSize  int           // Records requested per page (default: 1000)
	MaxPages  int           // Safety bound against runaway pagination (default: 60)
	PagePause time.Duration // Pause between page requests (default: 250ms)
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		PageSize:  1000,
		MaxPages:  60,
		PagePause: 250 * time.Millisecond,
	}
}

// Lister walks a paginated endpoint.
type Lister struct {
	opts   Options
	logger zerolog.Logger
	onPage func(records int)
}

// ListerOption configures a Lister.
type ListerOption func(*Lister)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ListerOption {
	return func(l *Lister) {
		l.logger = logger
	}
}

// WithPageHook registers a callback invoked after every fetched page.
func WithPageHook(fn func(records int)) ListerOption {
	return func(l *Lister) {
		l.onPage = fn
	}
}

// NewLister creates a Lister.
func NewLister(opts Options, lopts ...ListerOption) *Lister {
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	l := &Lister{
		opts:   opts,
		logger: zerolog.Nop(),
	}
	for _, o := range lopts {
		o(l)
	}
	return l
}

// List walks pager and returns the raw universe.
func (l *Lister) List(ctx context.Context, pager Pager) ([]model.UniverseEntry, error) {
	start := time.Now()
	var entries []model.UniverseEntry
	cursor := ""
	pages := 0

	for pages < l.opts.MaxPages {
		if pages > 0 {
			if err := backoff.Sleep(ctx, l.opts.PagePause); err != nil {
				return nil, fmt.Errorf("list universe page %d: %w", pages+1, err)
			}
		}

		page, err := pager.Page(ctx, cursor, l.opts.PageSize)
		if err != nil {
			return nil, fmt.Errorf("list universe page %d: %w", pages+1, err)
		}
		pages++

		for _, r := range page.Records {
			id := strings.TrimSpace(r.ID)
			if id == "" {
				continue
			}
			name := strings.TrimSpace(r.Name)
			if name == "" {
				name = id
			}
			entries = append(entries, model.UniverseEntry{Symbol: id, DisplayName: name})
		}

		if l.onPage != nil {
			l.onPage(len(page.Records))
		}
		l.logger.Debug().
			Int("page", pages).
			Int("records", len(page.Records)).
			Int("total", len(entries)).
			Msg("fetched universe page")

		cursor = page.Next
		if cursor == "" {
			break
		}
	}

	if cursor != "" {
		l.logger.Warn().Int("max_pages", l.opts.MaxPages).Msg("stopped at page limit with cursor remaining")
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w after %d pages", ErrEmptyUniverse, pages)
	}

	l.logger.Info().
		Int("pages", pages).
		Int("entries", len(entries)).
		Dur("duration", time.Since(start)).
		Msg("universe listed")

	return entries, nil
}

// List is a convenience wrapper around NewLister(opts).List.
func List(ctx context.Context, pager Pager, opts Options) ([]model.UniverseEntry, error) {
	return NewLister(opts).List(ctx, pager)
}
