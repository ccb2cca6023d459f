package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/pretty"

	"github.com/rickgao/top500/internal/model"
)

var (
	// ErrStoreUnavailable wraps any I/O or decode failure of the store.
	ErrStoreUnavailable = errors.New("snapshot store unavailable")

	// ErrNoSnapshot means nothing has been persisted yet.
	ErrNoSnapshot = errors.New("no snapshot yet")
)

const fileExt = ".json"

// Store persists snapshots as dated files in a directory.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// NewStore creates a Store rooted at dir. The directory is created on first write.
func NewStore(dir string, logger zerolog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(date model.Date) string {
	return filepath.Join(s.dir, date.String()+fileExt)
}

// Write persists entries as the snapshot for date, replacing any existing one.
func (s *Store) Write(ctx context.Context, date model.Date, entries []model.RankedEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entries == nil {
		entries = []model.RankedEntry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: marshal snapshot %s: %v", ErrStoreUnavailable, date, err)
	}
	data = pretty.Pretty(data)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrStoreUnavailable, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+date.String()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrStoreUnavailable, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write snapshot %s: %v", ErrStoreUnavailable, date, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync snapshot %s: %v", ErrStoreUnavailable, date, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close snapshot %s: %v", ErrStoreUnavailable, date, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("%w: chmod snapshot %s: %v", ErrStoreUnavailable, date, err)
	}

	final := s.path(date)
	if err := os.Rename(tmpPath, final); err != nil {
		return fmt.Errorf("%w: finalize snapshot %s: %v", ErrStoreUnavailable, date, err)
	}

	s.logger.Info().
		Str("date", date.String()).
		Int("entries", len(entries)).
		Str("path", final).
		Msg("snapshot written")

	return nil
}

// Dates lists persisted snapshot dates in ascending order.
// A missing directory means no snapshots, not an error.
func (s *Store) Dates(ctx context.Context) ([]model.Date, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %v", ErrStoreUnavailable, s.dir, err)
	}

	var names []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(names)

	dates := make([]model.Date, 0, len(names))
	for _, n := range names {
		d, err := model.ParseDate(n)
		if err != nil {
			s.logger.Debug().Str("file", n+fileExt).Msg("ignoring non-snapshot file")
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// Read loads the snapshot for date. ErrNoSnapshot when it does not exist.
func (s *Store) Read(ctx context.Context, date model.Date) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(date))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w for %s", ErrNoSnapshot, date)
		}
		return nil, fmt.Errorf("%w: read snapshot %s: %v", ErrStoreUnavailable, date, err)
	}

	var entries []model.RankedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot %s: %v", ErrStoreUnavailable, date, err)
	}
	if entries == nil {
		entries = []model.RankedEntry{}
	}

	return &model.Snapshot{Date: date, Entries: entries}, nil
}

// Latest returns the most recent snapshot, or ErrNoSnapshot.
func (s *Store) Latest(ctx context.Context) (*model.Snapshot, error) {
	_, latest, err := s.ReadLatestTwo(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrNoSnapshot
	}
	return latest, nil
}

// ReadLatestTwo returns the previous and latest snapshots. Either is nil
// when fewer snapshots exist; that is a normal state, not an error.
func (s *Store) ReadLatestTwo(ctx context.Context) (prev, latest *model.Snapshot, err error) {
	dates, err := s.Dates(ctx)
	if err != nil {
		return nil, nil, err
	}

	switch n := len(dates); {
	case n == 0:
		return nil, nil, nil
	case n == 1:
		latest, err = s.Read(ctx, dates[0])
		return nil, latest, err
	default:
		latest, err = s.Read(ctx, dates[n-1])
		if err != nil {
			return nil, nil, err
		}
		prev, err = s.Read(ctx, dates[n-2])
		if err != nil {
			return nil, nil, err
		}
		return prev, latest, nil
	}
}
