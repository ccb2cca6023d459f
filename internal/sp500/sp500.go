// Package sp500 lists S&P 500 constituents from the Wikipedia constituents table.
package sp500

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rickgao/top500/internal/universe"
)

// DefaultPage is the Wikipedia page holding the constituents table.
const DefaultPage = "List_of_S&P_500_companies"

// ErrNoTable means the page had no recognisable constituents table.
var ErrNoTable = errors.New("constituents table not found")

var footnote = regexp.MustCompile(`\[\d+\]`)

// PageFetcher returns the rendered HTML of a wiki page. *api.Client satisfies it.
type PageFetcher interface {
	ParsePage(ctx context.Context, page string) (string, error)
}

// Constituent is one row of the constituents table.
type Constituent struct {
	Symbol       string `json:"symbol"`
	Security     string `json:"security"`
	Sector       string `json:"sector"`
	SubIndustry  string `json:"subIndustry"`
	Headquarters string `json:"headquarters"`
	DateAdded    string `json:"dateAdded,omitempty"`
	CIK          string `json:"cik,omitempty"`
	Founded      string `json:"founded,omitempty"`
}

// Source is a single-page universe.Pager over the constituents table.
type Source struct {
	fetcher PageFetcher
	page    string
}

// New creates a Source reading page (default DefaultPage).
func New(fetcher PageFetcher, page string) *Source {
	if page == "" {
		page = DefaultPage
	}
	return &Source{fetcher: fetcher, page: page}
}

// Page implements universe.Pager. The table is one page; no cursor is returned.
func (s *Source) Page(ctx context.Context, cursor string, pageSize int) (universe.Page, error) {
	rows, err := s.Constituents(ctx)
	if err != nil {
		return universe.Page{}, err
	}

	page := universe.Page{Records: make([]universe.Record, 0, len(rows))}
	for _, r := range rows {
		page.Records = append(page.Records, universe.Record{ID: r.Symbol, Name: r.Security})
	}
	return page, nil
}

// Constituents fetches and parses the constituents table.
func (s *Source) Constituents(ctx context.Context) ([]Constituent, error) {
	html, err := s.fetcher.ParsePage(ctx, s.page)
	if err != nil {
		return nil, err
	}
	return Parse(html)
}

// Lister returns the current constituents. *Source and *Cache satisfy it.
type Lister interface {
	Constituents(ctx context.Context) ([]Constituent, error)
}

// Cache serves constituents from memory, refetching after TTL.
// A failed refresh keeps serving the previous list when one exists.
type Cache struct {
	src Lister
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	rows    []Constituent
	fetched time.Time
}

// NewCache wraps src. ttl <= 0 means DefaultCacheTTL.
func NewCache(src Lister, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{src: src, ttl: ttl, now: time.Now}
}

// DefaultCacheTTL is how long a fetched table is served before refetching.
const DefaultCacheTTL = 6 * time.Hour

// Constituents implements Lister.
func (c *Cache) Constituents(ctx context.Context) ([]Constituent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rows != nil && c.now().Sub(c.fetched) < c.ttl {
		return c.rows, nil
	}

	rows, err := c.src.Constituents(ctx)
	if err != nil {
		if c.rows != nil {
			return c.rows, nil
		}
		return nil, err
	}
	if rows == nil {
		rows = []Constituent{}
	}
	c.rows, c.fetched = rows, c.now()
	return rows, nil
}

// Parse extracts constituents from rendered page HTML. It prefers the
// #constituents table and falls back to the first .wikitable.
func Parse(html string) ([]Constituent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("#constituents").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil, ErrNoTable
	}

	var out []Constituent
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		td := tr.Find("td")
		if td.Length() < 2 {
			return // header row
		}

		cell := func(i int) string {
			return clean(td.Eq(i).Text())
		}

		c := Constituent{
			Symbol:       cell(0),
			Security:     cell(1),
			Sector:       cell(3),
			SubIndustry:  cell(4),
			Headquarters: cell(5),
			DateAdded:    cell(6),
			CIK:          cell(7),
			Founded:      cell(8),
		}
		if c.Symbol == "" || c.Security == "" {
			return
		}
		out = append(out, c)
	})

	return out, nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(footnote.ReplaceAllString(s, "")), " ")
}
