package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rickgao/top500/internal/api"
	"github.com/rickgao/top500/internal/model"
	"github.com/rickgao/top500/internal/universe"
)

var (
	// ErrNoPrices means no grouped daily bars were found in the lookback window.
	ErrNoPrices = errors.New("no grouped daily prices found")

	// ErrNoPrice means the symbol had no close in the loaded price map.
	ErrNoPrice = errors.New("no price for symbol")

	// ErrNoShares means no usable shares-outstanding field was present.
	ErrNoShares = errors.New("no shares outstanding data")

	// ErrNoValuation means upstream returned no usable market capitalisation.
	ErrNoValuation = errors.New("no market capitalisation")
)

// DefaultPriceLookback is how many calendar days Prepare walks back.
const DefaultPriceLookback = 7

// sharesFields are tried in order inside results[0].financials.
var sharesFields = [][]string{
	{"income_statement", "weighted_average_shares_outstanding"},
	{"income_statement", "weightedAverageShsOut"},
	{"shares_outstanding"},
	{"share_class_shares_outstanding"},
}

// flatSharesFields are tried on results[0] itself when financials has nothing.
var flatSharesFields = [][]string{
	{"shares_outstanding"},
	{"share_class_shares_outstanding"},
}

// Polygon values securities from Polygon reference and aggregate data.
type Polygon struct {
	client   *api.Client
	logger   zerolog.Logger
	lookback int

	mu       sync.RWMutex
	prices   map[string]decimal.Decimal
	priceDay model.Date
}

// NewPolygon creates a Polygon source.
func NewPolygon(client *api.Client, logger zerolog.Logger) *Polygon {
	return &Polygon{
		client:   client,
		logger:   logger,
		lookback: DefaultPriceLookback,
	}
}

// Page implements universe.Pager over /v3/reference/tickers.
func (p *Polygon) Page(ctx context.Context, cursor string, pageSize int) (universe.Page, error) {
	resp, err := p.client.ListTickers(ctx, api.GetTickersOptions{
		Limit:  pageSize,
		Cursor: cursor,
	})
	if err != nil {
		return universe.Page{}, err
	}

	page := universe.Page{
		Records: make([]universe.Record, 0, len(resp.Results)),
		Next:    resp.NextURL,
	}
	for _, t := range resp.Results {
		page.Records = append(page.Records, universe.Record{ID: t.Ticker, Name: t.Name})
	}
	return page, nil
}

// Prepare loads closes for the most recent trading day before runDate.
// Weekends are skipped without a request; a weekday with no bars (a holiday)
// moves one day further back.
func (p *Polygon) Prepare(ctx context.Context, runDate model.Date) error {
	day := runDate.AddDays(-1)

	for tries := 0; tries < p.lookback; tries++ {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			day = day.AddDays(-1)
			continue
		}

		resp, err := p.client.GroupedDaily(ctx, day.String())
		if err != nil {
			return err
		}

		prices := make(map[string]decimal.Decimal, len(resp.Results))
		for _, r := range resp.Results {
			if r.Ticker == "" || r.Close == nil || math.IsNaN(*r.Close) || math.IsInf(*r.Close, 0) {
				continue
			}
			prices[r.Ticker] = decimal.NewFromFloat(*r.Close)
		}

		if len(prices) > 0 {
			p.mu.Lock()
			p.prices = prices
			p.priceDay = day
			p.mu.Unlock()

			p.logger.Info().
				Str("price_date", day.String()).
				Int("symbols", len(prices)).
				Msg("loaded grouped daily closes")
			return nil
		}

		p.logger.Debug().Str("date", day.String()).Msg("no grouped bars, trying previous day")
		day = day.AddDays(-1)
	}

	return fmt.Errorf("%w in the %d days before %s", ErrNoPrices, p.lookback, runDate)
}

// PriceDate returns the trading day loaded by Prepare.
func (p *Polygon) PriceDate() model.Date {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.priceDay
}

func (p *Polygon) price(symbol string) (decimal.Decimal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.prices[symbol]
	return v, ok
}

// Valuation implements enrich.Valuer: close × shares outstanding.
// Symbols without a close fail before any financials request is made.
func (p *Polygon) Valuation(ctx context.Context, entry model.UniverseEntry) (float64, error) {
	price, ok := p.price(entry.Symbol)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoPrice, entry.Symbol)
	}

	resp, err := p.client.Financials(ctx, entry.Symbol)
	if err != nil {
		return 0, err
	}

	shares, ok := sharesOutstanding(resp)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoShares, entry.Symbol)
	}

	return price.Mul(shares).InexactFloat64(), nil
}

// sharesOutstanding returns the first positive shares figure in resp.
func sharesOutstanding(resp *api.FinancialsResponse) (decimal.Decimal, bool) {
	if resp == nil || len(resp.Results) == 0 || resp.Results[0] == nil {
		return decimal.Zero, false
	}
	rec := resp.Results[0]

	fin, ok := rec["financials"].(map[string]any)
	if !ok {
		fin = rec
	}
	if v, ok := firstPositive(fin, sharesFields); ok {
		return v, true
	}
	return firstPositive(rec, flatSharesFields)
}

func firstPositive(m map[string]any, paths [][]string) (decimal.Decimal, bool) {
	for _, path := range paths {
		if v, ok := numberAt(m, path); ok && v.IsPositive() {
			return v, true
		}
	}
	return decimal.Zero, false
}

// numberAt walks path through nested objects. A leaf may be a number, a
// numeric string, or an object carrying the number under "value".
func numberAt(m map[string]any, path []string) (decimal.Decimal, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return decimal.Zero, false
		}
		cur, ok = obj[key]
		if !ok {
			return decimal.Zero, false
		}
	}
	if obj, ok := cur.(map[string]any); ok {
		cur = obj["value"]
	}
	return toDecimal(cur)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}
