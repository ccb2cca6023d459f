package source

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rickgao/top500/internal/api"
	"github.com/rickgao/top500/internal/model"
	"github.com/rickgao/top500/internal/universe"
)

// DefaultFinnhubExchange is the exchange code listed by Finnhub.
const DefaultFinnhubExchange = "US"

var million = decimal.NewFromInt(1_000_000)

// Finnhub values securities from Finnhub company profiles.
type Finnhub struct {
	client   *api.Client
	logger   zerolog.Logger
	exchange string
}

// NewFinnhub creates a Finnhub source for exchange (default "US").
func NewFinnhub(client *api.Client, exchange string, logger zerolog.Logger) *Finnhub {
	if exchange == "" {
		exchange = DefaultFinnhubExchange
	}
	return &Finnhub{client: client, logger: logger, exchange: exchange}
}

// Page implements universe.Pager. Finnhub lists the whole exchange in one
// response, so the cursor is ignored and no next page is reported.
func (f *Finnhub) Page(ctx context.Context, cursor string, pageSize int) (universe.Page, error) {
	symbols, err := f.client.StockSymbols(ctx, f.exchange)
	if err != nil {
		return universe.Page{}, err
	}

	page := universe.Page{Records: make([]universe.Record, 0, len(symbols))}
	for _, s := range symbols {
		page.Records = append(page.Records, universe.Record{ID: s.Symbol, Name: s.Description})
	}
	return page, nil
}

// Prepare is a no-op; profiles carry market capitalisation directly.
func (f *Finnhub) Prepare(ctx context.Context, runDate model.Date) error {
	return nil
}

// Valuation implements enrich.Valuer. Finnhub reports capitalisation in millions.
func (f *Finnhub) Valuation(ctx context.Context, entry model.UniverseEntry) (float64, error) {
	profile, err := f.client.CompanyProfile(ctx, entry.Symbol)
	if err != nil {
		return 0, err
	}

	mc := profile.MarketCapitalization
	if mc == nil || math.IsNaN(*mc) || math.IsInf(*mc, 0) || *mc <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoValuation, entry.Symbol)
	}

	return decimal.NewFromFloat(*mc).Mul(million).InexactFloat64(), nil
}
