package api

// -----------------------------------------------------------------------------
// Polygon
// -----------------------------------------------------------------------------

// TickersResponse from GET /v3/reference/tickers
type TickersResponse struct {
	Results []APITicker `json:"results"`
	Status  string      `json:"status"`
	Count   int         `json:"count"`
	NextURL string      `json:"next_url"`
}

// APITicker is one reference ticker record.
type APITicker struct {
	Ticker          string `json:"ticker"`
	Name            string `json:"name"`
	Market          string `json:"market"`
	Locale          string `json:"locale"`
	PrimaryExchange string `json:"primary_exchange"`
	Type            string `json:"type"`
	Active          bool   `json:"active"`
}

// GroupedDailyResponse from GET /v2/aggs/grouped/locale/us/market/stocks/{date}
type GroupedDailyResponse struct {
	Status       string     `json:"status"`
	ResultsCount int        `json:"resultsCount"`
	Results      []APIDaily `json:"results"`
}

// APIDaily is one ticker's daily bar.
type APIDaily struct {
	Ticker string   `json:"T"`
	Close  *float64 `json:"c"`
	Open   *float64 `json:"o"`
	Volume *float64 `json:"v"`
}

// FinancialsResponse from GET /vX/reference/financials.
// Fields vary by plan and API revision, so records stay untyped.
type FinancialsResponse struct {
	Status  string           `json:"status"`
	Results []map[string]any `json:"results"`
}

// -----------------------------------------------------------------------------
// Finnhub
// -----------------------------------------------------------------------------

// FinnhubSymbol from GET /stock/symbol
type FinnhubSymbol struct {
	Symbol        string `json:"symbol"`
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol"`
	Type          string `json:"type"`
	Currency      string `json:"currency"`
}

// FinnhubProfile from GET /stock/profile2. MarketCapitalization is in millions.
type FinnhubProfile struct {
	Ticker               string   `json:"ticker"`
	Name                 string   `json:"name"`
	Exchange             string   `json:"exchange"`
	MarketCapitalization *float64 `json:"marketCapitalization"`
	ShareOutstanding     *float64 `json:"shareOutstanding"`
}

// -----------------------------------------------------------------------------
// MediaWiki
// -----------------------------------------------------------------------------

// ParseResponse from the MediaWiki action=parse API (formatversion=2).
type ParseResponse struct {
	Parse struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"parse"`
}

// GetTickersOptions configures a ListTickers request.
type GetTickersOptions struct {
	Limit  int
	Cursor string // Opaque next_url from the previous page
	Market string
	Locale string
}
