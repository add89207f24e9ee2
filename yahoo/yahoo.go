// Package yahoo implements a prices.Provider backed by the Yahoo Finance chart endpoint.
package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/stocktracker/prices"
	"github.com/etnz/stocktracker/webget"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public chart endpoint.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// suffixes maps exchange codes to the Yahoo ticker suffix. US exchanges have none.
var suffixes = map[string]string{
	"LSE":      ".L",
	"TSX":      ".TO",
	"XETRA":    ".DE",
	"EURONEXT": ".PA",
	"ASX":      ".AX",
	"HKEX":     ".HK",
	"JPX":      ".T",
	"NYSE":     "",
	"NASDAQ":   "",
}

// Client fetches quotes from Yahoo Finance.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

var _ prices.Provider = (*Client)(nil)

// New returns a Client for baseURL, or the public endpoint if baseURL is empty.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: webget.NewClient()}
}

func (c *Client) Name() string { return "yahoo" }

// Ticker appends the exchange suffix to symbol unless it already carries one.
func (c *Client) Ticker(symbol, exchange string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + suffixes[strings.ToUpper(exchange)]
}

// get extracts a single value at path from a decoded json document.
func get(path string, jobj any) (any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %w", path, err)
	}
	// jsonpath may return a list of one answer or the answer itself.
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return nil, fmt.Errorf("error parsing %q: no value", path)
		}
		jval = jlist[0]
	}
	return jval, nil
}

// Fetch returns the regular market price of ticker in the currency reported by Yahoo,
// which can be a minor unit (GBp for London listings).
//
//	{"chart":{"result":[{"meta":{"currency":"USD","symbol":"AAPL","regularMarketPrice":185.5,"regularMarketTime":1705352400}}],"error":null}}
func (c *Client) Fetch(ctx context.Context, ticker string) (prices.Quote, error) {
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.BaseURL, url.PathEscape(ticker))
	var jobj any
	if err := webget.JSON(ctx, c.HTTP, addr, &jobj); err != nil {
		return prices.Quote{}, fmt.Errorf("error retrieving %q: %w", ticker, err)
	}

	if msg, err := get("$.chart.error.description", jobj); err == nil && msg != nil {
		return prices.Quote{}, fmt.Errorf("%w for %q: %v", prices.ErrNoPrice, ticker, msg)
	}

	jval, err := get("$.chart.result[0].meta.regularMarketPrice", jobj)
	if err != nil {
		return prices.Quote{}, fmt.Errorf("%w for %q: %w", prices.ErrNoPrice, ticker, err)
	}
	price, ok := jval.(float64)
	if !ok {
		return prices.Quote{}, fmt.Errorf("%w for %q: price is not a number: %v", prices.ErrNoPrice, ticker, jval)
	}
	q := prices.Quote{Ticker: ticker, Price: decimal.NewFromFloat(price)}

	if cur, err := get("$.chart.result[0].meta.currency", jobj); err == nil {
		q.Currency, _ = cur.(string)
	}
	if q.Currency == "" {
		return prices.Quote{}, fmt.Errorf("%w for %q: missing currency", prices.ErrNoPrice, ticker)
	}
	if ts, err := get("$.chart.result[0].meta.regularMarketTime", jobj); err == nil {
		if sec, ok := ts.(float64); ok && sec > 0 {
			q.AsOf = time.Unix(int64(sec), 0).UTC()
		}
	}
	return q, nil
}
