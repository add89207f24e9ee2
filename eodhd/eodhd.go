// Package eodhd implements a prices.Provider backed by the EOD Historical Data real-time API.
package eodhd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/etnz/stocktracker/prices"
	"github.com/etnz/stocktracker/webget"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://eodhd.com/api"

// exchanges maps exchange codes to EODHD exchange codes. Empty means US.
var exchanges = map[string]string{
	"":         "US",
	"NYSE":     "US",
	"NASDAQ":   "US",
	"LSE":      "LSE",
	"TSX":      "TO",
	"XETRA":    "XETRA",
	"EURONEXT": "PA",
	"ASX":      "AU",
	"HKEX":     "HK",
	"JPX":      "TSE",
}

// currencies maps EODHD exchange codes to the currency quotes are expressed in.
// London quotes are in pence.
var currencies = map[string]string{
	"US":    "USD",
	"LSE":   "GBX",
	"TO":    "CAD",
	"XETRA": "EUR",
	"PA":    "EUR",
	"AU":    "AUD",
	"HK":    "HKD",
	"TSE":   "JPY",
}

// Client fetches quotes from EODHD.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

var _ prices.Provider = (*Client)(nil)

// New returns a Client using apiKey, or the EODHD_API_KEY environment variable if apiKey is empty.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if apiKey == "" {
		apiKey = os.Getenv("EODHD_API_KEY")
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, HTTP: webget.NewClient()}
}

func (c *Client) Name() string { return "eodhd" }

// Ticker returns SYMBOL.EXCHANGE as expected by EODHD.
func (c *Client) Ticker(symbol, exchange string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(symbol, ".") {
		return symbol
	}
	code, ok := exchanges[strings.ToUpper(exchange)]
	if !ok {
		code = "US"
	}
	return symbol + "." + code
}

// realtime is the payload of the real-time endpoint. Missing values are reported as "NA".
//
//	{"code":"AAPL.US","timestamp":1705352400,"gmtoffset":0,"open":182.16,"close":185.5,"previousClose":183.63}
type realtime struct {
	Code      string `json:"code"`
	Timestamp any    `json:"timestamp"`
	Close     any    `json:"close"`
}

// Fetch returns the latest price of ticker in the currency of its exchange.
func (c *Client) Fetch(ctx context.Context, ticker string) (prices.Quote, error) {
	if c.APIKey == "" {
		return prices.Quote{}, fmt.Errorf("eodhd: missing API key, set EODHD_API_KEY")
	}
	addr := fmt.Sprintf("%s/real-time/%s?fmt=json&api_token=%s", c.BaseURL, url.PathEscape(ticker), url.QueryEscape(c.APIKey))
	var content realtime
	if err := webget.JSON(ctx, c.HTTP, addr, &content); err != nil {
		return prices.Quote{}, fmt.Errorf("error retrieving %q: %w", ticker, err)
	}
	price, ok := content.Close.(float64)
	if !ok {
		return prices.Quote{}, fmt.Errorf("%w for %q: close is %v", prices.ErrNoPrice, ticker, content.Close)
	}
	_, code, _ := strings.Cut(ticker, ".")
	cur, ok := currencies[code]
	if !ok {
		return prices.Quote{}, fmt.Errorf("%w for %q: unknown currency of exchange %q", prices.ErrNoPrice, ticker, code)
	}
	q := prices.Quote{Ticker: ticker, Price: decimal.NewFromFloat(price), Currency: cur}
	if sec, ok := content.Timestamp.(float64); ok && sec > 0 {
		q.AsOf = time.Unix(int64(sec), 0).UTC()
	}
	return q, nil
}
