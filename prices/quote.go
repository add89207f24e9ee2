// Package prices looks up current market prices with a short-lived cache,
// suppression of recently failed lookups and a last-known-good fallback.
package prices

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoPrice is returned by providers when the instrument has no usable price.
	ErrNoPrice = errors.New("no price available")
	// ErrQuotaExceeded is returned when the daily call budget of the provider is spent.
	ErrQuotaExceeded = errors.New("daily quota exceeded")
)

// Quote is the latest known market price of a ticker.
// A stale quote always carries the time it was captured in AsOf.
type Quote struct {
	Ticker   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Stale    bool            `json:"stale,omitempty"`
	AsOf     time.Time       `json:"asOf"`
	Source   string          `json:"source,omitempty"`
}

// Instrument identifies a listed security by its symbol and optional exchange code.
type Instrument struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange,omitempty"`
}

// Provider fetches quotes from an upstream source.
type Provider interface {
	// Name tags the quotes of this provider.
	Name() string
	// Ticker returns the provider specific form of symbol listed on exchange.
	Ticker(symbol, exchange string) string
	// Fetch returns the current quote of ticker. Prices may be expressed in minor units.
	Fetch(ctx context.Context, ticker string) (Quote, error)
}

// Store persists last-known-good quotes keyed by ticker.
type Store interface {
	LastPrices() map[string]Quote
	// SaveLastPrices merges quotes into the stored ones. It may be called concurrently.
	SaveLastPrices(quotes map[string]Quote) error
}

// minorUnits maps minor currency codes used by exchanges to their major currency.
var minorUnits = map[string]string{
	"GBp": "GBP",
	"GBX": "GBP",
	"ZAc": "ZAR",
	"ZAC": "ZAR",
	"ILA": "ILS",
}

var hundred = decimal.NewFromInt(100)

// normalize converts a quote expressed in a minor currency unit into the major unit.
func normalize(q Quote) Quote {
	if major, ok := minorUnits[q.Currency]; ok {
		q.Price = q.Price.Div(hundred)
		q.Currency = major
	}
	return q
}
