// Package fx provides live and historical exchange rates with caching and nearest-date fallback.
//
// All rates are stored against a single pivot currency (USD) and cross rates are
// derived as rate[to]/rate[from], so one snapshot per date serves every currency pair.
package fx

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/etnz/stocktracker/date"
	"github.com/shopspring/decimal"
)

// Pivot is the currency all snapshot rates are expressed against.
const Pivot = "USD"

// DefaultCurrencies is the set of currencies kept from provider responses.
var DefaultCurrencies = []string{"CAD", "GBP", "USD", "EUR", "AUD", "CHF"}

var (
	// ErrNoRates is returned when no rates could be fetched nor found in the store.
	ErrNoRates = errors.New("no exchange rates available")
	// ErrUnknownCurrency is returned when a snapshot has no rate for a currency.
	ErrUnknownCurrency = errors.New("unknown currency")
)

// Snapshot is a set of exchange rates against Base for one calendar date.
type Snapshot struct {
	Base      string                     `json:"base"`
	Date      date.Date                  `json:"date"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"timestamp"`
}

// Rate returns the cross rate to convert an amount in from into to.
func (s *Snapshot) Rate(from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	f, ok := s.Rates[from]
	if !ok || f.IsZero() {
		return decimal.Zero, fmt.Errorf("%w %q in %v snapshot", ErrUnknownCurrency, from, s.Date)
	}
	t, ok := s.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w %q in %v snapshot", ErrUnknownCurrency, to, s.Date)
	}
	return t.Div(f), nil
}

// Provider fetches rate maps against a base currency from an upstream source.
// The returned date is the one the provider reports the rates for.
type Provider interface {
	Latest(ctx context.Context, base string) (date.Date, map[string]decimal.Decimal, error)
	OnDate(ctx context.Context, base string, on date.Date) (date.Date, map[string]decimal.Decimal, error)
}

// Store persists snapshots durably. Dated snapshots are keyed by the requested date.
type Store interface {
	LiveSnapshot() (*Snapshot, bool)
	SaveLiveSnapshot(s *Snapshot) error
	Snapshot(on date.Date) (*Snapshot, bool)
	SaveSnapshot(on date.Date, s *Snapshot) error
	Snapshots() iter.Seq2[date.Date, *Snapshot]
}
