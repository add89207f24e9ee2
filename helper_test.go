package stocktracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/prices"
	"github.com/shopspring/decimal"
)

// dec is a helper for test to create decimals from const.
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newBuy returns a buy of qty symbol at price, with no fees, in currency.
func newBuy(day string, symbol string, qty, price string, currency string) Transaction {
	q, p := dec(qty), dec(price)
	return Transaction{
		ID:       fmt.Sprintf("%s-%s-buy-%s", day, symbol, qty),
		Date:     date.MustParse(day),
		Type:     Buy,
		Symbol:   symbol,
		Quantity: q,
		Price:    p,
		Total:    q.Mul(p),
		Currency: currency,
	}
}

// newSell returns a sell of qty symbol at price in currency.
func newSell(day string, symbol string, qty, price string, currency string) Transaction {
	tx := newBuy(day, symbol, qty, price, currency)
	tx.ID = fmt.Sprintf("%s-%s-sell-%s", day, symbol, qty)
	tx.Type = Sell
	return tx
}

// withTotalInBase captures a converted total on tx.
func withTotalInBase(tx Transaction, total string, base string) Transaction {
	v := dec(total)
	tx.TotalInBase = &v
	tx.BaseCurrency = base
	return tx
}

var errNoRate = errors.New("no rate")

// fakeRates converts with a live rate table and a per-date historical table, both keyed "FROM/TO".
type fakeRates struct {
	live       map[string]decimal.Decimal
	historical map[string]map[string]decimal.Decimal // date -> pair -> rate
}

func (f *fakeRates) Convert(_ context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	r, ok := f.live[from+"/"+to]
	if !ok {
		return decimal.Zero, errNoRate
	}
	return amount.Mul(r), nil
}

func (f *fakeRates) HistoricalRate(_ context.Context, day date.Date, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	r, ok := f.historical[day.String()][from+"/"+to]
	if !ok {
		return decimal.Zero, errNoRate
	}
	return r, nil
}

func (f *fakeRates) ConvertHistorical(ctx context.Context, amount decimal.Decimal, from, to string, day date.Date) (decimal.Decimal, error) {
	r, err := f.HistoricalRate(ctx, day, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(r), nil
}

// fakePrices answers quotes by symbol and records the exchange it was asked for.
type fakePrices struct {
	quotes map[string]prices.Quote

	mu        sync.Mutex
	exchanges map[string]string
}

func (f *fakePrices) Quote(_ context.Context, symbol, exchange string) (prices.Quote, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exchanges != nil {
		f.exchanges[symbol] = exchange
	}
	q, ok := f.quotes[symbol]
	return q, ok
}

func quote(price, currency string) prices.Quote {
	return prices.Quote{Ticker: "T", Price: dec(price), Currency: currency, AsOf: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)}
}

// fixedNow returns a clock stuck on day.
func fixedNow(day string) func() time.Time {
	return func() time.Time { return date.MustParse(day).Time().Add(12 * time.Hour) }
}
