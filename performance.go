package stocktracker

import (
	"context"
	"math"
	"time"

	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/prices"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// daysPerYear is the average year length used for annualization.
const daysPerYear = 365.25

// minYearsHeld avoids a division by zero for positions opened today.
const minYearsHeld = 0.01

// RateSource converts amounts between currencies at live or historical rates.
type RateSource interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	ConvertHistorical(ctx context.Context, amount decimal.Decimal, from, to string, day date.Date) (decimal.Decimal, error)
}

// PriceSource returns the current quote of a symbol, false if no price is known at all.
type PriceSource interface {
	Quote(ctx context.Context, symbol, exchange string) (prices.Quote, bool)
}

// Performance is the valuation of one holding in the reporting currency.
type Performance struct {
	Holding

	Price                 *prices.Quote   `json:"price,omitempty"`
	CurrentValue          decimal.Decimal `json:"currentValue"` // in the price currency
	CurrentValueReporting decimal.Decimal `json:"currentValueReporting"`
	CostBasis             decimal.Decimal `json:"costBasis"` // at each buy's historical rate
	GainLoss              decimal.Decimal `json:"gainLoss"`
	GainLossPercent       Percent         `json:"gainLossPercent"`
	YearsHeld             float64         `json:"yearsHeld"`
	ARR                   Percent         `json:"arr"`

	PriceMissing bool `json:"priceMissing,omitempty"`
	// FXMissing is set when a historical or live rate could not be found and an
	// approximation was used instead.
	FXMissing bool     `json:"fxMissing,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Stats aggregates the performance of all holdings.
type Stats struct {
	Currency             string          `json:"currency"`
	TotalInvested        decimal.Decimal `json:"totalInvested"`
	TotalCurrentValue    decimal.Decimal `json:"totalCurrentValue"`
	TotalGainLoss        decimal.Decimal `json:"totalGainLoss"`
	TotalGainLossPercent Percent         `json:"totalGainLossPercent"`
	TotalARR             Percent         `json:"totalARR"`
	Holdings             []Performance   `json:"holdings"`
}

// Calculator values holdings using a price source and a rate source.
type Calculator struct {
	Rates  RateSource
	Prices PriceSource
	Now    func() time.Time // defaults to time.Now
}

func (c *Calculator) today() date.Date {
	if c.Now == nil {
		return date.Today()
	}
	return date.Of(c.Now())
}

// YearsHeld returns the number of years between first and today, at least 0.01.
func YearsHeld(first, today date.Date) float64 {
	days := math.Abs(float64(today.DaysSince(first)))
	return max(days/daysPerYear, minYearsHeld)
}

// costBasis re-walks the holding's transactions converting each buy at the rate of its
// own trade date. When a rate is missing the captured reporting amount is used, or the
// native amount as a last resort, and the performance is flagged.
func (c *Calculator) costBasis(ctx context.Context, p *Performance, reporting string) decimal.Decimal {
	var pos position
	for _, tx := range p.Transactions {
		switch tx.Type {
		case Buy:
			rep, err := c.Rates.ConvertHistorical(ctx, tx.Total, tx.Currency, reporting, tx.Date)
			if err != nil {
				captured, ok := tx.totalIn(reporting)
				if !ok {
					captured = tx.Total
					p.FXMissing = true
					p.Warnings = append(p.Warnings, "no "+tx.Currency+"/"+reporting+" rate on "+tx.Date.String()+", cost counted unconverted")
				}
				log.Warn().Err(err).Str("symbol", tx.Symbol).Stringer("date", tx.Date).Msg("historical rate unavailable")
				rep = captured
			}
			pos.buy(tx.Quantity, tx.Total, rep)
		case Sell:
			pos.sell(tx.Quantity)
		}
	}
	return pos.costReporting
}

// HoldingPerformance values a single holding in reporting currency.
func (c *Calculator) HoldingPerformance(ctx context.Context, h Holding, reporting string) Performance {
	p := Performance{Holding: h}
	p.CostBasis = c.costBasis(ctx, &p, reporting)
	p.YearsHeld = YearsHeld(h.FirstDate(), c.today())

	q, ok := c.Prices.Quote(ctx, h.Symbol, h.Exchange())
	if !ok {
		// without a price the position is counted at cost.
		p.PriceMissing = true
		p.CurrentValueReporting = p.CostBasis
		return p
	}
	p.Price = &q
	p.CurrentValue = q.Price.Mul(h.Quantity)
	p.CurrentValueReporting = p.CurrentValue
	if q.Currency != reporting {
		v, err := c.Rates.Convert(ctx, p.CurrentValue, q.Currency, reporting)
		if err != nil {
			log.Warn().Err(err).Str("symbol", h.Symbol).Str("currency", q.Currency).Msg("live rate unavailable")
			p.FXMissing = true
			p.Warnings = append(p.Warnings, "no live "+q.Currency+"/"+reporting+" rate, value counted at cost")
			p.CurrentValueReporting = p.CostBasis
			return p
		}
		p.CurrentValueReporting = v
	}

	p.GainLoss = p.CurrentValueReporting.Sub(p.CostBasis)
	p.GainLossPercent = percentOf(p.GainLoss, p.CostBasis)
	p.ARR = Percent(float64(p.GainLossPercent) / p.YearsHeld)
	return p
}

// PortfolioStats values every holding of transactions in reporting currency.
//
// Holdings are valued concurrently; a failure on one holding only affects that holding.
// Unpriced holdings contribute their cost basis to the current value. The total ARR is
// the average of the holdings ARR weighted by their cost basis.
func (c *Calculator) PortfolioStats(ctx context.Context, transactions []Transaction, reporting string) Stats {
	holdings := CalculateHoldings(transactions, reporting)
	stats := Stats{Currency: reporting, Holdings: make([]Performance, len(holdings))}

	var g errgroup.Group
	for i, h := range holdings {
		// each task owns its slot in stats.Holdings and never fails the group.
		g.Go(func() error {
			stats.Holdings[i] = c.HoldingPerformance(ctx, h, reporting)
			return nil
		})
	}
	g.Wait() // tasks never fail

	weighted := decimal.Zero
	for _, p := range stats.Holdings {
		stats.TotalInvested = stats.TotalInvested.Add(p.CostBasis)
		stats.TotalCurrentValue = stats.TotalCurrentValue.Add(p.CurrentValueReporting)
		weighted = weighted.Add(decimal.NewFromFloat(float64(p.ARR)).Mul(p.CostBasis))
	}
	stats.TotalGainLoss = stats.TotalCurrentValue.Sub(stats.TotalInvested)
	if stats.TotalInvested.IsPositive() {
		stats.TotalGainLossPercent = percentOf(stats.TotalGainLoss, stats.TotalInvested)
		stats.TotalARR = Percent(weighted.Div(stats.TotalInvested).InexactFloat64())
	}
	return stats
}

// SimpleStats summarizes holdings at cost, without prices nor live rates.
type SimpleStats struct {
	Currency       string          `json:"currency"`
	TotalPositions int             `json:"totalPositions"`
	TotalInvested  decimal.Decimal `json:"totalInvested"`
}

func CalculateSimpleStats(transactions []Transaction, reporting string) SimpleStats {
	holdings := CalculateHoldings(transactions, reporting)
	s := SimpleStats{Currency: reporting, TotalPositions: len(holdings)}
	for _, h := range holdings {
		s.TotalInvested = s.TotalInvested.Add(h.TotalCostReporting)
	}
	return s
}
