package renderer

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/etnz/stocktracker"
	"github.com/etnz/stocktracker/fx"
	"github.com/etnz/stocktracker/prices"
	"github.com/shopspring/decimal"
)

// Transactions renders transactions in the order given.
func Transactions(txs []stocktracker.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Transactions\n\n")
	if len(txs) == 0 {
		fmt.Fprintln(&b, "No transactions.")
		return b.String()
	}
	header(&b, "lllrrrrrl", "Date", "Type", "Symbol", "Quantity", "Price", "Fees", "Total", "FX rate", "ID")
	for _, tx := range txs {
		rate := "-"
		if tx.FXRate != nil {
			rate = fmt.Sprintf("%s (%s)", tx.FXRate, tx.FXRateSource)
		}
		row(&b, tx.Date, tx.Type, tx.Symbol, tx.Quantity,
			stocktracker.M(tx.Price, tx.Currency), stocktracker.M(tx.Fees, tx.Currency), stocktracker.M(tx.Total, tx.Currency),
			rate, tx.ID)
	}
	return b.String()
}

// Diversification renders the allocation of the portfolio cost.
func Diversification(allocs []stocktracker.Allocation, reporting string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Diversification\n\n")
	header(&b, "llrr", "Symbol", "Company", "Cost", "Share")
	for _, a := range allocs {
		row(&b, a.Symbol, a.Company, stocktracker.M(a.Value, reporting), a.Percentage)
	}
	return b.String()
}

// Monthly renders the activity per month.
func Monthly(months []stocktracker.MonthActivity, reporting string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Monthly activity\n\n")
	header(&b, "lrrrr", "Month", "Buys", "Bought", "Sells", "Sold")
	for _, m := range months {
		row(&b, m.Month, m.Buys, stocktracker.M(m.TotalBuyValue, reporting), m.Sells, stocktracker.M(m.TotalSellValue, reporting))
	}
	return b.String()
}

// Currencies renders the amounts bought per currency.
func Currencies(exposures []stocktracker.CurrencyExposure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Currency exposure\n\n")
	header(&b, "lrr", "Currency", "Invested", "Buys")
	for _, e := range exposures {
		row(&b, e.Currency, stocktracker.M(e.TotalInvested, e.Currency), e.Transactions)
	}
	return b.String()
}

// Activity renders the buy and sell totals, fees included.
func Activity(s stocktracker.TransactionSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Activity\n\n")
	header(&b, "lrr", "Side", "Count", "Amount")
	row(&b, "Buys", s.TotalBuys, stocktracker.M(s.TotalBuyValue, s.Currency))
	row(&b, "Sells", s.TotalSells, stocktracker.M(s.TotalSellValue, s.Currency))
	fmt.Fprintf(&b, "\nTotal fees: %s\n", stocktracker.M(s.TotalFees, s.Currency))
	return b.String()
}

// Rates renders a snapshot as the value of one unit of base in each currency.
func Rates(s *fx.Snapshot, base string) string {
	var b strings.Builder
	title := "Latest rates"
	if !s.Date.IsZero() {
		title = "Rates on " + s.Date.String()
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	header(&b, "lr", "Currency", "1 "+base)
	for _, cur := range slices.Sorted(maps.Keys(s.Rates)) {
		if cur == base {
			continue
		}
		r, err := s.Rate(base, cur)
		if err != nil {
			continue
		}
		row(&b, cur, r.Round(6))
	}
	if !s.FetchedAt.IsZero() {
		fmt.Fprintf(&b, "\nFetched at %s\n", s.FetchedAt.Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}

// Quotes renders quotes by symbol, failed is an optional failure summary.
func Quotes(quotes map[string]prices.Quote, failed error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Prices\n\n")
	header(&b, "lrlll", "Symbol", "Price", "Currency", "As of", "Source")
	for _, k := range slices.Sorted(maps.Keys(quotes)) {
		q := quotes[k]
		price := q.Price.String()
		if q.Stale {
			price += " (stale)"
		}
		row(&b, k, price, q.Currency, q.AsOf.Format("2006-01-02 15:04"), q.Source)
	}
	ConditionalBlock(&b, func(w io.Writer) bool {
		if failed == nil {
			return false
		}
		fmt.Fprintf(w, "\n## Failures\n\n")
		for _, line := range strings.Split(failed.Error(), "\n") {
			fmt.Fprintf(w, "- %s\n", line)
		}
		return true
	})
	return b.String()
}

// Conversion renders an amount converted between two currencies.
func Conversion(amount decimal.Decimal, from string, converted decimal.Decimal, to string) string {
	return fmt.Sprintf("%s = %s\n", stocktracker.M(amount, from), stocktracker.M(converted, to))
}

// Backfill renders the outcome of a rate backfill.
func Backfill(res stocktracker.BackfillResult, reporting string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Rate backfill in %s\n\n", reporting)
	fmt.Fprintf(&b, "- updated: %d\n- failed: %d\n", res.Updated, res.Failed)
	return b.String()
}
