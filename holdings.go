package stocktracker

import (
	"github.com/etnz/stocktracker/date"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Holding is the current position in one symbol, folded from its transactions.
//
// TotalCost is in Currency, the currency of the first transaction. TotalCostReporting is
// the same cost basis in the reporting currency, using the amounts captured on the
// transactions. Average costs are derived from the totals and never stored.
type Holding struct {
	Symbol             string          `json:"symbol"`
	Company            string          `json:"company"`
	Currency           string          `json:"currency"`
	AccountID          string          `json:"accountId,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	TotalCost          decimal.Decimal `json:"totalCost"`
	TotalCostReporting decimal.Decimal `json:"totalCostReporting"`
	Transactions       []Transaction   `json:"-"`

	// Oversold is set when a sell was larger than the position it was applied to.
	Oversold bool `json:"oversold,omitempty"`
}

// AverageCost returns the native cost per share.
func (h Holding) AverageCost() decimal.Decimal {
	if h.Quantity.IsZero() {
		return decimal.Zero
	}
	return h.TotalCost.Div(h.Quantity)
}

// AverageCostReporting returns the cost per share in the reporting currency.
func (h Holding) AverageCostReporting() decimal.Decimal {
	if h.Quantity.IsZero() {
		return decimal.Zero
	}
	return h.TotalCostReporting.Div(h.Quantity)
}

// Exchange returns the exchange of the first transaction that has one, "" if none does.
func (h Holding) Exchange() string {
	for _, tx := range h.Transactions {
		if tx.Exchange != "" {
			return tx.Exchange
		}
	}
	return ""
}

// FirstDate returns the earliest trade date of the holding.
func (h Holding) FirstDate() date.Date {
	var first date.Date
	for _, tx := range h.Transactions {
		if first.IsZero() || tx.Date.Before(first) {
			first = tx.Date
		}
	}
	return first
}

// position is the running-average cost fold shared by holdings and performance.
type position struct {
	qty           decimal.Decimal
	cost          decimal.Decimal
	costReporting decimal.Decimal
	oversold      bool
}

func (p *position) buy(qty, cost, costReporting decimal.Decimal) {
	p.qty = p.qty.Add(qty)
	p.cost = p.cost.Add(cost)
	p.costReporting = p.costReporting.Add(costReporting)
}

// sell removes qty shares at the average cost of the position before the sale.
//
// Selling more than the position is accepted: the whole average is applied to the
// sold quantity, which drives the running costs negative, and the position is marked
// oversold. Against an empty or short position there is no average to apply, so only
// the quantity changes.
func (p *position) sell(qty decimal.Decimal) {
	if qty.GreaterThan(p.qty) {
		p.oversold = true
	}
	if p.qty.IsPositive() {
		// scale by the remaining share so that a full close leaves exactly zero.
		left := p.qty.Sub(qty)
		p.cost = p.cost.Mul(left).Div(p.qty)
		p.costReporting = p.costReporting.Mul(left).Div(p.qty)
	}
	p.qty = p.qty.Sub(qty)
}

// CalculateHoldings folds transactions into holdings, one per symbol.
//
// Transactions are applied in the order given. Holdings are returned in the order their
// symbol first appears, and symbols whose final quantity is zero or negative are left out.
// Buys add their captured reporting amount to the reporting cost, or their native total
// when none was captured in reporting.
func CalculateHoldings(transactions []Transaction, reporting string) []Holding {
	var order []string
	bySymbol := make(map[string]*Holding)
	positions := make(map[string]*position)

	for _, tx := range transactions {
		h, ok := bySymbol[tx.Symbol]
		if !ok {
			company := tx.Company
			if company == "" {
				company = tx.Symbol
			}
			h = &Holding{Symbol: tx.Symbol, Company: company, Currency: tx.Currency, AccountID: tx.AccountID}
			bySymbol[tx.Symbol] = h
			positions[tx.Symbol] = new(position)
			order = append(order, tx.Symbol)
		}
		p := positions[tx.Symbol]
		switch tx.Type {
		case Buy:
			rep, ok := tx.totalIn(reporting)
			if !ok {
				rep = tx.Total
			}
			p.buy(tx.Quantity, tx.Total, rep)
		case Sell:
			wasOversold := p.oversold
			p.sell(tx.Quantity)
			if p.oversold && !wasOversold {
				log.Warn().Str("symbol", tx.Symbol).Stringer("date", tx.Date).Str("id", tx.ID).
					Stringer("quantity", tx.Quantity).Msg("sell exceeds the position")
			}
		default:
			log.Warn().Str("symbol", tx.Symbol).Str("type", string(tx.Type)).Str("id", tx.ID).Msg("ignoring transaction of unknown type")
			continue
		}
		h.Transactions = append(h.Transactions, tx)
	}

	holdings := make([]Holding, 0, len(order))
	for _, symbol := range order {
		p := positions[symbol]
		if !p.qty.IsPositive() {
			continue
		}
		h := bySymbol[symbol]
		h.Quantity, h.TotalCost, h.TotalCostReporting, h.Oversold = p.qty, p.cost, p.costReporting, p.oversold
		holdings = append(holdings, *h)
	}
	return holdings
}
