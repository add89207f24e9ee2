package stocktracker

import (
	"cmp"
	"slices"

	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/prices"
	"github.com/shopspring/decimal"
)

// Symbols returns the distinct symbols of transactions in order of first appearance.
func Symbols(transactions []Transaction) []string {
	var symbols []string
	seen := make(map[string]bool)
	for _, tx := range transactions {
		if !seen[tx.Symbol] {
			seen[tx.Symbol] = true
			symbols = append(symbols, tx.Symbol)
		}
	}
	return symbols
}

// Instruments returns one instrument per symbol, listed on the exchange of the first
// transaction of that symbol that has one.
func Instruments(transactions []Transaction) []prices.Instrument {
	var res []prices.Instrument
	index := make(map[string]int)
	for _, tx := range transactions {
		i, ok := index[tx.Symbol]
		if !ok {
			index[tx.Symbol] = len(res)
			res = append(res, prices.Instrument{Symbol: tx.Symbol, Exchange: tx.Exchange})
			continue
		}
		if res[i].Exchange == "" {
			res[i].Exchange = tx.Exchange
		}
	}
	return res
}

// filter returns the transactions matching keep, in order.
func filter(transactions []Transaction, keep func(Transaction) bool) []Transaction {
	var res []Transaction
	for _, tx := range transactions {
		if keep(tx) {
			res = append(res, tx)
		}
	}
	return res
}

// SymbolHistory returns the transactions of symbol.
func SymbolHistory(transactions []Transaction, symbol string) []Transaction {
	return filter(transactions, func(tx Transaction) bool { return tx.Symbol == symbol })
}

// AccountTransactions returns the transactions of account.
func AccountTransactions(transactions []Transaction, accountID string) []Transaction {
	return filter(transactions, func(tx Transaction) bool { return tx.AccountID == accountID })
}

// InRange returns the transactions whose trade date is in r.
func InRange(transactions []Transaction, r date.Range) []Transaction {
	return filter(transactions, func(tx Transaction) bool { return r.Contains(tx.Date) })
}

// HoldingsByAccount returns the holdings of a single account.
func HoldingsByAccount(transactions []Transaction, accountID, reporting string) []Holding {
	return CalculateHoldings(AccountTransactions(transactions, accountID), reporting)
}

// amountIn returns the total of tx in reporting when known, its native total otherwise.
func amountIn(tx Transaction, reporting string) decimal.Decimal {
	if v, ok := tx.totalIn(reporting); ok {
		return v
	}
	return tx.Total
}

// TotalFees sums the fees of transactions, preferring the amounts captured in reporting.
func TotalFees(transactions []Transaction, reporting string) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range transactions {
		fees, ok := tx.feesIn(reporting)
		if !ok {
			fees = tx.Fees
		}
		total = total.Add(fees)
	}
	return total
}

// AccountSummary is the cost-only summary of one account.
type AccountSummary struct {
	AccountID      string          `json:"accountId"`
	AccountName    string          `json:"accountName"`
	Currency       string          `json:"accountCurrency"`
	Reporting      string          `json:"reportingCurrency"` // of the amounts below
	TotalPositions int             `json:"totalPositions"`
	TotalInvested  decimal.Decimal `json:"totalInvested"`
	TotalFees      decimal.Decimal `json:"totalFees"`
	Holdings       []Holding       `json:"holdings"`
}

// SummarizeAccount returns the summary of accountID, named after accounts when it is known.
func SummarizeAccount(transactions []Transaction, accounts map[string]Account, accountID, reporting string) AccountSummary {
	txs := AccountTransactions(transactions, accountID)
	holdings := CalculateHoldings(txs, reporting)
	s := AccountSummary{
		AccountID:      accountID,
		AccountName:    accountID,
		Currency:       reporting,
		Reporting:      reporting,
		TotalPositions: len(holdings),
		TotalFees:      TotalFees(txs, reporting),
		Holdings:       holdings,
	}
	if a, ok := accounts[accountID]; ok {
		if a.Name != "" {
			s.AccountName = a.Name
		}
		if a.DefaultCurrency != "" {
			s.Currency = a.DefaultCurrency
		}
	}
	for _, h := range holdings {
		s.TotalInvested = s.TotalInvested.Add(h.TotalCostReporting)
	}
	return s
}

// TransactionSummary counts and sums buys and sells.
type TransactionSummary struct {
	Currency       string          `json:"currency"`
	TotalBuys      int             `json:"totalBuys"`
	TotalSells     int             `json:"totalSells"`
	TotalBuyValue  decimal.Decimal `json:"totalBuyValue"`
	TotalSellValue decimal.Decimal `json:"totalSellValue"`
	TotalFees      decimal.Decimal `json:"totalFees"`
}

func SummarizeTransactions(transactions []Transaction, reporting string) TransactionSummary {
	s := TransactionSummary{Currency: reporting, TotalFees: TotalFees(transactions, reporting)}
	for _, tx := range transactions {
		switch tx.Type {
		case Buy:
			s.TotalBuys++
			s.TotalBuyValue = s.TotalBuyValue.Add(amountIn(tx, reporting))
		case Sell:
			s.TotalSells++
			s.TotalSellValue = s.TotalSellValue.Add(amountIn(tx, reporting))
		}
	}
	return s
}

// Allocation is the share of one holding in the portfolio cost.
type Allocation struct {
	Symbol     string          `json:"symbol"`
	Company    string          `json:"company"`
	Value      decimal.Decimal `json:"value"`
	Percentage Percent         `json:"percentage"`
}

// Diversification returns the allocation of each holding by reporting cost, largest first.
func Diversification(transactions []Transaction, reporting string) []Allocation {
	holdings := CalculateHoldings(transactions, reporting)
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.TotalCostReporting)
	}
	res := make([]Allocation, 0, len(holdings))
	for _, h := range holdings {
		res = append(res, Allocation{
			Symbol:     h.Symbol,
			Company:    h.Company,
			Value:      h.TotalCostReporting,
			Percentage: percentOf(h.TotalCostReporting, total),
		})
	}
	slices.SortStableFunc(res, func(a, b Allocation) int { return b.Value.Cmp(a.Value) })
	return res
}

// MonthActivity is the activity of one calendar month.
type MonthActivity struct {
	Month          string          `json:"month"` // YYYY-MM
	Buys           int             `json:"buys"`
	Sells          int             `json:"sells"`
	TotalBuyValue  decimal.Decimal `json:"totalBuyValue"`
	TotalSellValue decimal.Decimal `json:"totalSellValue"`
}

// MonthlyActivity groups transactions by month, oldest first.
func MonthlyActivity(transactions []Transaction, reporting string) []MonthActivity {
	byMonth := make(map[string]*MonthActivity)
	for _, tx := range transactions {
		key := tx.Date.MonthKey()
		m, ok := byMonth[key]
		if !ok {
			m = &MonthActivity{Month: key}
			byMonth[key] = m
		}
		switch tx.Type {
		case Buy:
			m.Buys++
			m.TotalBuyValue = m.TotalBuyValue.Add(amountIn(tx, reporting))
		case Sell:
			m.Sells++
			m.TotalSellValue = m.TotalSellValue.Add(amountIn(tx, reporting))
		}
	}
	res := make([]MonthActivity, 0, len(byMonth))
	for _, m := range byMonth {
		res = append(res, *m)
	}
	slices.SortFunc(res, func(a, b MonthActivity) int { return cmp.Compare(a.Month, b.Month) })
	return res
}

// CurrencyExposure is the amount bought in one currency.
type CurrencyExposure struct {
	Currency      string          `json:"currency"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
	Transactions  int             `json:"transactions"`
}

// CurrencyBreakdown sums the buys by transaction currency, largest first.
func CurrencyBreakdown(transactions []Transaction) []CurrencyExposure {
	var order []string
	by := make(map[string]*CurrencyExposure)
	for _, tx := range transactions {
		cur := tx.Currency
		if cur == "" {
			cur = "USD"
		}
		e, ok := by[cur]
		if !ok {
			e = &CurrencyExposure{Currency: cur}
			by[cur] = e
			order = append(order, cur)
		}
		if tx.Type == Buy {
			e.TotalInvested = e.TotalInvested.Add(tx.Total)
			e.Transactions++
		}
	}
	res := make([]CurrencyExposure, 0, len(order))
	for _, cur := range order {
		res = append(res, *by[cur])
	}
	slices.SortStableFunc(res, func(a, b CurrencyExposure) int { return b.TotalInvested.Cmp(a.TotalInvested) })
	return res
}
