package stocktracker

import (
	"testing"

	"github.com/etnz/stocktracker/date"
)

func analyticsFixture() []Transaction {
	a := withTotalInBase(newBuy("2024-01-15", "AAPL", "10", "100", "USD"), "1300", "CAD")
	a.AccountID = "acc-1"
	a.Exchange = "NASDAQ"
	fees := dec("6.5")
	a.Fees, a.FeesInBase = dec("5"), &fees
	s := newBuy("2024-01-20", "SHOP", "20", "100", "CAD")
	s.AccountID = "acc-2"
	s.Fees = dec("10")
	v := newBuy("2024-02-03", "VOD", "100", "0.7", "GBP")
	v.AccountID = "acc-1"
	sell := withTotalInBase(newSell("2024-02-10", "AAPL", "5", "120", "USD"), "810", "CAD")
	sell.AccountID = "acc-1"
	return []Transaction{a, s, v, sell}
}

func TestSymbolsAndInstruments(t *testing.T) {
	txs := analyticsFixture()
	if got := Symbols(txs); len(got) != 3 || got[0] != "AAPL" || got[1] != "SHOP" || got[2] != "VOD" {
		t.Errorf("Symbols() = %v, want [AAPL SHOP VOD]", got)
	}
	inst := Instruments(txs)
	if len(inst) != 3 || inst[0].Exchange != "NASDAQ" || inst[1].Exchange != "" {
		t.Errorf("Instruments() = %v, want AAPL on NASDAQ first", inst)
	}
}

func TestFilters(t *testing.T) {
	txs := analyticsFixture()
	if got := SymbolHistory(txs, "AAPL"); len(got) != 2 {
		t.Errorf("SymbolHistory(AAPL) = %d transactions, want 2", len(got))
	}
	if got := AccountTransactions(txs, "acc-1"); len(got) != 3 {
		t.Errorf("AccountTransactions(acc-1) = %d transactions, want 3", len(got))
	}
	r, err := date.ParseRange("2024-02-01..2024-02-28")
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	if got := InRange(txs, r); len(got) != 2 {
		t.Errorf("InRange(%s) = %d transactions, want 2", r, len(got))
	}
	if got := HoldingsByAccount(txs, "acc-2", "CAD"); len(got) != 1 || got[0].Symbol != "SHOP" {
		t.Errorf("HoldingsByAccount(acc-2) = %v, want SHOP", got)
	}
}

func TestTotalFees(t *testing.T) {
	// 6.5 captured in CAD for AAPL, 10 native CAD for SHOP.
	if got := TotalFees(analyticsFixture(), "CAD"); !got.Equal(dec("16.5")) {
		t.Errorf("TotalFees() = %v, want 16.5", got)
	}
}

func TestSummarizeAccount(t *testing.T) {
	accounts := map[string]Account{"acc-1": {ID: "acc-1", Name: "Margin", DefaultCurrency: "USD"}}
	s := SummarizeAccount(analyticsFixture(), accounts, "acc-1", "CAD")
	if s.AccountName != "Margin" || s.Currency != "USD" {
		t.Errorf("SummarizeAccount() name = %q currency = %q, want Margin USD", s.AccountName, s.Currency)
	}
	if s.TotalPositions != 2 {
		t.Errorf("TotalPositions = %d, want 2", s.TotalPositions)
	}
	// AAPL 1300 halved, VOD 70 unconverted.
	if !s.TotalInvested.Equal(dec("720")) {
		t.Errorf("TotalInvested = %v, want 720", s.TotalInvested)
	}

	unknown := SummarizeAccount(analyticsFixture(), accounts, "acc-2", "CAD")
	if unknown.AccountName != "acc-2" || unknown.Currency != "CAD" {
		t.Errorf("SummarizeAccount(unknown) = %q %q, want acc-2 CAD", unknown.AccountName, unknown.Currency)
	}
}

func TestSummarizeTransactions(t *testing.T) {
	s := SummarizeTransactions(analyticsFixture(), "CAD")
	if s.TotalBuys != 3 || s.TotalSells != 1 {
		t.Errorf("SummarizeTransactions() = %d buys %d sells, want 3 1", s.TotalBuys, s.TotalSells)
	}
	if !s.TotalBuyValue.Equal(dec("3370")) {
		t.Errorf("TotalBuyValue = %v, want 3370", s.TotalBuyValue)
	}
	if !s.TotalSellValue.Equal(dec("810")) {
		t.Errorf("TotalSellValue = %v, want 810", s.TotalSellValue)
	}
}

func TestDiversification(t *testing.T) {
	got := Diversification(analyticsFixture(), "CAD")
	if len(got) != 3 {
		t.Fatalf("Diversification() len = %d, want 3", len(got))
	}
	if got[0].Symbol != "SHOP" || got[1].Symbol != "AAPL" || got[2].Symbol != "VOD" {
		t.Errorf("Diversification() order = %s %s %s, want SHOP AAPL VOD", got[0].Symbol, got[1].Symbol, got[2].Symbol)
	}
	var total Percent
	for _, a := range got {
		total += a.Percentage
	}
	if !total.Equal(100) {
		t.Errorf("sum of percentages = %v, want 100%%", total)
	}
}

func TestMonthlyActivity(t *testing.T) {
	got := MonthlyActivity(analyticsFixture(), "CAD")
	if len(got) != 2 || got[0].Month != "2024-01" || got[1].Month != "2024-02" {
		t.Fatalf("MonthlyActivity() = %v, want 2024-01 then 2024-02", got)
	}
	if got[1].Buys != 1 || got[1].Sells != 1 || !got[1].TotalSellValue.Equal(dec("810")) {
		t.Errorf("MonthlyActivity()[1] = %+v, want 1 buy 1 sell of 810", got[1])
	}
}

func TestCurrencyBreakdown(t *testing.T) {
	got := CurrencyBreakdown(analyticsFixture())
	if len(got) != 3 || got[0].Currency != "CAD" {
		t.Fatalf("CurrencyBreakdown() = %v, want CAD first", got)
	}
	if got[1].Currency != "USD" || !got[1].TotalInvested.Equal(dec("1000")) || got[1].Transactions != 1 {
		t.Errorf("CurrencyBreakdown()[1] = %+v, want USD 1000 over one buy", got[1])
	}
}

func TestFavoriteFilter(t *testing.T) {
	accounts := map[string]Account{
		"acc-1": {ID: "acc-1", Holders: []string{"alice"}},
		"acc-2": {ID: "acc-2", Holders: []string{"bob", "alice"}},
	}
	txs := analyticsFixture()
	for _, tt := range []struct {
		name    string
		filters FavoriteFilters
		want    int
	}{
		{"all", FavoriteFilters{}, 4},
		{"account", FavoriteFilters{Accounts: []string{"acc-2"}}, 1},
		{"holder", FavoriteFilters{Holders: []string{"bob"}}, 1},
		{"both", FavoriteFilters{Accounts: []string{"acc-1"}, Holders: []string{"bob"}}, 0},
	} {
		f := Favorite{ID: tt.name, Filters: tt.filters}
		if got := f.Filter(txs, accounts); len(got) != tt.want {
			t.Errorf("Favorite(%s).Filter() = %d transactions, want %d", tt.name, len(got), tt.want)
		}
	}
}
