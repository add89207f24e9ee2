package stocktracker

import (
	"context"
	"math"
	"testing"

	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/prices"
	"github.com/shopspring/decimal"
)

// twoBuys is the AAPL position bought on two days with different USD/CAD rates.
func twoBuys() ([]Transaction, *fakeRates) {
	txs := []Transaction{
		newBuy("2024-01-15", "AAPL", "10", "100", "USD"),
		newBuy("2024-06-14", "AAPL", "10", "120", "USD"),
	}
	rates := &fakeRates{
		live: map[string]decimal.Decimal{"USD/CAD": dec("1.35")},
		historical: map[string]map[string]decimal.Decimal{
			"2024-01-15": {"USD/CAD": dec("1.30")},
			"2024-06-14": {"USD/CAD": dec("1.40")},
		},
	}
	return txs, rates
}

func TestPortfolioStats_HistoricalAndLiveRates(t *testing.T) {
	txs, rates := twoBuys()
	c := Calculator{
		Rates:  rates,
		Prices: &fakePrices{quotes: map[string]prices.Quote{"AAPL": quote("150", "USD")}},
		Now:    fixedNow("2025-01-15"),
	}
	stats := c.PortfolioStats(context.Background(), txs, "CAD")
	if len(stats.Holdings) != 1 {
		t.Fatalf("PortfolioStats() holdings = %d, want 1", len(stats.Holdings))
	}
	p := stats.Holdings[0]
	if !p.Quantity.Equal(dec("20")) {
		t.Errorf("Quantity = %v, want 20", p.Quantity)
	}
	if !p.TotalCost.Equal(dec("2200")) {
		t.Errorf("TotalCost = %v, want 2200", p.TotalCost)
	}
	if !p.CostBasis.Equal(dec("2980")) {
		t.Errorf("CostBasis = %v, want 2980", p.CostBasis)
	}
	if !p.CurrentValue.Equal(dec("3000")) {
		t.Errorf("CurrentValue = %v, want 3000", p.CurrentValue)
	}
	if !p.CurrentValueReporting.Equal(dec("4050")) {
		t.Errorf("CurrentValueReporting = %v, want 4050", p.CurrentValueReporting)
	}
	if !p.GainLoss.Equal(dec("1070")) {
		t.Errorf("GainLoss = %v, want 1070", p.GainLoss)
	}
	if want := Percent(35.906); math.Abs(float64(p.GainLossPercent-want)) > 0.001 {
		t.Errorf("GainLossPercent = %v, want %v", p.GainLossPercent, want)
	}
	if p.FXMissing || p.PriceMissing {
		t.Errorf("flags = fx %v price %v, want none", p.FXMissing, p.PriceMissing)
	}

	if !stats.TotalInvested.Equal(dec("2980")) || !stats.TotalCurrentValue.Equal(dec("4050")) || !stats.TotalGainLoss.Equal(dec("1070")) {
		t.Errorf("totals = %v %v %v, want 2980 4050 1070", stats.TotalInvested, stats.TotalCurrentValue, stats.TotalGainLoss)
	}
	if stats.Currency != "CAD" {
		t.Errorf("Currency = %q, want CAD", stats.Currency)
	}
}

func TestPortfolioStats_LiveRateOnlyForValue(t *testing.T) {
	txs, rates := twoBuys()
	// the live rate moves, the cost basis must not.
	rates.live["USD/CAD"] = dec("2")
	c := Calculator{
		Rates:  rates,
		Prices: &fakePrices{quotes: map[string]prices.Quote{"AAPL": quote("150", "USD")}},
		Now:    fixedNow("2025-01-15"),
	}
	p := c.PortfolioStats(context.Background(), txs, "CAD").Holdings[0]
	if !p.CostBasis.Equal(dec("2980")) {
		t.Errorf("CostBasis = %v, want 2980", p.CostBasis)
	}
	if !p.CurrentValueReporting.Equal(dec("6000")) {
		t.Errorf("CurrentValueReporting = %v, want 6000", p.CurrentValueReporting)
	}
}

func TestHoldingPerformance_CostBasisAfterSell(t *testing.T) {
	txs, rates := twoBuys()
	txs = append(txs, newSell("2024-09-01", "AAPL", "10", "130", "USD"))
	c := Calculator{
		Rates:  rates,
		Prices: &fakePrices{quotes: map[string]prices.Quote{"AAPL": quote("150", "USD")}},
		Now:    fixedNow("2025-01-15"),
	}
	p := c.PortfolioStats(context.Background(), txs, "CAD").Holdings[0]
	// half of the position is sold at the average reporting cost.
	if !p.CostBasis.Equal(dec("1490")) {
		t.Errorf("CostBasis = %v, want 1490", p.CostBasis)
	}
	if !p.CurrentValueReporting.Equal(dec("2025")) {
		t.Errorf("CurrentValueReporting = %v, want 2025", p.CurrentValueReporting)
	}
}

func TestHoldingPerformance_MissingPrice(t *testing.T) {
	txs, rates := twoBuys()
	c := Calculator{Rates: rates, Prices: &fakePrices{}, Now: fixedNow("2025-01-15")}
	stats := c.PortfolioStats(context.Background(), txs, "CAD")
	p := stats.Holdings[0]
	if !p.PriceMissing {
		t.Errorf("PriceMissing = false, want true")
	}
	if p.Price != nil {
		t.Errorf("Price = %v, want nil", p.Price)
	}
	if !p.CurrentValueReporting.Equal(p.CostBasis) {
		t.Errorf("CurrentValueReporting = %v, want the cost basis %v", p.CurrentValueReporting, p.CostBasis)
	}
	if !p.GainLoss.IsZero() || p.GainLossPercent != 0 || p.ARR != 0 {
		t.Errorf("gain = %v %v %v, want zeros", p.GainLoss, p.GainLossPercent, p.ARR)
	}
	if !stats.TotalGainLoss.IsZero() {
		t.Errorf("TotalGainLoss = %v, want 0", stats.TotalGainLoss)
	}
}

func TestHoldingPerformance_MissingHistoricalRate(t *testing.T) {
	txs := []Transaction{
		withTotalInBase(newBuy("2024-01-15", "AAPL", "10", "100", "USD"), "1310", "CAD"),
		newBuy("2024-06-14", "AAPL", "10", "120", "USD"),
	}
	rates := &fakeRates{live: map[string]decimal.Decimal{"USD/CAD": dec("1.35")}}
	c := Calculator{
		Rates:  rates,
		Prices: &fakePrices{quotes: map[string]prices.Quote{"AAPL": quote("150", "USD")}},
		Now:    fixedNow("2025-01-15"),
	}
	p := c.PortfolioStats(context.Background(), txs, "CAD").Holdings[0]
	// captured amount for the first buy, unconverted native for the second.
	if !p.CostBasis.Equal(dec("2510")) {
		t.Errorf("CostBasis = %v, want 2510", p.CostBasis)
	}
	if !p.FXMissing {
		t.Errorf("FXMissing = false, want true")
	}
	if len(p.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one", p.Warnings)
	}
}

func TestHoldingPerformance_MissingLiveRate(t *testing.T) {
	txs, rates := twoBuys()
	rates.live = nil
	c := Calculator{
		Rates:  rates,
		Prices: &fakePrices{quotes: map[string]prices.Quote{"AAPL": quote("150", "USD")}},
		Now:    fixedNow("2025-01-15"),
	}
	p := c.PortfolioStats(context.Background(), txs, "CAD").Holdings[0]
	if !p.FXMissing {
		t.Errorf("FXMissing = false, want true")
	}
	if !p.CurrentValueReporting.Equal(dec("2980")) {
		t.Errorf("CurrentValueReporting = %v, want the cost basis 2980", p.CurrentValueReporting)
	}
}

func TestHoldingPerformance_UsesFirstExchange(t *testing.T) {
	a := newBuy("2024-01-01", "VOD", "1", "1", "GBP")
	b := newBuy("2024-01-02", "VOD", "1", "1", "GBP")
	b.Exchange = "LSE"
	c := newBuy("2024-01-03", "VOD", "1", "1", "GBP")
	c.Exchange = "NASDAQ"
	fp := &fakePrices{exchanges: map[string]string{}}
	calc := Calculator{Rates: &fakeRates{}, Prices: fp, Now: fixedNow("2025-01-01")}
	calc.PortfolioStats(context.Background(), []Transaction{a, b, c}, "GBP")
	if got := fp.exchanges["VOD"]; got != "LSE" {
		t.Errorf("quote asked on %q, want LSE", got)
	}
}

func TestPortfolioStats_WeightedARR(t *testing.T) {
	txs := []Transaction{
		newBuy("2024-01-01", "A", "10", "100", "USD"), // cost 1000
		newBuy("2024-01-01", "B", "10", "300", "USD"), // cost 3000
	}
	c := Calculator{
		Rates: &fakeRates{},
		Prices: &fakePrices{quotes: map[string]prices.Quote{
			"A": quote("120", "USD"), // +20%
			"B": quote("270", "USD"), // -10%
		}},
		// two years, 2024 being a leap year: 731 days.
		Now: fixedNow("2026-01-01"),
	}
	stats := c.PortfolioStats(context.Background(), txs, "USD")
	years := 731 / 365.25
	arrA, arrB := 20/years, -10/years
	if !stats.Holdings[0].ARR.Equal(Percent(arrA)) {
		t.Errorf("ARR(A) = %v, want %v", stats.Holdings[0].ARR, Percent(arrA))
	}
	want := Percent((arrA*1000 + arrB*3000) / 4000)
	if !stats.TotalARR.Equal(want) {
		t.Errorf("TotalARR = %v, want %v", stats.TotalARR, want)
	}
	if want := Percent(-2.5); !stats.TotalGainLossPercent.Equal(want) {
		t.Errorf("TotalGainLossPercent = %v, want %v", stats.TotalGainLossPercent, want)
	}
}

func TestPortfolioStats_Empty(t *testing.T) {
	c := Calculator{Rates: &fakeRates{}, Prices: &fakePrices{}}
	stats := c.PortfolioStats(context.Background(), nil, "EUR")
	if len(stats.Holdings) != 0 || !stats.TotalInvested.IsZero() || stats.TotalARR != 0 {
		t.Errorf("PortfolioStats(nil) = %+v, want empty", stats)
	}
}

func TestYearsHeld(t *testing.T) {
	for _, tt := range []struct {
		first, today string
		want         float64
	}{
		{"2024-01-01", "2024-01-01", 0.01},
		{"2024-01-01", "2024-01-02", 0.01},
		{"2023-01-01", "2024-01-01", 365 / 365.25},
		{"2024-01-01", "2023-01-01", 365 / 365.25},
	} {
		got := YearsHeld(date.MustParse(tt.first), date.MustParse(tt.today))
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("YearsHeld(%s, %s) = %v, want %v", tt.first, tt.today, got, tt.want)
		}
	}
}

func TestCalculateSimpleStats(t *testing.T) {
	txs := []Transaction{
		withTotalInBase(newBuy("2024-01-15", "AAPL", "10", "100", "USD"), "1300", "CAD"),
		newBuy("2024-01-16", "SHOP", "2", "50", "CAD"),
	}
	s := CalculateSimpleStats(txs, "CAD")
	if s.TotalPositions != 2 || !s.TotalInvested.Equal(dec("1400")) {
		t.Errorf("CalculateSimpleStats() = %+v, want 2 positions and 1400 invested", s)
	}
}

func TestHoldingPerformance_CostBasisAfterFullClose(t *testing.T) {
	txs := []Transaction{
		newBuy("2024-01-01", "XYZ", "10", "7.5", "USD"),
		newSell("2024-01-02", "XYZ", "3", "8", "USD"),
		newBuy("2024-01-03", "XYZ", "4", "9.25", "USD"),
		newSell("2024-01-04", "XYZ", "11", "10", "USD"),
		newBuy("2024-01-05", "XYZ", "1", "11", "USD"),
	}
	c := Calculator{
		Rates:  &fakeRates{},
		Prices: &fakePrices{quotes: map[string]prices.Quote{"XYZ": quote("12", "USD")}},
		Now:    fixedNow("2025-01-05"),
	}
	stats := c.PortfolioStats(context.Background(), txs, "USD")
	if len(stats.Holdings) != 1 {
		t.Fatalf("PortfolioStats() holdings = %d, want 1", len(stats.Holdings))
	}
	p := stats.Holdings[0]
	if !p.CostBasis.Equal(dec("11")) {
		t.Errorf("CostBasis = %v, want 11", p.CostBasis)
	}
	if !p.GainLoss.Equal(dec("1")) {
		t.Errorf("GainLoss = %v, want 1", p.GainLoss)
	}
}
