package stocktracker

import (
	"strings"
	"testing"

	"github.com/etnz/stocktracker/date"
)

func TestTransaction_Validate(t *testing.T) {
	valid := newBuy("2024-01-15", "AAPL", "10", "100", "USD")
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	r, zero := dec("1.3"), dec("0")
	for _, tt := range []struct {
		name   string
		mutate func(*Transaction)
		field  string
	}{
		{"no symbol", func(tx *Transaction) { tx.Symbol = "" }, "symbol"},
		{"no date", func(tx *Transaction) { tx.Date = date.Date{} }, "date"},
		{"bad type", func(tx *Transaction) { tx.Type = "dividend" }, "type"},
		{"zero quantity", func(tx *Transaction) { tx.Quantity = zero }, "quantity"},
		{"negative fees", func(tx *Transaction) { tx.Fees = dec("-1") }, "fees"},
		{"bad currency", func(tx *Transaction) { tx.Currency = "usd" }, "currency"},
		{"zero rate", func(tx *Transaction) { tx.FXRate = &zero }, "fxRate"},
		{"bad source", func(tx *Transaction) { tx.FXRate, tx.FXRateSource = &r, "guess" }, "fxRateSource"},
	} {
		tx := valid
		tt.mutate(&tx)
		err := tx.Validate()
		if err == nil {
			t.Errorf("Validate(%s) error = nil, want an error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.field) {
			t.Errorf("Validate(%s) error = %q, want it to name %s", tt.name, err, tt.field)
		}
	}
}

func TestTransaction_TotalIn(t *testing.T) {
	tx := withTotalInBase(newBuy("2024-01-15", "AAPL", "10", "100", "USD"), "1300", "CAD")
	for _, tt := range []struct {
		currency string
		want     string
		ok       bool
	}{
		{"USD", "1000", true},
		{"CAD", "1300", true},
		{"EUR", "0", false},
	} {
		got, ok := tx.totalIn(tt.currency)
		if ok != tt.ok || !got.Equal(dec(tt.want)) {
			t.Errorf("totalIn(%s) = %v, %v, want %v, %v", tt.currency, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewTransactionID(t *testing.T) {
	a, b := NewTransactionID(), NewTransactionID()
	if a == b || !strings.HasPrefix(a, "txn_") {
		t.Errorf("NewTransactionID() = %q, %q, want distinct txn_ ids", a, b)
	}
}
