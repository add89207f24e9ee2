package stocktracker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/fx"
	"github.com/etnz/stocktracker/prices"
	"github.com/shopspring/decimal"
)

func openMemory(t *testing.T, backend Backend) *Database {
	t.Helper()
	db, err := OpenDatabase(context.Background(), backend, "CAD")
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	db.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return db
}

func TestOpenDatabase_Empty(t *testing.T) {
	db := openMemory(t, &MemoryBackend{})
	if got := db.ReportingCurrency(); got != "CAD" {
		t.Errorf("ReportingCurrency() = %q, want CAD", got)
	}
	if got := db.Transactions(); len(got) != 0 {
		t.Errorf("Transactions() = %v, want none", got)
	}
}

func TestDatabase_TransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	backend := &MemoryBackend{}
	db := openMemory(t, backend)

	added, err := db.AddTransaction(ctx, Transaction{
		Date: date.MustParse("2024-01-15"), Type: Buy, Symbol: "AAPL",
		Quantity: dec("10"), Price: dec("100"), Total: dec("1000"), Currency: "USD",
	})
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if !strings.HasPrefix(added.ID, "txn_") || added.AddedAt.IsZero() {
		t.Errorf("AddTransaction() id = %q addedAt = %v, want a txn_ id and a timestamp", added.ID, added.AddedAt)
	}
	if _, err := db.AddTransaction(ctx, added); err == nil {
		t.Errorf("AddTransaction(duplicate) error = nil, want an error")
	}
	if _, err := db.AddTransaction(ctx, Transaction{Symbol: "BAD"}); err == nil {
		t.Errorf("AddTransaction(invalid) error = nil, want an error")
	}

	updated, err := db.UpdateTransaction(ctx, added.ID, func(tx *Transaction) { tx.Fees = dec("4.95") })
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if !updated.Fees.Equal(dec("4.95")) {
		t.Errorf("Fees = %v, want 4.95", updated.Fees)
	}
	if _, err := db.UpdateTransaction(ctx, added.ID, func(tx *Transaction) { tx.Quantity = dec("-1") }); err == nil {
		t.Errorf("UpdateTransaction(invalid) error = nil, want an error")
	}

	// the document survives a reopen.
	reopened := openMemory(t, backend)
	got, err := reopened.Transaction(added.ID)
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if !got.Fees.Equal(dec("4.95")) || got.Date != added.Date {
		t.Errorf("reopened transaction = %+v, want fees 4.95 on %s", got, added.Date)
	}

	if err := db.DeleteTransaction(ctx, added.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if _, err := db.Transaction(added.ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("Transaction(deleted) error = %v, want ErrTransactionNotFound", err)
	}
	if err := db.DeleteTransaction(ctx, added.ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("DeleteTransaction(deleted) error = %v, want ErrTransactionNotFound", err)
	}
}

func TestOpenDatabase_MigratesContractReference(t *testing.T) {
	backend := &MemoryBackend{}
	doc := `{
  "transactions": [
    {"id": "t1", "date": "2024-01-15T00:00:00.000Z", "type": "buy", "symbol": "AAPL", "quantity": 10, "price": 100, "fees": 0, "total": 1000, "currency": "USD", "contractReference": "CN-1"},
    {"id": "t2", "date": "2024-01-16", "type": "buy", "symbol": "AAPL", "quantity": 1, "price": 100, "fees": 0, "total": 100, "currency": "USD", "contractNoteNo": "CN-2"}
  ],
  "settings": {"baseCurrency": "EUR"}
}`
	if err := backend.Store(context.Background(), []byte(doc)); err != nil {
		t.Fatal(err)
	}
	db := openMemory(t, backend)
	if got := db.ReportingCurrency(); got != "EUR" {
		t.Errorf("ReportingCurrency() = %q, want the stored EUR", got)
	}
	txs := db.Transactions()
	if len(txs) != 2 {
		t.Fatalf("Transactions() = %d, want 2", len(txs))
	}
	if txs[0].ContractNoteNo != "CN-1" || txs[1].ContractNoteNo != "CN-2" {
		t.Errorf("ContractNoteNo = %q %q, want CN-1 CN-2", txs[0].ContractNoteNo, txs[1].ContractNoteNo)
	}
	if txs[0].Date.String() != "2024-01-15" {
		t.Errorf("Date = %s, want 2024-01-15", txs[0].Date)
	}
	if !txs[0].Quantity.Equal(dec("10")) {
		t.Errorf("Quantity = %v, want 10", txs[0].Quantity)
	}
}

func TestOpenDatabase_Corrupted(t *testing.T) {
	backend := &MemoryBackend{}
	backend.Store(context.Background(), []byte("{not json"))
	if _, err := OpenDatabase(context.Background(), backend, "CAD"); err == nil {
		t.Errorf("OpenDatabase(corrupted) error = nil, want an error")
	}
}

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portfolio.json")
	db, err := OpenDatabase(ctx, FileBackend{Path: path}, "USD")
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	if err := db.AddAccount(ctx, Account{ID: "acc-1", Name: "Cash"}); err != nil {
		t.Fatalf("AddAccount() error = %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), `"acc-1"`) {
		t.Errorf("stored document does not contain the account:\n%s", content)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the document", len(entries))
	}
}

func TestDatabase_AccountsAndFavorites(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t, &MemoryBackend{})
	if err := db.AddAccount(ctx, Account{}); err == nil {
		t.Errorf("AddAccount(no id) error = nil, want an error")
	}
	if err := db.AddAccount(ctx, Account{ID: "acc-1", Name: "Margin"}); err != nil {
		t.Fatalf("AddAccount() error = %v", err)
	}
	if a := db.Accounts()["acc-1"]; a.Name != "Margin" || a.CreatedAt.IsZero() {
		t.Errorf("Accounts()[acc-1] = %+v, want Margin with a creation time", a)
	}
	if err := db.AddFavorite(ctx, Favorite{ID: "fav", Name: "Mine"}); err != nil {
		t.Fatalf("AddFavorite() error = %v", err)
	}
	if len(db.Favorites()) != 1 {
		t.Errorf("Favorites() = %v, want one", db.Favorites())
	}
	if err := db.DeleteFavorite(ctx, "fav"); err != nil {
		t.Fatalf("DeleteFavorite() error = %v", err)
	}
	if err := db.DeleteFavorite(ctx, "fav"); !errors.Is(err, ErrFavoriteNotFound) {
		t.Errorf("DeleteFavorite(missing) error = %v, want ErrFavoriteNotFound", err)
	}
	if err := db.MarkFileProcessed(ctx, "note.pdf"); err != nil {
		t.Fatalf("MarkFileProcessed() error = %v", err)
	}
	if !db.IsFileProcessed("note.pdf") || db.IsFileProcessed("other.pdf") {
		t.Errorf("IsFileProcessed() is wrong")
	}
	if err := db.SetReportingCurrency(ctx, "XXQ"); err == nil {
		t.Errorf("SetReportingCurrency(XXQ) error = nil, want an error")
	}
	if err := db.SetReportingCurrency(ctx, "GBP"); err != nil || db.ReportingCurrency() != "GBP" {
		t.Errorf("SetReportingCurrency(GBP) = %v, currency %q", err, db.ReportingCurrency())
	}
}

func TestDatabase_FXStore(t *testing.T) {
	backend := &MemoryBackend{}
	db := openMemory(t, backend)
	if _, ok := db.LiveSnapshot(); ok {
		t.Errorf("LiveSnapshot() found on an empty database")
	}
	live := &fx.Snapshot{Base: "USD", Rates: map[string]decimal.Decimal{"USD": dec("1"), "CAD": dec("1.35")}, FetchedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}
	if err := db.SaveLiveSnapshot(live); err != nil {
		t.Fatalf("SaveLiveSnapshot() error = %v", err)
	}
	day := date.MustParse("2024-01-15")
	dated := &fx.Snapshot{Base: "USD", Date: day, Rates: map[string]decimal.Decimal{"USD": dec("1"), "CAD": dec("1.30")}}
	if err := db.SaveSnapshot(day, dated); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	reopened := openMemory(t, backend)
	got, ok := reopened.LiveSnapshot()
	if !ok || !got.Rates["CAD"].Equal(dec("1.35")) || !got.FetchedAt.Equal(live.FetchedAt) {
		t.Errorf("LiveSnapshot() = %+v, want the saved live snapshot", got)
	}
	got, ok = reopened.Snapshot(day)
	if !ok || !got.Rates["CAD"].Equal(dec("1.30")) {
		t.Errorf("Snapshot(%s) = %+v, want the saved snapshot", day, got)
	}
	n := 0
	for on := range reopened.Snapshots() {
		if on != day {
			t.Errorf("Snapshots() yielded %s, want only %s", on, day)
		}
		n++
	}
	if n != 1 {
		t.Errorf("Snapshots() yielded %d snapshots, want 1", n)
	}

	if err := reopened.ClearFXRates(context.Background()); err != nil {
		t.Fatalf("ClearFXRates() error = %v", err)
	}
	if _, ok := reopened.Snapshot(day); ok {
		t.Errorf("Snapshot() found after ClearFXRates()")
	}
}

func TestDatabase_PricesStore(t *testing.T) {
	backend := &MemoryBackend{}
	db := openMemory(t, backend)
	if err := db.SaveLastPrices(map[string]prices.Quote{"AAPL": quote("150", "USD")}); err != nil {
		t.Fatalf("SaveLastPrices() error = %v", err)
	}
	if err := db.SaveLastPrices(map[string]prices.Quote{"VOD.L": quote("0.7", "GBP")}); err != nil {
		t.Fatalf("SaveLastPrices() error = %v", err)
	}
	got := openMemory(t, backend).LastPrices()
	if len(got) != 2 || !got["AAPL"].Price.Equal(dec("150")) || got["VOD.L"].Currency != "GBP" {
		t.Errorf("LastPrices() = %v, want both saved quotes", got)
	}
}
