package stocktracker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/fx"
	"github.com/etnz/stocktracker/prices"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func init() {
	// amounts are persisted as json numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrFavoriteNotFound    = errors.New("favorite not found")
)

// Backend reads and writes the encoded document. Load returns an error wrapping
// fs.ErrNotExist when no document exists yet.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, content []byte) error
}

// FileBackend stores the document in a local file.
type FileBackend struct {
	Path string
}

func (f FileBackend) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Store replaces the file atomically.
func (f FileBackend) Store(ctx context.Context, content []byte) error {
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// MemoryBackend keeps the document in memory.
type MemoryBackend struct {
	mu      sync.Mutex
	content []byte
}

func (m *MemoryBackend) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.content == nil {
		return nil, fs.ErrNotExist
	}
	return slices.Clone(m.content), nil
}

func (m *MemoryBackend) Store(ctx context.Context, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = slices.Clone(content)
	return nil
}

// Database is the in-process owner of the portfolio document.
//
// Every mutation writes the whole document back to the backend. Access is serialised
// within the process; concurrent writers in other processes are not reconciled.
type Database struct {
	backend Backend
	now     func() time.Time

	mu   sync.RWMutex
	data *Data
}

var (
	_ fx.Store     = (*Database)(nil)
	_ prices.Store = (*Database)(nil)
)

// legacyTransaction reads transactions written before contractReference was renamed.
type legacyTransaction struct {
	Transaction
	ContractReference string `json:"contractReference,omitempty"`
}

type storedData struct {
	Data
	Transactions []legacyTransaction `json:"transactions"`
}

// OpenDatabase loads the document from backend, or starts an empty one in reporting currency.
func OpenDatabase(ctx context.Context, backend Backend, reporting string) (*Database, error) {
	db := &Database{backend: backend, now: time.Now}
	content, err := backend.Load(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Msg("database does not exist, starting an empty one")
		db.data = newData(reporting, db.now())
		return db, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load database: %w", err)
	}

	var stored storedData
	if err := json.Unmarshal(content, &stored); err != nil {
		return nil, fmt.Errorf("cannot decode database: %w", err)
	}
	data := stored.Data
	data.Transactions = make([]Transaction, 0, len(stored.Transactions))
	migrated := 0
	for _, lt := range stored.Transactions {
		tx := lt.Transaction
		if lt.ContractReference != "" {
			if tx.ContractNoteNo == "" {
				tx.ContractNoteNo = lt.ContractReference
			}
			migrated++
		}
		data.Transactions = append(data.Transactions, tx)
	}
	if migrated > 0 {
		log.Info().Int("count", migrated).Msg("migrated contractReference to contractNoteNo")
	}
	data.normalize(reporting)
	db.data = &data
	return db, nil
}

// save encodes and stores the document. d.mu must be held.
func (d *Database) save(ctx context.Context) error {
	d.data.LastModified = d.now()
	content, err := json.MarshalIndent(d.data, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode database: %w", err)
	}
	if err := d.backend.Store(ctx, content); err != nil {
		return fmt.Errorf("cannot store database: %w", err)
	}
	return nil
}

// Save writes the document back to the backend.
func (d *Database) Save(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.save(ctx)
}

// ReportingCurrency returns the base currency of the document settings.
func (d *Database) ReportingCurrency() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data.Settings.BaseCurrency
}

func (d *Database) SetReportingCurrency(ctx context.Context, currency string) error {
	if err := ValidateCurrency(currency); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data.Settings.BaseCurrency = currency
	return d.save(ctx)
}

// Transactions returns a copy of all transactions in document order.
func (d *Database) Transactions() []Transaction {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.data.Transactions)
}

// Transaction returns the transaction with id.
func (d *Database) Transaction(id string) (Transaction, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := d.index(id)
	if i < 0 {
		return Transaction{}, fmt.Errorf("%w: %q", ErrTransactionNotFound, id)
	}
	return d.data.Transactions[i], nil
}

func (d *Database) index(id string) int {
	return slices.IndexFunc(d.data.Transactions, func(tx Transaction) bool { return tx.ID == id })
}

// AddTransaction validates tx, assigns it an id and appends it.
func (d *Database) AddTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if tx.ID == "" {
		tx.ID = NewTransactionID()
	}
	if d.index(tx.ID) >= 0 {
		return Transaction{}, fmt.Errorf("duplicate transaction id %q", tx.ID)
	}
	tx.AddedAt = d.now()
	d.data.Transactions = append(d.data.Transactions, tx)
	return tx, d.save(ctx)
}

// UpdateTransaction applies update to the transaction with id and validates the result.
func (d *Database) UpdateTransaction(ctx context.Context, id string, update func(*Transaction)) (Transaction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.index(id)
	if i < 0 {
		return Transaction{}, fmt.Errorf("%w: %q", ErrTransactionNotFound, id)
	}
	tx := d.data.Transactions[i]
	update(&tx)
	tx.ID = id
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	d.data.Transactions[i] = tx
	return tx, d.save(ctx)
}

// ReplaceTransactions replaces the transactions with the same ids as updated, with a single write.
func (d *Database) ReplaceTransactions(ctx context.Context, updated []Transaction) error {
	if len(updated) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, tx := range updated {
		i := d.index(tx.ID)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrTransactionNotFound, tx.ID)
		}
		d.data.Transactions[i] = tx
	}
	return d.save(ctx)
}

func (d *Database) DeleteTransaction(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrTransactionNotFound, id)
	}
	d.data.Transactions = slices.Delete(d.data.Transactions, i, i+1)
	return d.save(ctx)
}

// MarkFileProcessed records that the contract note fileID was imported.
func (d *Database) MarkFileProcessed(ctx context.Context, fileID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slices.Contains(d.data.ProcessedFiles, fileID) {
		return nil
	}
	d.data.ProcessedFiles = append(d.data.ProcessedFiles, fileID)
	return d.save(ctx)
}

func (d *Database) IsFileProcessed(fileID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Contains(d.data.ProcessedFiles, fileID)
}

// AddAccount adds or replaces an account.
func (d *Database) AddAccount(ctx context.Context, a Account) error {
	if a.ID == "" {
		return errors.New("account id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = d.now()
	}
	d.data.Accounts[a.ID] = a
	return d.save(ctx)
}

func (d *Database) Accounts() map[string]Account {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.data.Accounts)
}

// AddFavorite adds or replaces a favorite.
func (d *Database) AddFavorite(ctx context.Context, f Favorite) error {
	if f.ID == "" {
		return errors.New("favorite id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = d.now()
	}
	d.data.Favorites[f.ID] = f
	return d.save(ctx)
}

func (d *Database) DeleteFavorite(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.data.Favorites[id]; !ok {
		return fmt.Errorf("%w: %q", ErrFavoriteNotFound, id)
	}
	delete(d.data.Favorites, id)
	return d.save(ctx)
}

func (d *Database) Favorites() map[string]Favorite {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.data.Favorites)
}

// LiveSnapshot implements fx.Store.
func (d *Database) LiveSnapshot() (*fx.Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.data.FXRates[liveKey]
	return s, ok && s != nil
}

// SaveLiveSnapshot implements fx.Store.
func (d *Database) SaveLiveSnapshot(s *fx.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data.FXRates[liveKey] = s
	return d.save(context.Background())
}

// Snapshot implements fx.Store.
func (d *Database) Snapshot(on date.Date) (*fx.Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.data.FXRates[on.String()]
	return s, ok && s != nil
}

// SaveSnapshot implements fx.Store.
func (d *Database) SaveSnapshot(on date.Date, s *fx.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data.FXRates[on.String()] = s
	return d.save(context.Background())
}

// Snapshots implements fx.Store. Keys that are not dates are skipped.
func (d *Database) Snapshots() iter.Seq2[date.Date, *fx.Snapshot] {
	d.mu.RLock()
	dated := make(map[date.Date]*fx.Snapshot, len(d.data.FXRates))
	for k, s := range d.data.FXRates {
		if k == liveKey || s == nil {
			continue
		}
		on, err := date.Parse(k)
		if err != nil {
			continue
		}
		dated[on] = s
	}
	d.mu.RUnlock()
	return maps.All(dated)
}

// ClearFXRates drops every stored snapshot.
func (d *Database) ClearFXRates(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.data.FXRates)
	return d.save(ctx)
}

// LastPrices implements prices.Store.
func (d *Database) LastPrices() map[string]prices.Quote {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.data.Settings.LastPrices)
}

// SaveLastPrices implements prices.Store.
func (d *Database) SaveLastPrices(quotes map[string]prices.Quote) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	maps.Copy(d.data.Settings.LastPrices, quotes)
	return d.save(context.Background())
}
