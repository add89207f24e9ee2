package stocktracker

import (
	"slices"
	"time"

	"github.com/etnz/stocktracker/fx"
	"github.com/etnz/stocktracker/prices"
)

// DocumentVersion is written in new documents.
const DocumentVersion = "1.0.0"

// liveKey is the fxRates key of the live snapshot, dated snapshots use YYYY-MM-DD.
const liveKey = "live"

// Data is the portfolio document, persisted wholesale.
type Data struct {
	Accounts       map[string]Account      `json:"accounts"`
	Transactions   []Transaction           `json:"transactions"`
	ProcessedFiles []string                `json:"processedFiles"`
	Favorites      map[string]Favorite     `json:"favorites"`
	FXRates        map[string]*fx.Snapshot `json:"fxRates"`
	Settings       Settings                `json:"settings"`
	Created        time.Time               `json:"created"`
	Version        string                  `json:"version,omitempty"`
	LastModified   time.Time               `json:"lastModified"`
}

// Settings are the user preferences stored in the document.
type Settings struct {
	BaseCurrency string                  `json:"baseCurrency"`
	CreatedAt    time.Time               `json:"createdAt"`
	LastPrices   map[string]prices.Quote `json:"lastPrices,omitempty"`
}

// Account is a brokerage account transactions are booked in.
type Account struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	AccountNumber   string    `json:"accountNumber,omitempty"`
	Broker          string    `json:"broker,omitempty"`
	Platform        string    `json:"platform,omitempty"`
	DefaultCurrency string    `json:"defaultCurrency,omitempty"`
	AccountType     string    `json:"accountType,omitempty"`
	Holders         []string  `json:"holders,omitempty"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	Notes           string    `json:"notes,omitempty"`
}

// Favorite is a saved combination of filters.
type Favorite struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	View      string          `json:"view,omitempty"`
	Filters   FavoriteFilters `json:"filters"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FavoriteFilters restricts transactions to accounts and account holders. Empty lists match all.
type FavoriteFilters struct {
	Accounts []string `json:"accounts"`
	Holders  []string `json:"holders"`
}

// Filter returns the transactions matching the favorite's filters.
func (f Favorite) Filter(transactions []Transaction, accounts map[string]Account) []Transaction {
	return filter(transactions, func(tx Transaction) bool {
		if len(f.Filters.Accounts) > 0 && !slices.Contains(f.Filters.Accounts, tx.AccountID) {
			return false
		}
		if len(f.Filters.Holders) > 0 {
			holders := accounts[tx.AccountID].Holders
			return slices.ContainsFunc(holders, func(h string) bool { return slices.Contains(f.Filters.Holders, h) })
		}
		return true
	})
}

// newData returns an empty document.
func newData(reporting string, now time.Time) *Data {
	d := &Data{
		Settings: Settings{BaseCurrency: reporting, CreatedAt: now},
		Created:  now,
		Version:  DocumentVersion,
	}
	d.normalize(reporting)
	return d
}

// normalize fills missing collections so the document can be mutated safely.
func (d *Data) normalize(reporting string) {
	if d.Accounts == nil {
		d.Accounts = make(map[string]Account)
	}
	if d.Transactions == nil {
		d.Transactions = []Transaction{}
	}
	if d.ProcessedFiles == nil {
		d.ProcessedFiles = []string{}
	}
	if d.Favorites == nil {
		d.Favorites = make(map[string]Favorite)
	}
	if d.FXRates == nil {
		d.FXRates = make(map[string]*fx.Snapshot)
	}
	if d.Settings.BaseCurrency == "" {
		d.Settings.BaseCurrency = reporting
	}
	if d.Settings.LastPrices == nil {
		d.Settings.LastPrices = make(map[string]prices.Quote)
	}
}
