package stocktracker

import (
	"context"
	"fmt"

	"github.com/etnz/stocktracker/date"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// HistoricalRates returns the rate to convert from into to on a given day.
type HistoricalRates interface {
	HistoricalRate(ctx context.Context, day date.Date, from, to string) (decimal.Decimal, error)
}

// BackfillResult counts the transactions processed by BackfillFXRates.
type BackfillResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// needsBackfill reports whether tx lacks a trustworthy conversion into reporting.
func needsBackfill(tx Transaction, reporting string) bool {
	if tx.Currency == reporting {
		return false
	}
	return tx.FXRate == nil || tx.FXRateSource == FXFallback
}

// BackfillFXRates fills the conversion fields of the transactions of db that are in a
// foreign currency and have no rate or only a fallback one, using the historical rate of
// their trade date. The document is written once at the end.
func BackfillFXRates(ctx context.Context, db *Database, rates HistoricalRates, reporting string) (BackfillResult, error) {
	var res BackfillResult
	var updated []Transaction
	for _, tx := range db.Transactions() {
		if !needsBackfill(tx, reporting) {
			continue
		}
		rate, err := rates.HistoricalRate(ctx, tx.Date, tx.Currency, reporting)
		if err != nil {
			log.Warn().Err(err).Str("id", tx.ID).Str("symbol", tx.Symbol).Stringer("date", tx.Date).Msg("cannot backfill rate")
			res.Failed++
			continue
		}
		priceIn, feesIn, totalIn := tx.Price.Mul(rate), tx.Fees.Mul(rate), tx.Total.Mul(rate)
		tx.FXRate = &rate
		tx.FXRateSource = FXAPI
		tx.FXRateDate = tx.Date
		tx.BaseCurrency = reporting
		tx.PriceInBase = &priceIn
		tx.FeesInBase = &feesIn
		tx.TotalInBase = &totalIn
		updated = append(updated, tx)
	}
	res.Updated = len(updated)
	if err := db.ReplaceTransactions(ctx, updated); err != nil {
		return res, fmt.Errorf("cannot save backfilled transactions: %w", err)
	}
	log.Info().Int("updated", res.Updated).Int("failed", res.Failed).Str("currency", reporting).Msg("fx backfill done")
	return res, nil
}
