package stocktracker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/etnz/stocktracker/date"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the direction of a transaction.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// FXSource tells where the exchange rate captured on a transaction came from.
type FXSource string

const (
	FXContract FXSource = "contract" // printed on the contract note
	FXAPI      FXSource = "api"      // fetched from the rate provider
	FXManual   FXSource = "manual"
	FXFallback FXSource = "fallback" // an approximation to be replaced by a backfill
	FXNone     FXSource = "none"
)

// Transaction records one buy or sell fill.
//
// Amounts are in Currency. The optional *InBase amounts are the same values converted
// into BaseCurrency when the transaction was entered, at FXRate.
type Transaction struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"accountId,omitempty"`
	Date           date.Date `json:"date" validate:"required"`
	SettlementDate date.Date `json:"settlementDate"`
	Type           Side      `json:"type" validate:"oneof=buy sell"`
	Symbol         string    `json:"symbol" validate:"required"`
	Company        string    `json:"company,omitempty"`
	Exchange       string    `json:"exchange,omitempty"`

	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	Currency string          `json:"currency" validate:"iso4217"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
	Fees     decimal.Decimal `json:"fees" validate:"gte=0"`
	Total    decimal.Decimal `json:"total" validate:"gte=0"`

	FXRate       *decimal.Decimal `json:"fxRate,omitempty" validate:"omitnil,gt=0"`
	FXRateSource FXSource         `json:"fxRateSource,omitempty" validate:"omitempty,oneof=contract api manual fallback none"`
	FXRateDate   date.Date        `json:"fxRateDate"`
	BaseCurrency string           `json:"baseCurrency,omitempty" validate:"omitempty,iso4217"`
	PriceInBase  *decimal.Decimal `json:"priceInBase,omitempty"`
	FeesInBase   *decimal.Decimal `json:"feesInBase,omitempty"`
	TotalInBase  *decimal.Decimal `json:"totalInBase,omitempty"`

	Broker         string    `json:"broker,omitempty"`
	ContractNoteNo string    `json:"contractNoteNo,omitempty"`
	AddedAt        time.Time `json:"addedAt"`
}

// NewTransactionID returns a fresh unique transaction id.
func NewTransactionID() string { return "txn_" + uuid.NewString() }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func transactionValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			return name
		})
		validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
			return v.Interface().(decimal.Decimal).InexactFloat64()
		}, decimal.Decimal{})
		validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
			if d := v.Interface().(date.Date); !d.IsZero() {
				return d.String()
			}
			return ""
		}, date.Date{})
	})
	return validate
}

// Validate checks that the transaction is well formed.
func (t Transaction) Validate() error {
	err := transactionValidator().Struct(t)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is not %s: %v", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid transaction %s %s: %s", t.Symbol, t.Date, strings.Join(msgs, "; "))
}

// totalIn returns the total of the transaction expressed in currency when it is known
// without a conversion: either the native total or the amount captured at entry time.
func (t Transaction) totalIn(currency string) (decimal.Decimal, bool) {
	if t.Currency == currency {
		return t.Total, true
	}
	if t.TotalInBase != nil && t.BaseCurrency == currency {
		return *t.TotalInBase, true
	}
	return decimal.Zero, false
}

// feesIn is like totalIn for fees.
func (t Transaction) feesIn(currency string) (decimal.Decimal, bool) {
	if t.Currency == currency {
		return t.Fees, true
	}
	if t.FeesInBase != nil && t.BaseCurrency == currency {
		return *t.FeesInBase, true
	}
	return decimal.Zero, false
}
