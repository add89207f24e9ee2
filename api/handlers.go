package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/etnz/stocktracker"
	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/fx"
	"github.com/etnz/stocktracker/prices"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func (s *Server) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// currency returns the currency query parameter, the document's reporting currency when absent.
func (s *Server) currency(r *http.Request) (string, error) {
	cur := strings.ToUpper(r.URL.Query().Get("currency"))
	if cur == "" {
		return s.DB.ReportingCurrency(), nil
	}
	return cur, stocktracker.ValidateCurrency(cur)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("symbol is required"))
		return
	}
	q, ok := s.Prices.Quote(r.Context(), symbol, strings.ToUpper(r.URL.Query().Get("exchange")))
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("%s: %w", symbol, prices.ErrNoPrice))
		return
	}
	writeJSON(w, r, http.StatusOK, q)
}

type refreshResponse struct {
	Quotes map[string]prices.Quote `json:"quotes"`
	Errors []string                `json:"errors,omitempty"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.Prices.RefreshAll(r.Context(), stocktracker.Instruments(s.DB.Transactions()))
	res := refreshResponse{Quotes: quotes}
	if err != nil {
		res.Errors = strings.Split(err.Error(), "\n")
	}
	writeJSON(w, r, http.StatusOK, res)
}

type holdingResponse struct {
	stocktracker.Holding
	AverageCost          decimal.Decimal `json:"averageCost"`
	AverageCostReporting decimal.Decimal `json:"averageCostReporting"`
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	cur, err := s.currency(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	holdings := stocktracker.CalculateHoldings(s.DB.Transactions(), cur)
	res := make([]holdingResponse, 0, len(holdings))
	for _, h := range holdings {
		res = append(res, holdingResponse{Holding: h, AverageCost: h.AverageCost(), AverageCostReporting: h.AverageCostReporting()})
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	cur, err := s.currency(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	c := stocktracker.Calculator{Rates: s.Rates, Prices: s.Prices, Now: s.now}
	writeJSON(w, r, http.StatusOK, c.PortfolioStats(r.Context(), s.DB.Transactions(), cur))
}

func (s *Server) handleLatestRates(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Rates.LiveRates(r.Context())
	if err != nil {
		writeError(w, r, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

type rateResponse struct {
	From   string           `json:"from"`
	To     string           `json:"to"`
	Date   date.Date        `json:"date"`
	Rate   decimal.Decimal  `json:"rate"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Result *decimal.Decimal `json:"result,omitempty"`
}

// handleRate returns the live rate, or the historical one when date is given. With an
// amount it also returns the converted amount.
func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := rateResponse{From: strings.ToUpper(q.Get("from")), To: strings.ToUpper(q.Get("to"))}
	if res.From == "" || res.To == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("from and to are required"))
		return
	}
	if v := q.Get("date"); v != "" {
		day, err := date.Parse(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		res.Date = day
	}
	if v := q.Get("amount"); v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid amount: %w", err))
			return
		}
		res.Amount = &amount
	}

	var err error
	if res.Date.IsZero() {
		res.Rate, err = s.Rates.Rate(r.Context(), res.From, res.To)
	} else {
		res.Rate, err = s.Rates.HistoricalRate(r.Context(), res.Date, res.From, res.To)
	}
	switch {
	case errors.Is(err, fx.ErrUnknownCurrency):
		writeError(w, r, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, r, http.StatusBadGateway, err)
		return
	}
	if res.Amount != nil {
		v := res.Amount.Mul(res.Rate)
		res.Result = &v
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	cur, err := s.currency(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	res, err := stocktracker.BackfillFXRates(r.Context(), s.DB, s.Rates, cur)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleTransactions lists transactions, optionally filtered by symbol, account and
// a FROM..TO date range.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txs := s.DB.Transactions()
	if v := q.Get("symbol"); v != "" {
		txs = stocktracker.SymbolHistory(txs, strings.ToUpper(v))
	}
	if v := q.Get("account"); v != "" {
		txs = stocktracker.AccountTransactions(txs, v)
	}
	if v := q.Get("range"); v != "" {
		rg, err := date.ParseRange(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		txs = stocktracker.InRange(txs, rg)
	}
	if txs == nil {
		txs = []stocktracker.Transaction{}
	}
	writeJSON(w, r, http.StatusOK, txs)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	cur, err := s.currency(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")
	accounts := s.DB.Accounts()
	if _, ok := accounts[id]; !ok {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("unknown account %q", id))
		return
	}
	writeJSON(w, r, http.StatusOK, stocktracker.SummarizeAccount(s.DB.Transactions(), accounts, id, cur))
}
