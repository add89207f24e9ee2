// Package api serves the portfolio valuation over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/etnz/stocktracker"
	"github.com/etnz/stocktracker/date"
	"github.com/etnz/stocktracker/fx"
	"github.com/etnz/stocktracker/prices"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RateService is the part of fx.Service the server uses.
type RateService interface {
	LiveRates(ctx context.Context) (*fx.Snapshot, error)
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	HistoricalRate(ctx context.Context, day date.Date, from, to string) (decimal.Decimal, error)
	ConvertHistorical(ctx context.Context, amount decimal.Decimal, from, to string, day date.Date) (decimal.Decimal, error)
}

// PriceService is the part of prices.Service the server uses.
type PriceService interface {
	Quote(ctx context.Context, symbol, exchange string) (prices.Quote, bool)
	RefreshAll(ctx context.Context, instruments []prices.Instrument) (map[string]prices.Quote, error)
}

// Server exposes the portfolio of DB.
type Server struct {
	DB          *stocktracker.Database
	Rates       RateService
	Prices      PriceService
	CORSOrigins []string
	Now         func() time.Time // defaults to time.Now
}

// NewServer returns a server allowing every origin.
func NewServer(db *stocktracker.Database, rates RateService, quotes PriceService) *Server {
	return &Server{DB: db, Rates: rates, Prices: quotes, CORSOrigins: []string{"*"}}
}

// Router returns the http handler of the server.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().Str("method", r.Method).Stringer("url", r.URL).
			Int("status", status).Int("size", size).Dur("duration", duration).Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/prices", s.handlePrice)
		r.Post("/prices/refresh", s.handleRefresh)
		r.Get("/holdings", s.handleHoldings)
		r.Get("/stats", s.handleStats)
		r.Get("/fx/latest", s.handleLatestRates)
		r.Get("/fx/rate", s.handleRate)
		r.Post("/fx/backfill", s.handleBackfill)
		r.Get("/transactions", s.handleTransactions)
		r.Get("/accounts/{id}", s.handleAccount)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("serving")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("cannot write response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	level := zerolog.DebugLevel
	if status >= http.StatusInternalServerError {
		level = zerolog.WarnLevel
	}
	hlog.FromRequest(r).WithLevel(level).Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, r, status, apiError{Error: err.Error()})
}
