package fx

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/etnz/stocktracker/date"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DefaultLiveTTL is how long a fetched live snapshot is served from memory.
const DefaultLiveTTL = time.Hour

// Service answers rate and conversion queries. Its caches are owned by the instance.
type Service struct {
	provider   Provider
	store      Store
	ttl        time.Duration
	currencies []string
	now        func() time.Time

	liveMu sync.Mutex // serialises live fetches
	live   *Snapshot
}

// Option configures a Service.
type Option func(*Service)

// WithLiveTTL sets how long the live snapshot is reused.
func WithLiveTTL(ttl time.Duration) Option { return func(s *Service) { s.ttl = ttl } }

// WithCurrencies sets the currencies kept from provider responses. The pivot is always kept.
func WithCurrencies(currencies ...string) Option {
	return func(s *Service) { s.currencies = currencies }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService returns a Service fetching from p and persisting into store.
// A nil store keeps snapshots in memory only.
func NewService(p Provider, store Store, opts ...Option) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	s := &Service{
		provider:   p,
		store:      store,
		ttl:        DefaultLiveTTL,
		currencies: DefaultCurrencies,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// snapshot builds a Snapshot from a provider response, keeping only supported currencies.
func (s *Service) snapshot(on date.Date, rates map[string]decimal.Decimal) *Snapshot {
	snap := &Snapshot{
		Base:      Pivot,
		Date:      on,
		Rates:     make(map[string]decimal.Decimal, len(s.currencies)),
		FetchedAt: s.now(),
	}
	for cur, r := range rates {
		if slices.Contains(s.currencies, cur) {
			snap.Rates[cur] = r
		}
	}
	snap.Rates[Pivot] = decimal.NewFromInt(1)
	return snap
}

// LiveRates returns the live snapshot, fetching a new one when the cached one is older than the TTL.
// If the fetch fails, the last persisted live snapshot is returned instead.
func (s *Service) LiveRates(ctx context.Context) (*Snapshot, error) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()

	if s.live != nil && s.now().Sub(s.live.FetchedAt) < s.ttl {
		return s.live, nil
	}

	on, rates, err := s.provider.Latest(ctx, Pivot)
	if err != nil {
		if snap, ok := s.store.LiveSnapshot(); ok {
			log.Warn().Err(err).Time("fetchedAt", snap.FetchedAt).Msg("live rates unavailable, using stored snapshot")
			return snap, nil
		}
		return nil, fmt.Errorf("%w: cannot fetch live rates: %w", ErrNoRates, err)
	}
	snap := s.snapshot(on, rates)
	s.live = snap
	if err := s.store.SaveLiveSnapshot(snap); err != nil {
		log.Warn().Err(err).Msg("cannot persist live rates")
	}
	log.Debug().Stringer("date", on).Int("currencies", len(snap.Rates)).Msg("fetched live rates")
	return snap, nil
}

// Rate returns the live rate to convert from into to.
func (s *Service) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	snap, err := s.LiveRates(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.Rate(from, to)
}

// Convert converts amount from one currency to another at the live rate.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	r, err := s.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(r), nil
}

// RatesForDate returns the snapshot stored for day, fetching and persisting it if needed.
//
// When the provider fails, the stored snapshot with the nearest date is returned
// without being recorded under day, so that a later call can still fetch the real rates.
// An error is returned only when the store holds no dated snapshot at all.
func (s *Service) RatesForDate(ctx context.Context, day date.Date) (*Snapshot, error) {
	if snap, ok := s.store.Snapshot(day); ok {
		return snap, nil
	}

	on, rates, err := s.provider.OnDate(ctx, Pivot, day)
	if err == nil {
		snap := s.snapshot(on, rates)
		if err := s.store.SaveSnapshot(day, snap); err != nil {
			log.Warn().Err(err).Stringer("date", day).Msg("cannot persist historical rates")
		}
		log.Debug().Stringer("date", day).Stringer("providerDate", on).Msg("fetched historical rates")
		return snap, nil
	}

	var stored date.History[*Snapshot]
	for on, snap := range s.store.Snapshots() {
		stored.Append(on, snap)
	}
	nearest, snap, ok := stored.Nearest(day)
	if !ok {
		return nil, fmt.Errorf("%w for %v: %w", ErrNoRates, day, err)
	}
	log.Warn().Err(err).Stringer("date", day).Stringer("nearest", nearest).Msg("historical rates unavailable, using nearest stored date")
	return snap, nil
}

// HistoricalRate returns the rate to convert from into to on day.
func (s *Service) HistoricalRate(ctx context.Context, day date.Date, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	snap, err := s.RatesForDate(ctx, day)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.Rate(from, to)
}

// ConvertHistorical converts amount from one currency to another at the rate of day.
func (s *Service) ConvertHistorical(ctx context.Context, amount decimal.Decimal, from, to string, day date.Date) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	r, err := s.HistoricalRate(ctx, day, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(r), nil
}

// ClearCache forgets the in-memory live snapshot. Persisted snapshots are kept.
func (s *Service) ClearCache() {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	s.live = nil
}
