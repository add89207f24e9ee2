package prices

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/etnz/stocktracker/date"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCacheTTL      = 15 * time.Minute
	DefaultFailureWindow = 5 * time.Minute
)

type entry struct {
	quote     Quote
	fetchedAt time.Time
}

// Service answers price lookups. Its caches are owned by the instance.
type Service struct {
	provider      Provider
	store         Store
	ttl           time.Duration
	failureWindow time.Duration
	quota         int // 0 is unlimited
	now           func() time.Time

	mu        sync.Mutex
	cache     map[string]entry
	failures  map[string]time.Time
	lastKnown map[string]Quote
	callsDay  date.Date
	calls     int
}

// Option configures a Service.
type Option func(*Service)

func WithCacheTTL(ttl time.Duration) Option    { return func(s *Service) { s.ttl = ttl } }
func WithFailureWindow(d time.Duration) Option { return func(s *Service) { s.failureWindow = d } }
func WithDailyQuota(n int) Option              { return func(s *Service) { s.quota = n } }
func WithClock(now func() time.Time) Option    { return func(s *Service) { s.now = now } }

// NewService returns a Service fetching from p. Last-known-good quotes are loaded from store,
// which may be nil.
func NewService(p Provider, store Store, opts ...Option) *Service {
	s := &Service{
		provider:      p,
		store:         store,
		ttl:           DefaultCacheTTL,
		failureWindow: DefaultFailureWindow,
		now:           time.Now,
		cache:         make(map[string]entry),
		failures:      make(map[string]time.Time),
		lastKnown:     make(map[string]Quote),
	}
	for _, opt := range opts {
		opt(s)
	}
	if store != nil {
		for ticker, q := range store.LastPrices() {
			// a stale quote must tell how old it is.
			if q.AsOf.IsZero() {
				log.Debug().Str("ticker", ticker).Msg("ignoring stored price without as-of time")
				continue
			}
			s.lastKnown[ticker] = q
		}
	}
	return s
}

// consume records one upstream call against the daily quota. s.mu must be held.
func (s *Service) consume(now time.Time) bool {
	today := date.Of(now)
	if today != s.callsDay {
		s.callsDay, s.calls = today, 0
	}
	if s.quota > 0 && s.calls >= s.quota {
		return false
	}
	s.calls++
	return true
}

func (s *Service) fetch(ctx context.Context, ticker string, now time.Time) (Quote, error) {
	q, err := s.provider.Fetch(ctx, ticker)
	if err != nil {
		return Quote{}, err
	}
	q = normalize(q)
	if !q.Price.IsPositive() {
		return Quote{}, fmt.Errorf("%w for %s: price %v", ErrNoPrice, ticker, q.Price)
	}
	q.Ticker = ticker
	q.Stale = false
	q.Source = s.provider.Name()
	if q.AsOf.IsZero() {
		q.AsOf = now
	}
	return q, nil
}

// Quote returns the current price of symbol listed on exchange.
//
// A fresh cached quote is returned as is. Otherwise, unless a lookup of the same ticker
// failed within the failure window, the provider is called. When no fresh price can be
// obtained the last-known-good quote is returned with Stale set. The boolean is false only
// when no price was ever known for the ticker.
func (s *Service) Quote(ctx context.Context, symbol, exchange string) (Quote, bool) {
	ticker := s.provider.Ticker(symbol, exchange)
	now := s.now()

	s.mu.Lock()
	if e, ok := s.cache[ticker]; ok && now.Sub(e.fetchedAt) < s.ttl {
		s.mu.Unlock()
		return e.quote, true
	}
	failedAt, failed := s.failures[ticker]
	suppressed := failed && now.Sub(failedAt) < s.failureWindow
	allowed := !suppressed && s.consume(now)
	s.mu.Unlock()

	switch {
	case suppressed:
		log.Debug().Str("ticker", ticker).Time("failedAt", failedAt).Msg("skipping recently failed price lookup")
	case !allowed:
		log.Warn().Str("ticker", ticker).Int("quota", s.quota).Err(ErrQuotaExceeded).Msg("price lookup skipped")
	default:
		q, err := s.fetch(ctx, ticker, now)
		s.mu.Lock()
		if err == nil {
			s.cache[ticker] = entry{quote: q, fetchedAt: now}
			s.lastKnown[ticker] = q
			delete(s.failures, ticker)
			s.mu.Unlock()
			s.persist(ticker, q)
			return q, true
		}
		s.failures[ticker] = now
		s.mu.Unlock()
		log.Warn().Err(err).Str("ticker", ticker).Msg("price lookup failed")
	}

	s.mu.Lock()
	q, ok := s.lastKnown[ticker]
	s.mu.Unlock()
	if !ok {
		return Quote{}, false
	}
	q.Stale = true
	return q, true
}

// persist records q as the last-known-good quote of ticker in the store, so that a later
// session can still show it when the provider is unreachable.
func (s *Service) persist(ticker string, q Quote) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveLastPrices(map[string]Quote{ticker: q}); err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("cannot persist last price")
	}
}

// RefreshAll drops the caches, fetches every instrument and persists the
// last-known-good quotes. It returns the quotes by symbol and the joined errors of
// the instruments for which no price is known at all.
func (s *Service) RefreshAll(ctx context.Context, instruments []Instrument) (map[string]Quote, error) {
	s.ClearCache()

	var (
		mu     sync.Mutex
		quotes = make(map[string]Quote, len(instruments))
		errs   []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, in := range instruments {
		g.Go(func() error {
			q, ok := s.Quote(ctx, in.Symbol, in.Exchange)
			mu.Lock()
			defer mu.Unlock()
			if !ok {
				errs = append(errs, fmt.Errorf("%s: %w", in.Symbol, ErrNoPrice))
				return nil
			}
			quotes[in.Symbol] = q
			return nil
		})
	}
	g.Wait() // tasks never fail, errors are collected in errs

	if s.store != nil {
		s.mu.Lock()
		snapshot := maps.Clone(s.lastKnown)
		s.mu.Unlock()
		if err := s.store.SaveLastPrices(snapshot); err != nil {
			errs = append(errs, fmt.Errorf("cannot persist last prices: %w", err))
		}
	}
	return quotes, errors.Join(errs...)
}

// ClearCache drops the fresh quotes and the failure markers. Last-known-good quotes are kept.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
	clear(s.failures)
}

// CacheInfo describes the state of the caches.
type CacheInfo struct {
	Cached     int           `json:"cached"`
	Oldest     time.Duration `json:"oldest"`
	LastKnown  int           `json:"lastKnown"`
	CallsToday int           `json:"callsToday"`
	Quota      int           `json:"quota"`
}

func (s *Service) CacheInfo() CacheInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	info := CacheInfo{Cached: len(s.cache), LastKnown: len(s.lastKnown), Quota: s.quota}
	if date.Of(now) == s.callsDay {
		info.CallsToday = s.calls
	}
	for _, e := range s.cache {
		info.Oldest = max(info.Oldest, now.Sub(e.fetchedAt))
	}
	return info
}
