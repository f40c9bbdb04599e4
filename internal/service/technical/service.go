package technical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinSight/internal/coalesce"
	"FinSight/internal/domain/models"
	"FinSight/internal/service/store"
	"FinSight/pkg/cache"
	"FinSight/pkg/logger"
)

// ErrUnavailable means price history could not be fetched after retries.
// Callers never receive a partial snapshot.
var ErrUnavailable = errors.New("technical: price history unavailable")

// HistoryProvider fetches daily price history, most recent bar last.
type HistoryProvider interface {
	DailyHistory(ctx context.Context, symbol string, days int) ([]models.PricePoint, error)
}

// Service computes technical snapshots on demand and caches them at two
// layers: a bounded process-local cache and the shared store. Duplicate
// concurrent requests for one symbol collapse into a single history fetch.
type Service struct {
	provider  HistoryProvider
	local     *cache.MemoryCache
	store     *store.Store
	coalescer *coalesce.Coalescer
	logger    *logger.Logger

	historyDays  int
	maxRetries   int
	retryBackoff time.Duration
	cacheTTL     time.Duration
	localEntries int
	now          func() time.Time
}

type Option func(*Service)

func WithHistoryDays(days int) Option {
	return func(s *Service) { s.historyDays = days }
}

func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		s.maxRetries = attempts
		s.retryBackoff = backoff
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

func WithLocalEntries(n int) Option {
	return func(s *Service) { s.localEntries = n }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(provider HistoryProvider, st *store.Store, c *coalesce.Coalescer, opts ...Option) *Service {
	s := &Service{
		provider:     provider,
		store:        st,
		coalescer:    c,
		historyDays:  180,
		maxRetries:   3,
		retryBackoff: 500 * time.Millisecond,
		cacheTTL:     15 * time.Minute,
		localEntries: 256,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.local = cache.NewMemoryCache(
		cache.WithMemoryMaxSize(s.localEntries),
		cache.WithMemoryDefaultTTL(s.cacheTTL),
	)
	return s
}

// Close releases the process-local cache.
func (s *Service) Close() error {
	return s.local.Close()
}

// Compute derives the full indicator set from a price series. It is pure:
// no caching, no fetching.
func Compute(symbol string, points []models.PricePoint, at time.Time) models.TechnicalSnapshot {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	current := 0.0
	if len(closes) > 0 {
		current = closes[len(closes)-1]
	}

	rsi := RSI(closes)
	macd := MACD(closes)
	sma20 := SMA(closes, smaShortPeriod)
	sma50 := SMA(closes, smaLongPeriod)
	bands := Bollinger(closes)
	signal, strength := DeriveSignal(current, rsi, macd, sma20, sma50, bands)

	return models.TechnicalSnapshot{
		Symbol:       symbol,
		CurrentPrice: current,
		RSI:          rsi,
		MACD:         macd,
		SMA20:        sma20,
		SMA50:        sma50,
		Bollinger:    bands,
		Signal:       signal,
		Strength:     strength,
		LastUpdated:  at,
	}
}

// Get returns the technical snapshot for symbol, serving from the local
// cache, then the shared store, then a coalesced fetch-and-compute.
func (s *Service) Get(ctx context.Context, symbol string) (models.TechnicalSnapshot, error) {
	key := fmt.Sprintf("technical:%s", symbol)

	var snap models.TechnicalSnapshot
	if err := s.local.Get(ctx, key, &snap); err == nil {
		return snap, nil
	}
	if s.store.Get(ctx, store.CategoryTechnical, key, &snap) {
		_ = s.local.Set(ctx, key, snap, s.cacheTTL)
		return snap, nil
	}

	return coalesce.Do(ctx, s.coalescer, key, func(ctx context.Context) (models.TechnicalSnapshot, error) {
		points, err := s.fetchHistory(ctx, symbol)
		if err != nil {
			return models.TechnicalSnapshot{}, err
		}

		snap := Compute(symbol, points, s.now())
		_ = s.local.Set(ctx, key, snap, s.cacheTTL)
		if err := s.store.SetTTL(ctx, key, snap, s.cacheTTL); err != nil && s.logger != nil {
			s.logger.Warn("technical snapshot not cached",
				logger.String("symbol", symbol),
				logger.Error(err))
		}
		return snap, nil
	})
}

// fetchHistory retries transient failures and empty results with
// exponential backoff before giving up.
func (s *Service) fetchHistory(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	var lastErr error
	backoff := s.retryBackoff

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		points, err := s.provider.DailyHistory(ctx, symbol, s.historyDays)
		if err == nil && len(points) > 0 {
			return points, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("empty history for %s", symbol)
		}
		if s.logger != nil {
			s.logger.Warn("history fetch failed",
				logger.String("symbol", symbol),
				logger.Int("attempt", attempt),
				logger.Error(lastErr))
		}

		if attempt == s.maxRetries {
			break
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
