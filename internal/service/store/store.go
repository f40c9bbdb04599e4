package store

import (
	"context"
	"sync/atomic"
	"time"

	"FinSight/pkg/cache"
	"FinSight/pkg/logger"
)

// Category names a class of cached market data. Each category carries its
// own freshness budget so that slow-moving data (company profiles) outlives
// fast-moving data (spot prices) in the same backing store.
type Category string

const (
	CategoryStockPrice    Category = "stock_price"
	CategoryCryptoPrice   Category = "crypto_price"
	CategoryMarketIndices Category = "market_indices"
	CategoryNews          Category = "news"
	CategoryHistorical    Category = "historical"
	CategoryCompanyInfo   Category = "company_info"
	CategorySentiment     Category = "sentiment"
	CategoryTechnical     Category = "technical"
	CategoryDefault       Category = "default"
)

var categoryTTL = map[Category]time.Duration{
	CategoryStockPrice:    300 * time.Second,
	CategoryCryptoPrice:   180 * time.Second,
	CategoryMarketIndices: 300 * time.Second,
	CategoryNews:          900 * time.Second,
	CategoryHistorical:    3600 * time.Second,
	CategoryCompanyInfo:   86400 * time.Second,
	CategorySentiment:     600 * time.Second,
	CategoryTechnical:     900 * time.Second,
	CategoryDefault:       300 * time.Second,
}

// TTL returns the freshness budget for a category. Unknown categories get
// the default budget.
func TTL(category Category) time.Duration {
	if ttl, ok := categoryTTL[category]; ok {
		return ttl
	}
	return categoryTTL[CategoryDefault]
}

// Metrics receives cache outcome notifications per category.
type Metrics interface {
	RecordCacheHit(category string)
	RecordCacheMiss(category string)
	RecordCacheError(category string)
}

// Stats is a point-in-time snapshot of store effectiveness.
type Stats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	KeyCount   int64   `json:"key_count"`
	MemoryUsed int64   `json:"memory_used_bytes"`
}

// Store wraps a cache backend with per-category TTLs and degrade-to-miss
// semantics. A nil backend is legal: every read misses and every write is
// dropped, which keeps callers working when Redis is down at startup.
type Store struct {
	backend cache.Service
	metrics Metrics
	logger  *logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

type Option func(*Store)

func WithMetrics(m Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New builds a Store over the given backend. backend may be nil.
func New(backend cache.Service, opts ...Option) *Store {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a real backend is attached.
func (s *Store) Available() bool {
	return s.backend != nil
}

// Get loads the value at key into dest and reports whether it was present.
// Backend errors are logged and counted but surface as a plain miss so the
// caller falls through to the upstream fetch.
func (s *Store) Get(ctx context.Context, category Category, key string, dest interface{}) bool {
	if s.backend == nil {
		s.miss(category)
		return false
	}
	err := s.backend.Get(ctx, key, dest)
	switch {
	case err == nil:
		s.hits.Add(1)
		if s.metrics != nil {
			s.metrics.RecordCacheHit(string(category))
		}
		return true
	case err == cache.ErrCacheMiss:
		s.miss(category)
		return false
	default:
		s.misses.Add(1)
		if s.metrics != nil {
			s.metrics.RecordCacheError(string(category))
		}
		if s.logger != nil {
			s.logger.Warn("cache read failed, treating as miss",
				logger.String("key", key),
				logger.Error(err))
		}
		return false
	}
}

// GetMany bulk-loads typed values for keys, returning only the ones
// present. Backend errors degrade to an empty result.
func GetMany[T any](ctx context.Context, s *Store, category Category, keys []string) map[string]T {
	if s.backend == nil || len(keys) == 0 {
		for range keys {
			s.miss(category)
		}
		return map[string]T{}
	}

	found, err := cache.MGetTyped[T](ctx, s.backend, keys...)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("cache bulk read failed, treating as miss",
				logger.Int("keys", len(keys)),
				logger.Error(err))
		}
		for range keys {
			s.misses.Add(1)
			if s.metrics != nil {
				s.metrics.RecordCacheError(string(category))
			}
		}
		return map[string]T{}
	}

	s.hits.Add(int64(len(found)))
	if s.metrics != nil {
		for range found {
			s.metrics.RecordCacheHit(string(category))
		}
	}
	for i := len(found); i < len(keys); i++ {
		s.miss(category)
	}
	return found
}

func (s *Store) miss(category Category) {
	s.misses.Add(1)
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(string(category))
	}
}

// Set writes value under key with the category TTL.
func (s *Store) Set(ctx context.Context, category Category, key string, value interface{}) error {
	return s.SetTTL(ctx, key, value, TTL(category))
}

// SetTTL writes value with an explicit TTL, bypassing the category table.
func (s *Store) SetTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Set(ctx, key, value, ttl); err != nil {
		if s.logger != nil {
			s.logger.Warn("cache write failed",
				logger.String("key", key),
				logger.Error(err))
		}
		return err
	}
	return nil
}

// Delete removes a single key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Delete(ctx, key)
}

// ClearPattern removes every key matching a glob pattern and returns how
// many were dropped.
func (s *Store) ClearPattern(ctx context.Context, pattern string) (int64, error) {
	if s.backend == nil {
		return 0, nil
	}
	return s.backend.DeleteByPattern(ctx, pattern)
}

// Exists reports whether key is present without loading it.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if s.backend == nil {
		return false, nil
	}
	return s.backend.Exists(ctx, key)
}

// Ping checks backend liveness. A nil backend reports unavailable without
// an error so health endpoints can distinguish "down" from "degraded".
func (s *Store) Ping(ctx context.Context) bool {
	if s.backend == nil {
		return false
	}
	return s.backend.Ping(ctx) == nil
}

// Stats reports hit/miss counters plus backend key count and memory use.
func (s *Store) Stats(ctx context.Context) Stats {
	hits := s.hits.Load()
	misses := s.misses.Load()
	st := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		st.HitRate = float64(hits) / float64(total)
	}
	if s.backend != nil {
		if backendStats, err := s.backend.Stats(ctx); err == nil {
			st.KeyCount = backendStats.KeyCount
			st.MemoryUsed = backendStats.MemoryUsed
		} else if s.logger != nil {
			s.logger.Warn("cache stats unavailable", logger.Error(err))
		}
	}
	return st
}
