package ai

import (
	"context"
	"errors"
	"time"

	"FinSight/internal/domain/models"
	"FinSight/internal/service/ratelimit"
	"FinSight/internal/service/store"
	"FinSight/pkg/logger"
)

// AnalysisBackend is the conversational model used for deep analysis.
type AnalysisBackend interface {
	Configured() bool
	Complete(ctx context.Context, query, systemPrompt string) (string, error)
	Stream(ctx context.Context, query, systemPrompt string, emit func(delta string) error) (string, error)
}

// LiveBackend is the search-grounded model used for current market data.
type LiveBackend interface {
	Configured() bool
	Search(ctx context.Context, query string) (string, []models.Citation, error)
}

// Metrics receives provider call outcomes.
type Metrics interface {
	RecordProviderCall(provider, outcome string, seconds float64)
	RecordRateLimited()
}

// Service orchestrates chat queries: rate limiting, answer caching,
// provider routing, action extraction.
type Service struct {
	analysis AnalysisBackend
	live     LiveBackend
	store    *store.Store
	limiter  *ratelimit.Limiter
	metrics  Metrics
	logger   *logger.Logger

	timeout  time.Duration
	cacheTTL time.Duration
}

type ServiceOption func(*Service)

func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = timeout }
}

func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.cacheTTL = ttl }
}

func WithServiceMetrics(m Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithServiceLogger(l *logger.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

func NewService(analysis AnalysisBackend, live LiveBackend, st *store.Store, limiter *ratelimit.Limiter, opts ...ServiceOption) *Service {
	s := &Service{
		analysis: analysis,
		live:     live,
		store:    st,
		limiter:  limiter,
		timeout:  30 * time.Second,
		cacheTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// route picks the backend for a query, honoring an explicit override.
func route(q models.ChatQuery) models.Provider {
	if q.Provider == models.ProviderClaude || q.Provider == models.ProviderPerplexity {
		return q.Provider
	}
	return Classify(q.Query)
}

// Answer resolves a chat query to its final result. The rate limit is
// checked before anything else so a rejected request has no side effects.
func (s *Service) Answer(ctx context.Context, q models.ChatQuery) (models.ChatResult, error) {
	if s.limiter != nil && !s.limiter.Allow(q.Context.UserID) {
		if s.metrics != nil {
			s.metrics.RecordRateLimited()
		}
		return models.ChatResult{}, ErrRateLimited
	}

	key := cacheKey(q.Query, q.Context)
	var cached models.ChatResult
	if s.store.Get(ctx, store.CategoryDefault, key, &cached) {
		return cached, nil
	}

	provider := route(q)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	result, err := s.dispatch(ctx, provider, q)
	s.recordCall(provider, started, err)
	if err != nil {
		return models.ChatResult{}, s.classifyFailure(ctx, provider, err)
	}

	if err := s.store.SetTTL(context.WithoutCancel(ctx), key, result, s.cacheTTL); err != nil && s.logger != nil {
		s.logger.Warn("chat answer not cached", logger.Error(err))
	}
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, provider models.Provider, q models.ChatQuery) (models.ChatResult, error) {
	switch provider {
	case models.ProviderClaude:
		if !s.analysis.Configured() {
			return notConfiguredResult(models.ProviderClaude,
				"Claude API key not configured. Please add your Anthropic API key for advanced analysis."), nil
		}
		content, err := s.analysis.Complete(ctx, q.Query, buildAnalysisPrompt(q.Context))
		if err != nil {
			return models.ChatResult{}, err
		}
		return models.ChatResult{
			Content:  content,
			Actions:  ExtractActions(content, q.Context.Watchlist),
			Provider: models.ProviderClaude,
		}, nil

	default:
		if !s.live.Configured() {
			return notConfiguredResult(models.ProviderPerplexity,
				"Perplexity API key not configured. Please add your API key to use real-time market search."), nil
		}
		content, citations, err := s.live.Search(ctx, enhanceLiveQuery(q.Query, q.Context.Watchlist))
		if err != nil {
			return models.ChatResult{}, err
		}
		return models.ChatResult{
			Content:  content,
			Sources:  citations,
			Actions:  ExtractActions(content, q.Context.Watchlist),
			Provider: models.ProviderPerplexity,
		}, nil
	}
}

// AnswerStream resolves a query through the streaming analysis backend,
// emitting one event per text delta and a final event carrying the
// extracted actions. Streaming is only offered by the analysis backend,
// so routing is bypassed.
func (s *Service) AnswerStream(ctx context.Context, q models.ChatQuery, emit func(models.StreamEvent) error) error {
	if s.limiter != nil && !s.limiter.Allow(q.Context.UserID) {
		if s.metrics != nil {
			s.metrics.RecordRateLimited()
		}
		return ErrRateLimited
	}

	if !s.analysis.Configured() {
		return emit(models.StreamEvent{
			Error: "Claude API not configured",
			Done:  true,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	content, err := s.analysis.Stream(ctx, q.Query, buildAnalysisPrompt(q.Context), func(delta string) error {
		return emit(models.StreamEvent{Delta: delta, Provider: models.ProviderClaude})
	})
	s.recordCall(models.ProviderClaude, started, err)
	if err != nil {
		return s.classifyFailure(ctx, models.ProviderClaude, err)
	}

	result := models.ChatResult{
		Content:  content,
		Actions:  ExtractActions(content, q.Context.Watchlist),
		Provider: models.ProviderClaude,
	}
	key := cacheKey(q.Query, q.Context)
	if err := s.store.SetTTL(context.WithoutCancel(ctx), key, result, s.cacheTTL); err != nil && s.logger != nil {
		s.logger.Warn("streamed answer not cached", logger.Error(err))
	}

	return emit(models.StreamEvent{Provider: models.ProviderClaude, Done: true})
}

// Health reports per-backend availability. One reachable backend is enough
// for healthy status; the cache is informational only.
func (s *Service) Health(ctx context.Context) models.BackendHealth {
	h := models.BackendHealth{
		Claude:     s.analysis.Configured(),
		Perplexity: s.live.Configured(),
		Cache:      s.store.Ping(ctx),
	}
	if h.Claude || h.Perplexity {
		h.Status = "healthy"
	} else {
		h.Status = "degraded"
	}
	return h
}

func (s *Service) classifyFailure(ctx context.Context, provider models.Provider, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	if s.logger != nil {
		s.logger.Error("ai backend call failed",
			logger.String("provider", string(provider)),
			logger.Error(err))
	}
	return &UpstreamError{Provider: string(provider), Err: err}
}

func (s *Service) recordCall(provider models.Provider, started time.Time, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RecordProviderCall(string(provider), outcome, time.Since(started).Seconds())
}

func notConfiguredResult(provider models.Provider, msg string) models.ChatResult {
	return models.ChatResult{
		Content:  msg,
		Provider: provider,
		Error:    true,
	}
}
