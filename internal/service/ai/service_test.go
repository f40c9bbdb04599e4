package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSight/internal/domain/models"
	"FinSight/internal/service/ratelimit"
	"FinSight/internal/service/store"
	"FinSight/pkg/cache"
)

type fakeAnalysis struct {
	configured bool
	content    string
	err        error
	calls      int
}

func (f *fakeAnalysis) Configured() bool { return f.configured }

func (f *fakeAnalysis) Complete(ctx context.Context, query, systemPrompt string) (string, error) {
	f.calls++
	return f.content, f.err
}

func (f *fakeAnalysis) Stream(ctx context.Context, query, systemPrompt string, emit func(string) error) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	for _, r := range f.content {
		if err := emit(string(r)); err != nil {
			return "", err
		}
	}
	return f.content, nil
}

type fakeLive struct {
	configured bool
	content    string
	citations  []models.Citation
	err        error
	calls      int
}

func (f *fakeLive) Configured() bool { return f.configured }

func (f *fakeLive) Search(ctx context.Context, query string) (string, []models.Citation, error) {
	f.calls++
	return f.content, f.citations, f.err
}

func newTestService(t *testing.T, analysis *fakeAnalysis, live *fakeLive, opts ...ServiceOption) *Service {
	t.Helper()
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(64))
	t.Cleanup(func() { _ = mem.Close() })
	return NewService(analysis, live, store.New(mem), ratelimit.New(20), opts...)
}

func query(text string) models.ChatQuery {
	return models.ChatQuery{
		Query:   text,
		Context: models.ChatContext{UserID: "u1", CurrentView: "dashboard"},
	}
}

func TestAnswerRoutesAnalysisToClaude(t *testing.T) {
	analysis := &fakeAnalysis{configured: true, content: "NVDA looks overextended"}
	live := &fakeLive{configured: true}
	s := newTestService(t, analysis, live)

	res, err := s.Answer(context.Background(), query("should i trim my NVDA position"))
	require.NoError(t, err)
	assert.Equal(t, models.ProviderClaude, res.Provider)
	assert.Equal(t, "NVDA looks overextended", res.Content)
	assert.Equal(t, 1, analysis.calls)
	assert.Equal(t, 0, live.calls)
	assert.NotEmpty(t, res.Actions)
}

func TestAnswerRoutesLiveToPerplexity(t *testing.T) {
	analysis := &fakeAnalysis{configured: true}
	live := &fakeLive{
		configured: true,
		content:    "TSLA fell on delivery numbers",
		citations:  []models.Citation{{Title: "reuters.com", URL: "https://reuters.com/x"}},
	}
	s := newTestService(t, analysis, live)

	res, err := s.Answer(context.Background(), query("what happened to TSLA today"))
	require.NoError(t, err)
	assert.Equal(t, models.ProviderPerplexity, res.Provider)
	assert.Len(t, res.Sources, 1)
	assert.Equal(t, 0, analysis.calls)
}

func TestAnswerProviderOverrideBypassesClassification(t *testing.T) {
	analysis := &fakeAnalysis{configured: true, content: "analysis"}
	live := &fakeLive{configured: true}
	s := newTestService(t, analysis, live)

	q := query("what happened to TSLA today")
	q.Provider = models.ProviderClaude

	res, err := s.Answer(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderClaude, res.Provider)
	assert.Equal(t, 1, analysis.calls)
	assert.Equal(t, 0, live.calls)
}

func TestAnswerCachesResult(t *testing.T) {
	live := &fakeLive{configured: true, content: "first answer"}
	s := newTestService(t, &fakeAnalysis{}, live)

	q := query("market overview")
	_, err := s.Answer(context.Background(), q)
	require.NoError(t, err)

	live.content = "changed upstream"
	res, err := s.Answer(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "first answer", res.Content, "second identical query must be served from cache")
	assert.Equal(t, 1, live.calls)
}

func TestAnswerNotConfiguredIsInformational(t *testing.T) {
	s := newTestService(t, &fakeAnalysis{configured: false}, &fakeLive{configured: false})

	res, err := s.Answer(context.Background(), query("analyze my portfolio"))
	require.NoError(t, err)
	assert.True(t, res.Error)
	assert.Contains(t, res.Content, "not configured")
}

func TestAnswerUpstreamError(t *testing.T) {
	live := &fakeLive{configured: true, err: errors.New("status 500")}
	s := newTestService(t, &fakeAnalysis{}, live)

	_, err := s.Answer(context.Background(), query("market overview"))
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, string(models.ProviderPerplexity), upstream.Provider)
}

func TestAnswerTimeoutIsDistinct(t *testing.T) {
	live := &fakeLive{configured: true, err: context.DeadlineExceeded}
	s := newTestService(t, &fakeAnalysis{}, live, WithTimeout(10*time.Millisecond))

	_, err := s.Answer(context.Background(), query("market overview"))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAnswerRateLimitRejectsBeforeBackend(t *testing.T) {
	analysis := &fakeAnalysis{configured: true, content: "x"}
	live := &fakeLive{configured: true, content: "y"}

	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(64))
	t.Cleanup(func() { _ = mem.Close() })
	s := NewService(analysis, live, store.New(mem), ratelimit.New(2))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		q := query("unique question " + string(rune('a'+i)))
		_, err := s.Answer(ctx, q)
		require.NoError(t, err)
	}

	_, err := s.Answer(ctx, query("one more"))
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, analysis.calls+live.calls, "rejected request must not reach a backend")
}

func TestAnswerStreamEmitsDeltasAndDone(t *testing.T) {
	analysis := &fakeAnalysis{configured: true, content: "buy NVDA"}
	s := newTestService(t, analysis, &fakeLive{})

	var events []models.StreamEvent
	err := s.AnswerStream(context.Background(), query("analyze NVDA"), func(ev models.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.True(t, last.Done)

	var text string
	for _, ev := range events[:len(events)-1] {
		text += ev.Delta
	}
	assert.Equal(t, "buy NVDA", text)
}

func TestAnswerStreamNotConfigured(t *testing.T) {
	s := newTestService(t, &fakeAnalysis{configured: false}, &fakeLive{})

	var events []models.StreamEvent
	err := s.AnswerStream(context.Background(), query("analyze"), func(ev models.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].Error)
	assert.True(t, events[0].Done)
}

func TestAnswerStreamCachesFinalAnswer(t *testing.T) {
	analysis := &fakeAnalysis{configured: true, content: "full answer"}
	s := newTestService(t, analysis, &fakeLive{})

	q := query("should i rebalance")
	err := s.AnswerStream(context.Background(), q, func(models.StreamEvent) error { return nil })
	require.NoError(t, err)

	res, err := s.Answer(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "full answer", res.Content)
	assert.Equal(t, 1, analysis.calls, "non-streaming follow-up is a cache hit")
}

func TestHealth(t *testing.T) {
	s := newTestService(t, &fakeAnalysis{configured: true}, &fakeLive{configured: false})

	h := s.Health(context.Background())
	assert.True(t, h.Claude)
	assert.False(t, h.Perplexity)
	assert.True(t, h.Cache)
	assert.Equal(t, "healthy", h.Status)
}

func TestHealthDegradedWithoutBackends(t *testing.T) {
	s := NewService(&fakeAnalysis{}, &fakeLive{}, store.New(nil), ratelimit.New(20))

	h := s.Health(context.Background())
	assert.False(t, h.Cache)
	assert.Equal(t, "degraded", h.Status)
}
