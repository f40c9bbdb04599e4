package technical

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSight/internal/coalesce"
	"FinSight/internal/domain/models"
	"FinSight/internal/service/store"
	"FinSight/pkg/cache"
)

type fakeHistory struct {
	mu     sync.Mutex
	points []models.PricePoint
	errs   []error // consumed per call, nil slice means always succeed
	calls  int32
}

func (f *fakeHistory) DailyHistory(ctx context.Context, symbol string, days int) ([]models.PricePoint, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.points, nil
}

func history(n int) []models.PricePoint {
	points := make([]models.PricePoint, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range points {
		price := 100.0 + float64(i)*0.5
		points[i] = models.PricePoint{
			Time:  base.AddDate(0, 0, i),
			Open:  price - 0.2,
			High:  price + 0.5,
			Low:   price - 0.5,
			Close: price,
		}
	}
	return points
}

func newTestService(t *testing.T, provider HistoryProvider, opts ...Option) (*Service, *store.Store) {
	t.Helper()
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(64))
	t.Cleanup(func() { _ = mem.Close() })

	st := store.New(mem)
	base := []Option{WithRetry(3, time.Millisecond)}
	s := New(provider, st, coalesce.New(), append(base, opts...)...)
	t.Cleanup(func() { _ = s.Close() })
	return s, st
}

func TestGetComputesSnapshot(t *testing.T) {
	provider := &fakeHistory{points: history(60)}
	s, _ := newTestService(t, provider)

	snap, err := s.Get(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", snap.Symbol)
	assert.InDelta(t, 129.5, snap.CurrentPrice, 1e-9)
	assert.GreaterOrEqual(t, snap.RSI, 0.0)
	assert.LessOrEqual(t, snap.RSI, 100.0)
	assert.Greater(t, snap.Bollinger.Upper, snap.Bollinger.Lower)
	assert.NotEmpty(t, snap.Signal)
	assert.NotEmpty(t, snap.Strength)
}

func TestGetServesSecondCallFromLocalCache(t *testing.T) {
	provider := &fakeHistory{points: history(60)}
	s, _ := newTestService(t, provider)

	_, err := s.Get(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = s.Get(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&provider.calls))
}

func TestGetFallsBackToSharedStore(t *testing.T) {
	provider := &fakeHistory{points: history(60)}
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(64))
	t.Cleanup(func() { _ = mem.Close() })
	st := store.New(mem)

	first := New(provider, st, coalesce.New(), WithRetry(3, time.Millisecond))
	t.Cleanup(func() { _ = first.Close() })
	_, err := first.Get(context.Background(), "MSFT")
	require.NoError(t, err)

	// A fresh service shares the store but not the local cache.
	second := New(provider, st, coalesce.New(), WithRetry(3, time.Millisecond))
	t.Cleanup(func() { _ = second.Close() })
	_, err = second.Get(context.Background(), "MSFT")
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&provider.calls))
}

func TestGetRetriesTransientFailures(t *testing.T) {
	provider := &fakeHistory{
		points: history(60),
		errs:   []error{errors.New("flaky"), errors.New("flaky")},
	}
	s, _ := newTestService(t, provider)

	snap, err := s.Get(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", snap.Symbol)
	assert.EqualValues(t, 3, atomic.LoadInt32(&provider.calls))
}

func TestGetUnavailableAfterExhaustedRetries(t *testing.T) {
	provider := &fakeHistory{
		errs: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	s, _ := newTestService(t, provider)

	_, err := s.Get(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 3, atomic.LoadInt32(&provider.calls))
}

func TestGetEmptyHistoryIsUnavailable(t *testing.T) {
	provider := &fakeHistory{points: nil}
	s, _ := newTestService(t, provider)

	_, err := s.Get(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestConcurrentRequestsCoalesce(t *testing.T) {
	provider := &fakeHistory{points: history(60)}
	s, _ := newTestService(t, provider)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Get(context.Background(), "NVDA")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&provider.calls))
}

func TestComputeUsesProvidedTimestamp(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	snap := Compute("AAPL", history(60), at)
	assert.Equal(t, at, snap.LastUpdated)
}
