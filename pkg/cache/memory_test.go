package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func newTestCache(t *testing.T, opts ...MemoryOption) *MemoryCache {
	t.Helper()
	mc := NewMemoryCache(opts...)
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

func TestMemorySetGet(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	type doc struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}

	if err := mc.Set(ctx, "stock:price:AAPL", doc{Symbol: "AAPL", Price: 178.25}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got doc
	if err := mc.Get(ctx, "stock:price:AAPL", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Symbol != "AAPL" || got.Price != 178.25 {
		t.Fatalf("unexpected value %+v", got)
	}
}

func TestMemoryGetMiss(t *testing.T) {
	mc := newTestCache(t)

	var s string
	if err := mc.Get(context.Background(), "nope", &s); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	var s string
	if err := mc.Get(ctx, "k", &s); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss after TTL, got %v", err)
	}
}

func TestMemoryLRUEviction(t *testing.T) {
	mc := newTestCache(t, WithMemoryMaxSize(3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := mc.Set(ctx, fmt.Sprintf("k%d", i), "v", time.Minute); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	// Touch k0 so k1 becomes the LRU entry.
	var s string
	if err := mc.Get(ctx, "k0", &s); err != nil {
		t.Fatalf("get k0: %v", err)
	}

	if err := mc.Set(ctx, "k3", "v", time.Minute); err != nil {
		t.Fatalf("set k3: %v", err)
	}

	if err := mc.Get(ctx, "k1", &s); err != ErrCacheMiss {
		t.Fatalf("expected k1 evicted, got %v", err)
	}
	for _, k := range []string{"k0", "k2", "k3"} {
		if err := mc.Get(ctx, k, &s); err != nil {
			t.Fatalf("expected %s kept, got %v", k, err)
		}
	}
}

func TestMemoryDeleteByPattern(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	keys := []string{"stock:price:AAPL", "stock:price:MSFT", "crypto:price:bitcoin"}
	for _, k := range keys {
		if err := mc.Set(ctx, k, "v", time.Minute); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	removed, err := mc.DeleteByPattern(ctx, "stock:price:*")
	if err != nil {
		t.Fatalf("delete by pattern: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	var s string
	if err := mc.Get(ctx, "crypto:price:bitcoin", &s); err != nil {
		t.Fatalf("expected crypto key kept, got %v", err)
	}
}

func TestMemoryStats(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	_ = mc.Set(ctx, "b", "2", time.Minute)

	st, err := mc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.KeyCount != 2 {
		t.Fatalf("expected 2 keys, got %d", st.KeyCount)
	}
}
