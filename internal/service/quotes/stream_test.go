package quotes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSight/internal/service/store"
	"FinSight/pkg/cache"
	"FinSight/pkg/kafka"
	"FinSight/pkg/logger"
)

type capturedPublish struct {
	topic string
	key   string
}

type fakePublisher struct {
	mu        sync.Mutex
	published []capturedPublish
	batches   int
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, capturedPublish{topic: topic, key: string(key)})
	return nil
}

func (f *fakePublisher) PublishBatch(ctx context.Context, topic string, messages []kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range messages {
		f.published = append(f.published, capturedPublish{topic: topic, key: string(m.Key)})
	}
	f.batches++
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

// wsServer upgrades one connection, records subscriptions, then sends the
// given frames.
func wsServer(t *testing.T, frames []string, subs *[]string, subsMu *sync.Mutex) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var sub struct {
			Type   string `json:"type"`
			Symbol string `json:"symbol"`
		}
		_ = conn.ReadJSON(&sub)
		subsMu.Lock()
		*subs = append(*subs, sub.Symbol)
		subsMu.Unlock()

		for _, frame := range frames {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestStreamWritesUpdatesToStoreAndPublisher(t *testing.T) {
	single, _ := json.Marshal(map[string]interface{}{
		"type": "trade",
		"data": []map[string]interface{}{
			{"s": "AAPL", "p": 231.7, "v": 150.0, "t": 1735776000000},
		},
	})
	multi, _ := json.Marshal(map[string]interface{}{
		"type": "trade",
		"data": []map[string]interface{}{
			{"s": "AAPL", "p": 231.9, "v": 80.0, "t": 1735776001000},
			{"s": "MSFT", "p": 512.4, "v": 40.0, "t": 1735776001000},
		},
	})

	var subs []string
	var subsMu sync.Mutex
	srv := wsServer(t, []string{string(single), string(multi)}, &subs, &subsMu)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(16))
	t.Cleanup(func() { _ = mem.Close() })
	st := store.New(mem)

	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	pub := &fakePublisher{}
	s := New("test-key", wsURL, []string{"AAPL"}, st, l,
		WithPublisher(pub, "live-quotes"),
		WithReconnectDelay(10*time.Millisecond),
		WithPingInterval(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		var u Update
		return st.Get(context.Background(), store.CategoryStockPrice, "stock:live:AAPL", &u) && u.Price == 231.9
	}, 2*time.Second, 10*time.Millisecond)

	var u Update
	require.True(t, st.Get(context.Background(), store.CategoryStockPrice, "stock:live:AAPL", &u))
	assert.Equal(t, "AAPL", u.Symbol)
	assert.Equal(t, 80.0, u.Volume)

	require.Eventually(t, func() bool { return pub.count() >= 3 }, 2*time.Second, 10*time.Millisecond)
	pub.mu.Lock()
	assert.Equal(t, "live-quotes", pub.published[0].topic)
	assert.Equal(t, "AAPL", pub.published[0].key)
	assert.Equal(t, "MSFT", pub.published[2].key)
	assert.Equal(t, 1, pub.batches)
	pub.mu.Unlock()

	require.Eventually(t, func() bool {
		var u Update
		return st.Get(context.Background(), store.CategoryStockPrice, "stock:live:MSFT", &u)
	}, 2*time.Second, 10*time.Millisecond)

	subsMu.Lock()
	assert.Contains(t, subs, "AAPL")
	subsMu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop on cancellation")
	}
}

func TestStreamNotConfigured(t *testing.T) {
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	s := New("", "ws://unused", nil, store.New(nil), l)
	assert.False(t, s.Enabled())
	assert.Error(t, s.Run(context.Background()))
}
