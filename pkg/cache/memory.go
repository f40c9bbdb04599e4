package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"
)

type memoryItem struct {
	key      string
	data     []byte
	expireAt time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return now.After(m.expireAt)
}

// MemoryCache implements Service using in-memory storage with a bounded
// capacity. Eviction is least-recently-used via an intrusive list, so both
// lookup and eviction are O(1).
type MemoryCache struct {
	mutex         sync.Mutex
	items         map[string]*list.Element // value: *memoryItem
	order         *list.List               // front = most recently used
	maxSize       int
	defaultTTL    time.Duration
	cleanupTicker *time.Ticker
	stopCh        chan struct{}
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		DefaultTTL:      7 * 24 * time.Hour,
		CleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		items:         make(map[string]*list.Element),
		order:         list.New(),
		maxSize:       cfg.MaxSize,
		defaultTTL:    cfg.DefaultTTL,
		cleanupTicker: time.NewTicker(cfg.CleanupInterval),
		stopCh:        make(chan struct{}),
	}

	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			return err
		}
	}

	if expiration <= 0 {
		expiration = mc.defaultTTL
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if el, ok := mc.items[key]; ok {
		item := el.Value.(*memoryItem)
		item.data = data
		item.expireAt = time.Now().Add(expiration)
		mc.order.MoveToFront(el)
		return nil
	}

	if mc.order.Len() >= mc.maxSize {
		mc.evictOldest()
	}

	el := mc.order.PushFront(&memoryItem{
		key:      key,
		data:     data,
		expireAt: time.Now().Add(expiration),
	})
	mc.items[key] = el
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	el, ok := mc.items[key]
	if !ok {
		mc.mutex.Unlock()
		return ErrCacheMiss
	}
	item := el.Value.(*memoryItem)
	if item.expired(time.Now()) {
		mc.removeElement(el)
		mc.mutex.Unlock()
		return ErrCacheMiss
	}
	mc.order.MoveToFront(el)
	data := item.data
	mc.mutex.Unlock()

	if strPtr, ok := dest.(*string); ok {
		*strPtr = string(data)
		return nil
	}
	return json.Unmarshal(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		if el, ok := mc.items[key]; ok {
			mc.removeElement(el)
		}
	}
	return nil
}

func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	var removed int64
	for key, el := range mc.items {
		if ok, _ := path.Match(pattern, key); ok {
			mc.removeElement(el)
			removed++
		}
	}
	return removed, nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := time.Now()
	for _, key := range keys {
		if el, ok := mc.items[key]; ok && !el.Value.(*memoryItem).expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	for key, value := range values {
		if err := mc.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := time.Now()
	results := make(map[string]string)
	for _, key := range keys {
		if el, ok := mc.items[key]; ok {
			item := el.Value.(*memoryItem)
			if !item.expired(now) {
				results[key] = string(item.data)
			}
		}
	}
	return results, nil
}

func (mc *MemoryCache) Ping(_ context.Context) error {
	return nil
}

func (mc *MemoryCache) Stats(_ context.Context) (*Stats, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	var mem int64
	for _, el := range mc.items {
		mem += int64(len(el.Value.(*memoryItem).data))
	}
	return &Stats{
		KeyCount:   int64(len(mc.items)),
		MemoryUsed: mem,
	}, nil
}

// caller must hold mutex
func (mc *MemoryCache) evictOldest() {
	if el := mc.order.Back(); el != nil {
		mc.removeElement(el)
	}
}

// caller must hold mutex
func (mc *MemoryCache) removeElement(el *list.Element) {
	mc.order.Remove(el)
	delete(mc.items, el.Value.(*memoryItem).key)
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.stopCh:
			return
		case <-mc.cleanupTicker.C:
			mc.mutex.Lock()
			now := time.Now()
			for el := mc.order.Back(); el != nil; {
				prev := el.Prev()
				if el.Value.(*memoryItem).expired(now) {
					mc.removeElement(el)
				}
				el = prev
			}
			mc.mutex.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.cleanupTicker.Stop()
	close(mc.stopCh)
	return nil
}
