package coalesce

import (
	"context"
	"fmt"
	"sync"
	"time"

	applogger "FinSight/pkg/logger"
)

// Metrics is the subset of the metrics recorder the coalescer reports to.
type Metrics interface {
	RecordCoalesced()
	RecordFetchInitiated()
}

// FetchFunc produces the value for a key. It must honor ctx cancellation.
type FetchFunc func(ctx context.Context) (interface{}, error)

type flight struct {
	done    chan struct{}
	val     interface{}
	err     error
	started time.Time
}

// Coalescer collapses concurrent duplicate-key requests into a single
// upstream fetch. All callers attached to one in-flight fetch receive the
// same result or error; the key is freed once the fetch completes, so a
// failure never blocks a later retry.
type Coalescer struct {
	mu           sync.Mutex
	flights      map[string]*flight
	window       time.Duration
	fetchTimeout time.Duration
	metrics      Metrics
	logger       *applogger.Logger
}

// Option configures a Coalescer.
type Option func(*Coalescer)

// WithWindow sets the coalescing window used for orphan eviction.
func WithWindow(d time.Duration) Option {
	return func(c *Coalescer) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithFetchTimeout bounds each shared fetch independently of caller contexts.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Coalescer) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(c *Coalescer) {
		c.metrics = m
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Coalescer) {
		c.logger = l
	}
}

// New creates a Coalescer with a 5s window and 30s fetch timeout by default.
func New(opts ...Option) *Coalescer {
	c := &Coalescer{
		flights:      make(map[string]*flight),
		window:       5 * time.Second,
		fetchTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do returns the result of fetch for key, attaching to an existing in-flight
// fetch for the same key when one exists. The caller's ctx only bounds the
// caller's wait: cancelling it detaches the caller without aborting the
// shared fetch, so other attached callers still receive the result.
func (c *Coalescer) Do(ctx context.Context, key string, fetch FetchFunc) (interface{}, error) {
	return c.DoWithCallback(ctx, key, fetch, nil)
}

// DoWithCallback is Do with an onSuccess hook invoked once with the fetched
// value (typically to populate a cache) before waiters are released.
func (c *Coalescer) DoWithCallback(ctx context.Context, key string, fetch FetchFunc, onSuccess func(interface{})) (interface{}, error) {
	c.mu.Lock()
	c.evictOrphans(time.Now())

	if f, ok := c.flights[key]; ok {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordCoalesced()
		}
		if c.logger != nil {
			c.logger.Debug("coalescing request", applogger.String("key", key))
		}
		return c.wait(ctx, f)
	}

	f := &flight{done: make(chan struct{}), started: time.Now()}
	c.flights[key] = f
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordFetchInitiated()
	}

	go c.run(ctx, key, f, fetch, onSuccess)

	return c.wait(ctx, f)
}

// InFlight reports the number of currently tracked fetches.
func (c *Coalescer) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.flights)
}

func (c *Coalescer) wait(ctx context.Context, f *flight) (interface{}, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coalescer) run(ctx context.Context, key string, f *flight, fetch FetchFunc, onSuccess func(interface{})) {
	// The fetch outlives the initiating caller: its lifetime is bounded by
	// fetchTimeout, not by the caller's context, so an abandoned request
	// cannot poison the result for other attached callers.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			f.err = fmt.Errorf("fetch panic: %v", r)
			if c.logger != nil {
				c.logger.Error("coalesced fetch panicked",
					applogger.String("key", key),
					applogger.Error(f.err),
				)
			}
		}
		c.mu.Lock()
		delete(c.flights, key)
		c.mu.Unlock()
		close(f.done)
	}()

	f.val, f.err = fetch(fctx)
	if f.err == nil && onSuccess != nil {
		onSuccess(f.val)
	}
}

// evictOrphans drops tracking entries whose fetch should long since have
// finished. A flight inside its fetch-timeout budget is never evicted, even
// past the coalescing window: evicting a live fetch would let a duplicate
// start while the original still runs. Caller must hold mu.
func (c *Coalescer) evictOrphans(now time.Time) {
	cutoff := c.window
	if c.fetchTimeout > cutoff {
		cutoff = c.fetchTimeout
	}
	for key, f := range c.flights {
		if now.Sub(f.started) > cutoff {
			if c.logger != nil {
				c.logger.Warn("evicting orphaned fetch", applogger.String("key", key))
			}
			delete(c.flights, key)
		}
	}
}

// Do is the typed convenience wrapper around Coalescer.Do.
func Do[T any](ctx context.Context, c *Coalescer, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Do(ctx, key, func(ctx context.Context) (interface{}, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("coalesce: unexpected result type %T for key", v)
	}
	return t, nil
}
