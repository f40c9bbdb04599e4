package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a per-user sliding window: at most limit requests within
// any rolling window. Timestamps are pruned on each check, so memory per
// user is bounded by the limit itself.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	users  map[string][]time.Time
}

type Option func(*Limiter)

// WithClock injects the time source. Tests use this to step through the
// window without sleeping.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithWindow(window time.Duration) Option {
	return func(l *Limiter) { l.window = window }
}

// New builds a limiter allowing limit requests per window (default one hour).
func New(limit int, opts ...Option) *Limiter {
	l := &Limiter{
		limit:  limit,
		window: time.Hour,
		now:    time.Now,
		users:  make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records an attempt for userID and reports whether it fits within
// the window. Rejected attempts are not recorded.
func (l *Limiter) Allow(userID string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.users[userID]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.users[userID] = kept
		return false
	}

	l.users[userID] = append(kept, now)
	return true
}

// Remaining reports how many attempts userID has left in the current window.
func (l *Limiter) Remaining(userID string) int {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	active := 0
	for _, ts := range l.users[userID] {
		if ts.After(cutoff) {
			active++
		}
	}
	if rem := l.limit - active; rem > 0 {
		return rem
	}
	return 0
}

// Reset drops all recorded attempts for userID.
func (l *Limiter) Reset(userID string) {
	l.mu.Lock()
	delete(l.users, userID)
	l.mu.Unlock()
}
