// Package ratelimit provides per-client request throttling for the
// bridge API. The listener is plain local HTTP, so the limiter's job
// is to keep a runaway UI loop or script from hammering the upstream
// backend, not to defend a public endpoint.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// SlidingWindowLimiter counts requests per key over a rolling window,
// matching the requests-per-minute semantics of the bridge config.
type SlidingWindowLimiter struct {
	mu         sync.RWMutex
	windows    map[string]*window
	limit      int
	windowSize time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

type window struct {
	requests []time.Time
	mu       sync.Mutex
}

// NewSlidingWindowLimiter creates a limiter allowing limit requests per
// key within each rolling window.
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	if limit < 1 {
		limit = 1
	}
	if windowSize <= 0 {
		windowSize = time.Minute
	}

	limiter := &SlidingWindowLimiter{
		windows:    make(map[string]*window),
		limit:      limit,
		windowSize: windowSize,
		stop:       make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

// Allow reports whether the key may make another request now. Allowed
// requests are recorded; denied ones are not, so a blocked client does
// not push its own window further out.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	w, exists := l.windows[key]
	if !exists {
		w = &window{}
		l.windows[key] = w
	}
	limit := l.limit
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.prune(now.Add(-l.windowSize))

	if len(w.requests) >= limit {
		return false, nil
	}

	w.requests = append(w.requests, now)
	return true, nil
}

// Reset clears the recorded window for a key.
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, key)
	return nil
}

// SetLimit updates the per-window request limit. Existing windows keep
// their recorded requests and are judged against the new limit. Values
// below one are ignored.
func (l *SlidingWindowLimiter) SetLimit(limit int) {
	if limit < 1 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limit = limit
}

// Limit returns the current per-window request limit.
func (l *SlidingWindowLimiter) Limit() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limit
}

// Stop terminates the background cleanup goroutine.
func (l *SlidingWindowLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

// cleanup drops windows that have gone a full window without traffic.
// Pruning on Allow keeps the counts correct; this only frees memory
// for clients that went away.
func (l *SlidingWindowLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.windowSize)
			l.mu.Lock()
			for key, w := range l.windows {
				w.mu.Lock()
				w.prune(cutoff)
				if len(w.requests) == 0 {
					delete(l.windows, key)
				}
				w.mu.Unlock()
			}
			l.mu.Unlock()
		}
	}
}

// prune drops requests at or before the cutoff. Requests are appended
// in time order, so the survivors are a suffix.
func (w *window) prune(cutoff time.Time) {
	keep := 0
	for _, at := range w.requests {
		if at.After(cutoff) {
			break
		}
		keep++
	}
	if keep > 0 {
		w.requests = append(w.requests[:0], w.requests[keep:]...)
	}
}

// IPLimiter wraps a sliding window limiter keyed by client address.
type IPLimiter struct {
	limiter *SlidingWindowLimiter
}

// NewIPLimiter creates a per-client-address limiter with a one minute
// window.
func NewIPLimiter(requestsPerMinute int) *IPLimiter {
	return &IPLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow checks whether a request from the address is allowed.
func (l *IPLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	return l.limiter.Allow(ctx, fmt.Sprintf("ip:%s", ip))
}

// SetLimit updates the per-minute request limit.
func (l *IPLimiter) SetLimit(requestsPerMinute int) {
	l.limiter.SetLimit(requestsPerMinute)
}

// Limit returns the current per-minute request limit.
func (l *IPLimiter) Limit() int {
	return l.limiter.Limit()
}

// Stop terminates the limiter's background cleanup.
func (l *IPLimiter) Stop() {
	l.limiter.Stop()
}
