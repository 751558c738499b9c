package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the permitted request count per window.
	DefaultMaxRequests = 100
	// DefaultWindow is the trailing interval the count applies to.
	DefaultWindow = time.Hour
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a per-key sliding-window rate limiter. State is process-local
// and resets on restart; it is not suitable for multi-instance deployments.
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
}

// New creates a limiter allowing max requests per window for each key.
// Non-positive arguments fall back to the defaults.
func New(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		requests: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	// Periodically evict idle keys to prevent memory growth.
	go l.cleanup()
	return l
}

// Allow records a request for key if it is within the limit. Denied requests
// leave the stored timestamp sequence untouched, so a rejected caller does
// not consume window capacity.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.requests[key] = kept
		// The window frees a slot once the oldest in-window request ages out.
		retry := l.window - now.Sub(kept[0])
		if retry < 0 {
			retry = 0
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}
	}

	kept = append(kept, now)
	l.requests[key] = kept
	return Decision{Allowed: true, Remaining: l.max - len(kept)}
}

// Close stops the background cleanup goroutine.
func (l *Limiter) Close() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			cutoff := l.now().Add(-l.window)
			for key, stamps := range l.requests {
				if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
					delete(l.requests, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
