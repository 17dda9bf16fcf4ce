package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/domain"
)

// RateLimiter admits at most max requests per client within a trailing window.
// Rejected requests are not recorded.
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	requests map[string][]time.Time
}

type RateLimiterOption func(*RateLimiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) {
		l.now = now
	}
}

func NewRateLimiter(maxRequests int, window time.Duration, opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		max:      maxRequests,
		window:   window,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for key and reports whether it is within the limit.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := prune(l.requests[key], now.Add(-l.window))
	if len(recent) >= l.max {
		l.requests[key] = recent
		return false
	}
	l.requests[key] = append(recent, now)
	return true
}

// Clients returns the number of tracked identities.
func (l *RateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

// Sweep drops timestamps outside the window and forgets idle identities.
func (l *RateLimiter) Sweep() int {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, ts := range l.requests {
		recent := prune(ts, cutoff)
		if len(recent) == 0 {
			delete(l.requests, key)
			removed++
			continue
		}
		l.requests[key] = recent
	}
	return removed
}

// ProcessJobs runs Sweep so the limiter can be driven by a jobs.Worker.
func (l *RateLimiter) ProcessJobs(ctx context.Context) error {
	if removed := l.Sweep(); removed > 0 {
		slog.Debug("rate limiter swept idle clients", "removed", removed)
	}
	return nil
}

// Middleware rejects over-limit requests with the 429 envelope.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if !l.Allow(ip) {
			slog.Warn("rate limit exceeded", "remote_addr", ip, "request_id", GetRequestID(r.Context()))
			api.HandleError(w, domain.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// prune keeps timestamps strictly after cutoff; ts is in ascending order.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
}
