package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RealIP resolves the client address for rate-limit keying. Cloudflare's
// CF-Connecting-IP wins, then the first hop of X-Forwarded-For, then the
// socket peer.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type bucket struct {
	hits    int
	resetAt time.Time
}

// RateLimiter counts requests per key in fixed windows. Entirely in-memory;
// a single HomeMatch instance fronts the database, so there is nothing to
// coordinate across processes.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]bucket
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{entries: make(map[string]bucket)}
}

// Allow records a hit for key and reports whether it stays within limit
// for the current window. The first hit after a window lapses starts a
// fresh one.
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b := rl.entries[key]
	if b.resetAt.Before(now) {
		rl.entries[key] = bucket{hits: 1, resetAt: now.Add(window)}
		return true
	}
	b.hits++
	rl.entries[key] = b
	return b.hits <= limit
}

// Cleanup drops buckets whose window has lapsed. Meant to be called from a
// periodic task so abandoned keys don't accumulate.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, b := range rl.entries {
		if b.resetAt.Before(now) {
			delete(rl.entries, key)
		}
	}
}

// RateLimit wraps a handler with per-key request limiting, answering 429
// with a JSON error body once the key's window is exhausted.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(keyFunc(r), limit, window) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
