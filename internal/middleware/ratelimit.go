package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RealIP extracts the client's real IP address, preferring Cloudflare's
// CF-Connecting-IP header, then X-Forwarded-For, and falling back to RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First IP in the chain is the original client
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Throttler bounds the rate of mutating calls per key. Implementations are
// injected; the in-memory one below is per-process, so running N replicas
// without a shared counter store multiplies the effective limit by N.
type Throttler interface {
	// Allow reports whether the call under key is permitted within a fixed
	// window of the given duration, and how much budget remains after it.
	Allow(key string, limit int, window time.Duration) (ok bool, remaining int)
}

type entry struct {
	count    int
	windowAt time.Time
}

// MemoryThrottler is a fixed-window in-memory Throttler.
type MemoryThrottler struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewMemoryThrottler() *MemoryThrottler {
	return &MemoryThrottler{
		entries: make(map[string]*entry),
	}
}

func (t *MemoryThrottler) Allow(key string, limit int, window time.Duration) (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	e, ok := t.entries[key]
	if !ok || now.After(e.windowAt) {
		t.entries[key] = &entry{count: 1, windowAt: now.Add(window)}
		return true, limit - 1
	}
	e.count++
	if e.count > limit {
		return false, 0
	}
	return true, limit - e.count
}

// Cleanup removes expired entries.
func (t *MemoryThrottler) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for key, e := range t.entries {
		if now.After(e.windowAt) {
			delete(t.entries, key)
		}
	}
}

// Throttle returns middleware that rate-limits requests by a key function.
// Denied requests get a 429 and a Retry-After hint; they are a back-off
// signal, never a business failure.
func Throttle(t Throttler, keyFunc func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, _ := t.Allow(keyFunc(r), limit, window)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(window/time.Second)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
