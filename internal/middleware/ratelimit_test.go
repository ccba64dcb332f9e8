package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMemoryThrottlerLimit(t *testing.T) {
	th := NewMemoryThrottler()

	for i := 0; i < 3; i++ {
		ok, _ := th.Allow("kid-1", 3, time.Minute)
		if !ok {
			t.Fatalf("call %d denied within limit", i+1)
		}
	}
	ok, remaining := th.Allow("kid-1", 3, time.Minute)
	if ok {
		t.Error("fourth call allowed, want denial")
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
}

func TestMemoryThrottlerRemaining(t *testing.T) {
	th := NewMemoryThrottler()

	for i, want := range []int{2, 1, 0} {
		_, remaining := th.Allow("kid-1", 3, time.Minute)
		if remaining != want {
			t.Errorf("call %d remaining = %d, want %d", i+1, remaining, want)
		}
	}
}

func TestMemoryThrottlerKeysAreIndependent(t *testing.T) {
	th := NewMemoryThrottler()

	for i := 0; i < 3; i++ {
		th.Allow("kid-1", 3, time.Minute)
	}
	if ok, _ := th.Allow("kid-1", 3, time.Minute); ok {
		t.Error("exhausted key still allowed")
	}
	if ok, _ := th.Allow("kid-2", 3, time.Minute); !ok {
		t.Error("fresh key denied")
	}
}

func TestMemoryThrottlerWindowReset(t *testing.T) {
	th := NewMemoryThrottler()
	window := 20 * time.Millisecond

	th.Allow("kid-1", 1, window)
	if ok, _ := th.Allow("kid-1", 1, window); ok {
		t.Error("second call within window allowed")
	}

	time.Sleep(window + 10*time.Millisecond)
	if ok, _ := th.Allow("kid-1", 1, window); !ok {
		t.Error("call after window expiry denied")
	}
}

func TestMemoryThrottlerCleanup(t *testing.T) {
	th := NewMemoryThrottler()

	th.Allow("stale", 5, 10*time.Millisecond)
	th.Allow("fresh", 5, time.Minute)

	time.Sleep(20 * time.Millisecond)
	th.Cleanup()

	th.mu.Lock()
	defer th.mu.Unlock()
	if _, ok := th.entries["stale"]; ok {
		t.Error("expired entry survived cleanup")
	}
	if _, ok := th.entries["fresh"]; !ok {
		t.Error("live entry removed by cleanup")
	}
}

func TestThrottleMiddleware(t *testing.T) {
	th := NewMemoryThrottler()
	handler := Throttle(th, RealIP, 2, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/games/x/score", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/games/x/score", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.5:4321", nil, "192.168.1.5"},
		{"cloudflare header", "10.0.0.1:80", map[string]string{"CF-Connecting-IP": "203.0.113.7"}, "203.0.113.7"},
		{"forwarded chain", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "203.0.113.7"},
		{"cloudflare wins over forwarded", "10.0.0.1:80", map[string]string{
			"CF-Connecting-IP": "203.0.113.7",
			"X-Forwarded-For":  "198.51.100.1",
		}, "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := RealIP(req); got != tt.want {
				t.Errorf("RealIP = %q, want %q", got, tt.want)
			}
		})
	}
}
