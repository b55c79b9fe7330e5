package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/flatrota/internal/auth"
)

// frozenLimiter returns a limiter whose clock only moves when advance is called.
func frozenLimiter() (*RateLimiter, func(time.Duration)) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }
	return rl, func(d time.Duration) { now = now.Add(d) }
}

func TestRateLimiterTake(t *testing.T) {
	rl, advance := frozenLimiter()

	for i := 0; i < 5; i++ {
		if ok, _ := rl.Take("user:1", 5, time.Minute); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	advance(20 * time.Second)
	ok, wait := rl.Take("user:1", 5, time.Minute)
	if ok {
		t.Fatal("6th request should be refused")
	}
	if wait != 40*time.Second {
		t.Errorf("wait = %v, want 40s", wait)
	}

	if ok, _ := rl.Take("user:2", 5, time.Minute); !ok {
		t.Error("another key has its own budget")
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl, advance := frozenLimiter()

	for i := 0; i < 3; i++ {
		rl.Take("user:1", 3, time.Minute)
	}
	if ok, _ := rl.Take("user:1", 3, time.Minute); ok {
		t.Error("should be refused within the window")
	}

	advance(time.Minute)
	if ok, _ := rl.Take("user:1", 3, time.Minute); !ok {
		t.Error("should be allowed once the window resets")
	}
}

func TestRateLimiterPrune(t *testing.T) {
	rl, advance := frozenLimiter()

	rl.Take("stale", 5, time.Second)
	advance(2 * time.Second)
	rl.Take("fresh", 5, time.Minute)

	if n := rl.Prune(); n != 1 {
		t.Errorf("pruned %d windows, want 1", n)
	}
	if _, ok := rl.windows["stale"]; ok {
		t.Error("reset window should have been pruned")
	}
	if _, ok := rl.windows["fresh"]; !ok {
		t.Error("open window should be kept")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, advance := frozenLimiter()
	keyFunc := func(r *http.Request) string { return "test" }

	handler := RateLimit(rl, keyFunc, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	post := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/tasks/1/periods/generate", nil))
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := post(); rec.Code != http.StatusCreated {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusCreated)
		}
	}

	advance(45*time.Second + 500*time.Millisecond)
	rec := post()
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("3rd request: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if ra := rec.Header().Get("Retry-After"); ra != "15" {
		t.Errorf("Retry-After = %q, want 15", ra)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestKeyByUser(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "10.0.0.5:4321"
	if got := KeyByUser(req); got != "ip:10.0.0.5" {
		t.Errorf("anonymous key = %q, want ip:10.0.0.5", got)
	}

	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: 12}))
	if got := KeyByUser(req); got != "user:12" {
		t.Errorf("user key = %q, want user:12", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.9:5000"
	if got := ClientIP(req); got != "192.168.1.9" {
		t.Errorf("ClientIP = %q, want 192.168.1.9", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("ClientIP = %q, want 203.0.113.7", got)
	}
	req.Header.Set("X-Real-IP", "198.51.100.2")
	if got := ClientIP(req); got != "198.51.100.2" {
		t.Errorf("ClientIP = %q, want 198.51.100.2", got)
	}
}
