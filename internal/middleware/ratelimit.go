package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/flatrota/internal/auth"
)

// ClientIP returns the caller's address as seen by the reverse proxy in front
// of the rota (X-Real-IP, then the first X-Forwarded-For hop), or RemoteAddr
// when the request came in directly.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type window struct {
	used  int
	reset time.Time
}

// RateLimiter counts requests per key in fixed windows held in memory.
// Generation writes a whole batch per call, so the router puts it in front of
// that endpoint.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Take spends one request of key's budget of limit per window. When the
// budget is gone it reports false and the time left until the window resets.
func (rl *RateLimiter) Take(key string, limit int, per time.Duration) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.reset) {
		rl.windows[key] = &window{used: 1, reset: now.Add(per)}
		return true, 0
	}
	if w.used >= limit {
		return false, w.reset.Sub(now)
	}
	w.used++
	return true, 0
}

// Prune drops windows that have already reset and returns how many it dropped.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	n := 0
	for key, w := range rl.windows {
		if !now.Before(w.reset) {
			delete(rl.windows, key)
			n++
		}
	}
	return n
}

// KeyByUser budgets per flatmate, falling back to the client address for
// anonymous requests.
func KeyByUser(r *http.Request) string {
	if id := auth.UserID(r.Context()); id != 0 {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + ClientIP(r)
}

// RateLimit allows limit requests per window for each key. Refused requests
// get a 429 JSON error with Retry-After set to the seconds left in the window.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, per time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.Take(keyFunc(r), limit, per)
			if !ok {
				secs := max(1, int(math.Ceil(wait.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
