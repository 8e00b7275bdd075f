package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/PauloHFS/goth-blog/internal/logging"
	"github.com/PauloHFS/goth-blog/internal/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client IP. The table is bounded and
// idle clients expire.
type RateLimiter struct {
	scope   string
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	clients *expirable.LRU[string, *rate.Limiter]
}

func NewRateLimiter(scope string, limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		scope:   scope,
		limit:   limit,
		burst:   burst,
		clients: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
	}
}

// DefaultRateLimiter: 10 requests per second, burst of 20, per IP.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter("global", 10, 20)
}

// LoginRateLimiter: 5 attempts per minute per IP.
func LoginRateLimiter() *RateLimiter {
	return NewRateLimiter("login", rate.Every(time.Minute/5), 5)
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	limiter, ok := rl.clients.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
	}
	// re-adding refreshes the idle TTL
	rl.clients.Add(key, limiter)
	rl.mu.Unlock()

	return limiter.Allow()
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.Allow(clientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}

		metrics.RateLimited.WithLabelValues(rl.scope).Inc()
		logging.AddToEvent(r.Context(), slog.String("rate_limited", rl.scope))

		w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
		writeError(w, http.StatusTooManyRequests, "too many requests")
	})
}

func (rl *RateLimiter) retryAfter() int {
	if rl.limit <= 0 || rl.limit == rate.Inf {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(rl.limit))))
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
