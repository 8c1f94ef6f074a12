package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"golang.org/x/time/rate"
)

// KeyedRateLimiter hands out one token bucket per key.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	r        rate.Limit
	b        int
	idle     time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewKeyedRateLimiter(rps float64, burst int) *KeyedRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &KeyedRateLimiter{
		limiters: make(map[string]*limiterEntry),
		r:        rate.Limit(rps),
		b:        burst,
		idle:     10 * time.Minute,
	}
}

func (l *KeyedRateLimiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.r, l.b), lastSeen: now}
		l.limiters[key] = entry
		if len(l.limiters) > 1024 {
			l.evict(now)
		}
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *KeyedRateLimiter) evict(now time.Time) {
	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.limiters, key)
		}
	}
}

// RateLimit throttles each authenticated employee, falling back to the client IP
// for anonymous requests. A non-positive rps disables limiting.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := NewKeyedRateLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(rateKey(r)) {
				w.Header().Set("Retry-After", "1")
				writeAppError(w, internal.NewRateLimitError("too many requests, slow down"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateKey(r *http.Request) string {
	if id := internal.ActorIDFromContext(r.Context()); id != 0 {
		return "employee:" + strconv.FormatInt(id, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
