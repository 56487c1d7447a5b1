package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 15 * time.Minute

// LoginLimiter throttles requests per client IP with a token bucket.
// The router runs middleware.RealIP first, so RemoteAddr is the client address.
type LoginLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	perMinute int
	now       func() time.Time
	lastSweep time.Time

	// OnLimited is called for every rejected request.
	OnLimited func()
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter allows perMinute attempts per client; perMinute <= 0 disables limiting.
func NewLoginLimiter(perMinute int, now func() time.Time) *LoginLimiter {
	if now == nil {
		now = time.Now
	}
	return &LoginLimiter{
		limiters:  make(map[string]*limiterEntry),
		perMinute: perMinute,
		now:       now,
	}
}

func (l *LoginLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.perMinute <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		now := l.now()
		if !l.limiter(clientIP(r), now).AllowN(now, 1) {
			if l.OnLimited != nil {
				l.OnLimited()
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(l.interval().Seconds()+0.5)))
			writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many login attempts, try again later", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *LoginLimiter) interval() time.Duration {
	return time.Minute / time.Duration(l.perMinute)
}

func (l *LoginLimiter) limiter(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > limiterIdleTTL/3 {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	if e, ok := l.limiters[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	lim := rate.NewLimiter(rate.Every(l.interval()), l.perMinute)
	l.limiters[key] = &limiterEntry{limiter: lim, lastSeen: now}
	return lim
}

func (l *LoginLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
