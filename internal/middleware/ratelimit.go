package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"
)

const (
	// maxTrackedClients caps the limiter table. A new client arriving at the
	// cap first evicts idle clients, then the least recently seen one.
	maxTrackedClients = 10_000

	minClientIdle = 3 * time.Minute
)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter hands out one token bucket per remote IP. The account header is
// caller-asserted, so it never selects the bucket. Mount chi's RealIP first
// when the server sits behind a proxy.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	log   *slog.Logger

	maxClients int
	idle       time.Duration
	now        func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

// NewRateLimiter allows rps requests per second per client with the given
// burst. A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int, log *slog.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	// A client is only forgotten once its bucket would have refilled anyway.
	idle := minClientIdle
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &RateLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		log:        log,
		maxClients: maxTrackedClients,
		idle:       idle,
		now:        time.Now,
		clients:    make(map[string]*client),
	}
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= l.maxClients {
			l.evict(now)
		}
		c = &client{lim: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = c
	}
	c.seen = now
	return c.lim.AllowN(now, 1)
}

// evict drops every client idle past l.idle. If none was, the least recently
// seen client goes instead. Callers hold l.mu.
func (l *RateLimiter) evict(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, c := range l.clients {
		if now.Sub(c.seen) > l.idle {
			delete(l.clients, k)
			continue
		}
		if oldestKey == "" || c.seen.Before(oldest) {
			oldestKey, oldest = k, c.seen
		}
	}
	if len(l.clients) >= l.maxClients {
		delete(l.clients, oldestKey)
	}
}

// Handler rejects requests over the client's budget with 429.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	if l.rps <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !l.allow(key) {
			l.log.WarnContext(r.Context(), "too many requests",
				"client", key,
				"account_id", r.Header.Get(AccountIDHeader),
				"path", r.URL.Path,
			)
			w.Header().Set("Retry-After", "1")
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, errorBody("rate_limited", "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the request's remote host. RealIP leaves RemoteAddr without a
// port, so a failed split falls back to the raw value.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
