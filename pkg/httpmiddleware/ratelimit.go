package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window. Zero or less disables limiting.
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
	// Prefixes restricts limiting to request paths with one of these
	// prefixes. Empty limits every path.
	Prefixes []string `yaml:"prefixes"`

	// KeyFunc identifies the client. Defaults to the client IP.
	KeyFunc func(*http.Request) string `yaml:"-"`
	// Now defaults to time.Now.
	Now func() time.Time `yaml:"-"`
}

// slidingWindow counts requests in the current fixed window and keeps the
// previous window's count to weight the overlap.
type slidingWindow struct {
	start time.Time
	prev  float64
	curr  float64
}

type limiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	clients map[string]*slidingWindow
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &limiter{cfg: cfg, clients: make(map[string]*slidingWindow)}
}

// take consumes one request for key. It reports the requests left in the
// window, when the current window ends, and whether the request fits.
func (l *limiter) take(key string, now time.Time) (left int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, found := l.clients[key]
	if !found {
		w = &slidingWindow{start: now.Truncate(l.cfg.Window)}
		l.clients[key] = w
	}
	switch elapsed := now.Sub(w.start); {
	case elapsed >= 2*l.cfg.Window:
		w.start, w.prev, w.curr = now.Truncate(l.cfg.Window), 0, 0
	case elapsed >= l.cfg.Window:
		w.start, w.prev, w.curr = w.start.Add(l.cfg.Window), w.curr, 0
	}

	weight := max(1-float64(now.Sub(w.start))/float64(l.cfg.Window), 0)
	used := w.prev*weight + w.curr
	reset = w.start.Add(l.cfg.Window)
	if used >= float64(l.cfg.Max) {
		return 0, reset, false
	}
	w.curr++
	return max(int(float64(l.cfg.Max)-used-1), 0), reset, true
}

// evict drops clients idle for two windows.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.clients {
		if now.Sub(w.start) >= 2*l.cfg.Window {
			delete(l.clients, key)
		}
	}
}

func (l *limiter) applies(r *http.Request) bool {
	if len(l.cfg.Prefixes) == 0 {
		return true
	}
	for _, p := range l.cfg.Prefixes {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

// RateLimit limits requests per client with a sliding window. Rejected
// requests get 429 with a JSON body and a Retry-After header; limited paths
// always carry the X-RateLimit-* headers. Idle clients are evicted until ctx
// is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evict(now)
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.applies(r) {
				next.ServeHTTP(w, r)
				return
			}
			now := l.cfg.Now()
			left, reset, ok := l.take(l.cfg.KeyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(left))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			zctx.From(r.Context()).Warn("Rate limit exceeded", zap.String("path", r.URL.Path))
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(reset.Sub(now).Seconds()))))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)

			var e jx.Encoder
			e.ObjStart()
			e.FieldStart("code")
			e.Int(http.StatusTooManyRequests)
			e.FieldStart("message")
			e.Str("rate limit exceeded")
			e.ObjEnd()
			_, _ = w.Write(e.Bytes())
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
