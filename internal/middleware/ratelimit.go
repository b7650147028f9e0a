package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/auth"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/handler"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/metrics"
)

// =============================================================================
// Limiter
// =============================================================================

// RateResult is the outcome of a single Allow call.
type RateResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// Limiter decides whether the request identified by key may proceed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) (RateResult, error)
	Reset(ctx context.Context, key string) error
}

// =============================================================================
// In-memory sliding window
// =============================================================================

// MemoryLimiter allows at most limit requests per key in any window-long
// interval. State is per process; use RedisLimiter when running replicas.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string][]time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter creates a sliding-window limiter and starts its cleanup
// loop. Call Close to stop it.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string][]time.Time),
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow records the request when it fits in the window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (RateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hits := l.prune(key, now)

	if len(hits) >= l.limit {
		retry := hits[0].Add(l.window).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return RateResult{Allowed: false, Limit: l.limit, RetryAfter: retry}, nil
	}

	hits = append(hits, now)
	l.entries[key] = hits
	return RateResult{Allowed: true, Limit: l.limit, Remaining: l.limit - len(hits)}, nil
}

// Reset clears the history for a key (e.g. after a successful login).
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}

// Close stops the cleanup loop.
func (l *MemoryLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// prune drops hits older than the window. Caller holds mu.
func (l *MemoryLimiter) prune(key string, now time.Time) []time.Time {
	hits := l.entries[key]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]
	if len(hits) == 0 {
		delete(l.entries, key)
		return nil
	}
	l.entries[key] = hits
	return hits
}

// cleanup periodically removes idle keys to prevent memory leaks.
func (l *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key := range l.entries {
				l.prune(key, now)
			}
			l.mu.Unlock()
		}
	}
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// KeyFunc derives the limiter key for a request.
type KeyFunc func(r *http.Request) string

// ByIP keys requests by client IP.
func ByIP(r *http.Request) string {
	return "ip:" + getClientIP(r)
}

// ByUserOrIP keys authenticated requests by user id and anonymous ones by IP.
// It must run after AuthMiddleware.WithUser.
func ByUserOrIP(r *http.Request) string {
	if user := auth.GetUser(r.Context()); user != nil {
		return "user:" + user.ID.String()
	}
	return ByIP(r)
}

// RateLimitMiddleware rejects requests over the limiter's budget with 429.
type RateLimitMiddleware struct {
	limiter Limiter
	scope   string
	key     KeyFunc
	logger  *slog.Logger
}

// NewRateLimitMiddleware creates a rate limit middleware. scope labels the
// limited route in keys, logs and metrics (e.g. "login", "coupon_redeem").
func NewRateLimitMiddleware(limiter Limiter, scope string, key KeyFunc, logger *slog.Logger) *RateLimitMiddleware {
	if key == nil {
		key = ByIP
	}
	return &RateLimitMiddleware{
		limiter: limiter,
		scope:   scope,
		key:     key,
		logger:  logger,
	}
}

// Limit returns middleware that rate limits requests. Limiter errors fail
// open so a Redis outage does not take the routes down.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.scope + ":" + m.key(r)

		res, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			m.logger.Error("rate limiter unavailable", "scope", m.scope, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			m.logger.Warn("rate limit exceeded",
				"scope", m.scope,
				"ip", getClientIP(r),
				"path", r.URL.Path,
				"method", r.Method,
			)
			metrics.RateLimited(m.scope)

			retryAfter := int(res.RetryAfter.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			handler.ErrorResponse(w, r, m.logger, domain.RateLimit("RateLimitMiddleware.Limit"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Helpers
// =============================================================================

// getClientIP extracts the client IP from the request, considering proxy headers.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs: client, proxy1, proxy2
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	// nginx
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}
