package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"faculty-appraisal/config"
	pkgerrors "faculty-appraisal/pkg/errors"
	"faculty-appraisal/pkg/metrics"
	"faculty-appraisal/pkg/ratelimit"
	"faculty-appraisal/pkg/response"
)

var ErrRateLimited = pkgerrors.RateLimited("Rate limit exceeded")

// RateLimit sliding window per (endpoint, client IP). A store failure admits
// the request; the limiter must not take the login path down with it.
func RateLimit(limiter *ratelimit.Limiter, endpoint string, rule config.RateLimitRule, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), endpoint, c.ClientIP(), rule.MaxRequests, rule.Window)
		if err != nil {
			logger.Warn("rate limit store unavailable, admitting request",
				zap.String("endpoint", endpoint), zap.Error(err))
			c.Next()
			return
		}
		if !decision.Allowed {
			metrics.RateLimited(endpoint)
			secs := int(decision.RetryAfter.Seconds())
			response.Fail(c, ErrRateLimited.
				WithDetail("message", "Too many requests. Please try again later.").
				WithDetail("retry_after", secs))
			return
		}
		c.Next()
	}
}

// Throttle global token bucket per client IP, ahead of every route.
type Throttle struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rps     rate.Limit
	burst   int
	maxAge  time.Duration
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewThrottle creates a Throttle. Idle buckets older than maxAge are dropped by Sweep.
func NewThrottle(rps float64, burst int, maxAge time.Duration) *Throttle {
	return &Throttle{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Handler gin middleware.
func (t *Throttle) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !t.allow(clientKey(c)) {
			metrics.RateLimited("global")
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		c.Next()
	}
}

func (t *Throttle) allow(ip string) bool {
	now := t.now()
	t.mu.Lock()
	b, ok := t.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(t.rps, t.burst)}
		t.buckets[ip] = b
	}
	b.seen = now
	t.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// Sweep drops idle buckets.
func (t *Throttle) Sweep() int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for ip, b := range t.buckets {
		if now.Sub(b.seen) > t.maxAge {
			delete(t.buckets, ip)
			removed++
		}
	}
	return removed
}

func clientKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		host, _, err := net.SplitHostPort(strings.TrimSpace(c.Request.RemoteAddr))
		if err != nil {
			return "unknown"
		}
		ip = host
	}
	return ip
}
