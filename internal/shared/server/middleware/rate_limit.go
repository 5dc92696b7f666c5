package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"resume-insights/internal/shared/server/respond"
)

// Rate limit groups. Uploads and LLM-backed calls get a tighter bucket than
// ordinary reads; status polling gets a looser one.
const (
	GroupDefault = "DEFAULT"
	GroupPolling = "POLLING"
	GroupHeavy   = "HEAVY"

	maxBuckets = 10000
)

type RateLimitRule struct {
	Rate  float64
	Burst int
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// DefaultRateLimitRules derives the per-group rules from the base rate.
func DefaultRateLimitRules(rps float64, burst int) map[string]RateLimitRule {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return map[string]RateLimitRule{
		GroupDefault: {Rate: rps, Burst: burst},
		GroupPolling: {Rate: rps * 2, Burst: burst * 2},
		GroupHeavy:   {Rate: math.Max(rps/5, 0.1), Burst: max(burst/5, 1)},
	}
}

// RouteGroup classifies a request by its matched route.
func RouteGroup(c *gin.Context) string {
	route := c.FullPath()
	switch {
	case c.Request.Method == http.MethodGet && route == "/api/v1/analyses/:id":
		return GroupPolling
	case c.Request.Method != http.MethodPost:
		return GroupDefault
	case route == "/api/v1/documents",
		route == "/api/v1/upload-resume",
		route == "/api/v1/documents/:id/analyze",
		strings.HasPrefix(route, "/api/v1/jd/"):
		return GroupHeavy
	default:
		return GroupDefault
	}
}

// RateLimiter is a keyed token bucket.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	now     func() time.Time
}

type rateBucket struct {
	tokens float64
	last   time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets: make(map[string]*rateBucket),
		now:     now,
	}
}

// RateLimit throttles per caller (user ID, else client IP) and group.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = GroupDefault
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = strings.TrimSpace(c.ClientIP())
		}
		allowed, retryAfter := cfg.Limiter.Allow(principal+"|"+group, rule)
		if allowed {
			c.Next()
			return
		}
		retryAfterMs := max(int(retryAfter/time.Millisecond), 1000)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(float64(retryAfterMs)/1000.0))))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", gin.H{
			"retryAfterMs": retryAfterMs,
		})
	}
}

func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	bucket, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxBuckets {
			l.evictFull(now, rule)
		}
		bucket = &rateBucket{tokens: float64(rule.Burst), last: now}
		l.buckets[key] = bucket
	}
	if elapsed := now.Sub(bucket.last).Seconds(); elapsed > 0 {
		bucket.tokens = math.Min(float64(rule.Burst), bucket.tokens+elapsed*rule.Rate)
		bucket.last = now
	}
	if bucket.tokens >= 1 {
		bucket.tokens--
		return true, 0
	}
	waitSec := math.Max((1-bucket.tokens)/rule.Rate, 0)
	return false, time.Duration(math.Ceil(waitSec*1000.0)) * time.Millisecond
}

// evictFull drops buckets that would have refilled by now.
func (l *RateLimiter) evictFull(now time.Time, rule RateLimitRule) {
	refill := time.Duration(float64(rule.Burst) / rule.Rate * float64(time.Second))
	for k, b := range l.buckets {
		if now.Sub(b.last) >= refill {
			delete(l.buckets, k)
		}
	}
}
