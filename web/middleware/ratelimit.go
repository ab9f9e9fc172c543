package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"scenario-annotator/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures rate limiting
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
	KeyFunc           func(c *gin.Context) string
	// OnLimit writes the rejection. Defaults to a bare 429.
	OnLimit func(c *gin.Context)
	// Idle limiters are dropped after this long.
	TTL time.Duration
}

// DefaultRateLimitConfig returns default rate limit config
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
		BurstSize:         10,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
		TTL: 10 * time.Minute,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	lastGC   time.Time
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl > 0 && now.Sub(s.lastGC) > s.ttl {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.ttl {
				delete(s.visitors, k)
			}
		}
		s.lastGC = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// RateLimitMiddleware throttles requests per key with a token bucket.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 1
	}
	set := &limiterSet{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(max(config.RequestsPerMinute, 1))),
		burst:    config.BurstSize,
		ttl:      config.TTL,
		lastGC:   time.Now(),
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		limiter := set.get(key, time.Now())

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerMinute))
		if !limiter.Allow() {
			logger.Warningf("Rate limit exceeded for %s on %s", key, c.Request.URL.Path)
			c.Header("Retry-After", "60")
			if config.OnLimit != nil {
				config.OnLimit(c)
			} else {
				c.Status(http.StatusTooManyRequests)
			}
			c.Abort()
			return
		}

		c.Next()
	}
}
