package middlewares

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/config"
	"golang.org/x/time/rate"
)

// RateLimiter counts requests per client IP in redis. When redis is not
// connected it falls back to an in-process token bucket per IP.
type RateLimiter struct {
	limit  int64
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewRateLimiter(limit int64, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) localAllow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.buckets[key]
	if !ok {
		every := rl.window / time.Duration(rl.limit)
		l = rate.NewLimiter(rate.Every(every), int(rl.limit))
		rl.buckets[key] = l
	}
	return l.Allow()
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "RateLimit:" + c.ClientIP()

		allowed := true
		if config.GetRedisDB() == nil {
			allowed = rl.localAllow(key)
		} else {
			count, err := config.IncrRedisCounter(c.Request.Context(), key, rl.window)
			if err != nil {
				c.AbortWithError(http.StatusInternalServerError, err)
				return
			}
			allowed = count <= rl.limit
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
			})
			return
		}
		c.Next()
	}
}
