package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitMax    = 50
	rateLimitWindow = time.Second
)

// RateLimitOptions tunes RateLimit. Zero values fall back to 50 requests per second.
type RateLimitOptions struct {
	Max    int64
	Window time.Duration
}

func (o RateLimitOptions) normalize() RateLimitOptions {
	if o.Max <= 0 {
		o.Max = rateLimitMax
	}
	if o.Window <= 0 {
		o.Window = rateLimitWindow
	}
	return o
}

// RateLimit enforces a fixed-window limit per client IP for anonymous
// requests. Counters live in Redis when rdb is set, otherwise in memory.
func RateLimit(rdb *redis.Client, opts RateLimitOptions) gin.HandlerFunc {
	opts = opts.normalize()
	local := cache.New(opts.Window*2, opts.Window*4)

	return func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		window := time.Now().UnixNano() / int64(opts.Window)
		key := fmt.Sprintf("mx:rate_limit:%s:%d", ip, window)

		var count int64
		if rdb != nil {
			ctx := c.Request.Context()
			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				c.Next()
				return
			}
			if n == 1 {
				rdb.PExpire(ctx, key, opts.Window+time.Second)
			}
			count = n
		} else {
			_ = local.Add(key, int64(0), cache.DefaultExpiration)
			n, err := local.IncrementInt64(key, 1)
			if err != nil {
				c.Next()
				return
			}
			count = n
		}

		if count > opts.Max {
			c.Header("Retry-After", fmt.Sprintf("%d", int(opts.Window.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":      0,
				"code":    http.StatusTooManyRequests,
				"message": "Slow down a little, you are posting too fast.",
			})
			return
		}

		c.Next()
	}
}
