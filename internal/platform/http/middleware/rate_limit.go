package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"company_backend/internal/shared/ratelimiter"
)

// RateLimit はクライアントIPごとのレート制限を行い、超過時は429を返します。
// limiterがnilの場合は何もしません。
func RateLimit(limiter *ratelimiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		ok, retryAfter := limiter.Allow(c.ClientIP())
		if !ok {
			slog.Warn("rate limit exceeded", "remote_addr", c.ClientIP(), "path", c.Request.URL.Path)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
