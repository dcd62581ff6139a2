package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/observability/metrics"
	"go.uber.org/zap"
)

// GinMiddleware throttles public storefront endpoints per client IP. When
// no limiter is configured (no redis), requests pass through. Limiter
// errors fail open so redis outages do not take the storefront down.
func GinMiddleware(bucket *TokenBucket, cfg config.Config, log *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	limiterLog := log.Named("ratelimit")
	return func(c *gin.Context) {
		if bucket == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:storefront:%s", c.ClientIP())
		res, err := bucket.Allow(c.Request.Context(), key, cfg.StorefrontRateLimit, cfg.StorefrontRateBurst)
		if err != nil {
			limiterLog.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			}
			m.RecordRateLimitDenied(c.Request.Context(), c.FullPath(), "token_bucket")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "too many requests",
				},
			})
			return
		}
		c.Next()
	}
}
