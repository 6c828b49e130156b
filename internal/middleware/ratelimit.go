package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klya-ai/klya-api/internal/service"
)

// RateLimit enforces the verified key's minute, hour and day ceilings
// against its owner's recorded usage.
func RateLimit(checker *service.RateLimitChecker, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := APIKeyFrom(c)
		if apiKey == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}

		result, err := checker.CheckAll(c.Request.Context(), apiKey)
		if err != nil {
			log.Error("rate_limit_check_failed",
				"key_id", apiKey.ID.String(),
				"error", err.Error(),
			)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Rate limit check failed",
			})
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Ceiling))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))
		c.Header("X-RateLimit-Window", string(result.Window))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"window":      result.Window,
				"limit":       result.Ceiling,
				"retry_after": result.ResetAt.Unix(),
			})
			return
		}

		c.Next()
	}
}
