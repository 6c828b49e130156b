package middleware

import (
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klya-ai/klya-api/internal/ratelimit"
)

// IPThrottle limits unauthenticated routes per client IP.
func IPThrottle(throttle *ratelimit.Throttle) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, wait := throttle.Allow(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}
		c.Next()
	}
}
