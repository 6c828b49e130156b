package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klya-ai/klya-api/internal/service"
)

// APIKeyAuth verifies the secret sent as "Authorization: Bearer <key>" or
// "X-API-Key: <key>" and stores the key on the context.
func APIKeyAuth(verifier *service.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := extractAPIKey(c)
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "API key required",
			})
			return
		}

		result := verifier.Verify(c.Request.Context(), secret)
		if !result.Accepted() {
			status, message := rejection(result.Reason)
			c.AbortWithStatusJSON(status, gin.H{
				"error":  message,
				"reason": string(result.Reason),
			})
			return
		}

		c.Set(KeyAPIKey, result.Key)
		c.Next()
	}
}

func extractAPIKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader("X-API-Key")); key != "" {
		return key
	}

	authHeader := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func rejection(reason service.Reason) (int, string) {
	switch reason {
	case service.InactiveKey:
		return http.StatusUnauthorized, "API key is inactive"
	case service.ExpiredKey:
		return http.StatusUnauthorized, "API key has expired"
	case service.Timeout, service.Unavailable:
		return http.StatusServiceUnavailable, "API key verification unavailable, retry shortly"
	default:
		return http.StatusUnauthorized, "Invalid API key"
	}
}
