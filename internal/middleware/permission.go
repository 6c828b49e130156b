package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klya-ai/klya-api/internal/service"
)

// RequirePermission rejects keys that do not grant capability. It must run
// after APIKeyAuth.
func RequirePermission(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !service.HasPermission(APIKeyFrom(c), capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "API key lacks the required permission",
				"permission": capability,
			})
			return
		}
		c.Next()
	}
}
