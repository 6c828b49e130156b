package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/models"
)

// Keys under which middleware stores values on the gin context.
const (
	KeyAPIKey    = "api_key"
	KeyUserID    = "user_id"
	KeyRequestID = "request_id"
)

// APIKeyFrom returns the key verified by APIKeyAuth, or nil.
func APIKeyFrom(c *gin.Context) *models.APIKey {
	if v, exists := c.Get(KeyAPIKey); exists {
		if apiKey, ok := v.(*models.APIKey); ok {
			return apiKey
		}
	}
	return nil
}

// UserIDFrom returns the owner authenticated by RequireAuth.
func UserIDFrom(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(KeyUserID); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
