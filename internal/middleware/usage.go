package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/usage"
)

// RecordUsage writes one usage event per request made with a verified key,
// after the rest of the chain has produced a status. Requests refused by the
// rate limiter are not recorded, so a client backing off regains capacity.
func RecordUsage(sink usage.Sink, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		apiKey := APIKeyFrom(c)
		if apiKey == nil || c.Writer.Status() == http.StatusTooManyRequests {
			return
		}

		event := models.UsageEvent{
			OwnerID:        apiKey.OwnerID,
			APIKeyID:       apiKey.ID,
			Method:         c.Request.Method,
			Path:           c.FullPath(),
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: int(time.Since(start).Milliseconds()),
			IPAddress:      c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
			CreatedAt:      start.UTC(),
		}
		if event.Path == "" {
			event.Path = c.Request.URL.Path
		}

		if err := sink.Record(context.WithoutCancel(c.Request.Context()), event); err != nil {
			log.Warn("usage_event_dropped",
				"key_id", apiKey.ID.String(),
				"error", err.Error(),
			)
		}
	}
}
