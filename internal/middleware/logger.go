package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		statusCode := c.Writer.Status()
		attrs := []any{
			"request_id", c.GetString(KeyRequestID),
			"method", method,
			"path", path,
			"status", statusCode,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if apiKey := APIKeyFrom(c); apiKey != nil {
			attrs = append(attrs, "key_id", apiKey.ID.String())
		}

		switch {
		case statusCode >= 500:
			log.Error("request", attrs...)
		case statusCode >= 400:
			log.Warn("request", attrs...)
		default:
			log.Info("request", attrs...)
		}
	}
}
