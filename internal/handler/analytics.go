package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klya-ai/klya-api/internal/middleware"
	"github.com/klya-ai/klya-api/internal/service"
)

type AnalyticsHandler struct {
	service *service.AnalyticsService
	log     *slog.Logger
}

func NewAnalyticsHandler(service *service.AnalyticsService, log *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, log: log}
}

// Handles GET /v1/analytics/usage
func (h *AnalyticsHandler) Usage(c *gin.Context) {
	from, to, err := h.parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), middleware.APIKeyFrom(c), from, to)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Handles GET /v1/analytics/events
func (h *AnalyticsHandler) Events(c *gin.Context) {
	from, to, err := h.parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	apiKey := middleware.APIKeyFrom(c)
	events, err := h.service.Events(c.Request.Context(), apiKey.OwnerID, from, to, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"limit":  limit,
		"offset": offset,
	})
}

// Parses 'from' and 'to' as RFC3339 or unix seconds; defaults to the last 24 hours
func (h *AnalyticsHandler) parseTimeRange(c *gin.Context) (time.Time, time.Time, error) {
	from, to := h.service.DefaultRange()

	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := parseTime(fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %w", err)
		}
		from = parsed
	}

	if toStr := c.Query("to"); toStr != "" {
		parsed, err := parseTime(toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %w", err)
		}
		to = parsed
	}

	return from, to, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	timestamp, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or unix seconds, got %q", s)
	}
	return time.Unix(timestamp, 0), nil
}
