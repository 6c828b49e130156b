package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/models"
)

// EventCounter counts an owner's usage events at or after since.
type EventCounter interface {
	CountSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error)
}

// WindowResult is the state of one rate-limit window for a key's owner.
type WindowResult struct {
	Window    models.Window `json:"window"`
	Allowed   bool          `json:"allowed"`
	Ceiling   int           `json:"ceiling"`
	Count     int64         `json:"count"`
	Remaining int           `json:"remaining"`
	// ResetAt is the latest moment the window can still be full.
	ResetAt time.Time `json:"reset_at"`
}

// RateLimitChecker compares a point-in-time event count against the key's
// ceilings. Concurrent requests can each observe a count below the ceiling,
// so the limit may be briefly overshot.
type RateLimitChecker struct {
	events EventCounter
	now    func() time.Time
}

func NewRateLimitChecker(events EventCounter) *RateLimitChecker {
	return &RateLimitChecker{
		events: events,
		now:    time.Now,
	}
}

// CheckWindow decides whether the key's owner may make one more request in
// window. Unknown windows are never allowed.
func (c *RateLimitChecker) CheckWindow(ctx context.Context, apiKey *models.APIKey, window models.Window) (WindowResult, error) {
	result := WindowResult{Window: window}

	duration, ok := window.Duration()
	if !ok {
		return result, nil
	}
	ceiling, _ := apiKey.RateLimits.Ceiling(window)
	result.Ceiling = ceiling

	now := c.now()
	count, err := c.events.CountSince(ctx, apiKey.OwnerID, now.Add(-duration))
	if err != nil {
		return result, fmt.Errorf("failed to count usage for %s window: %w", window, err)
	}

	result.Count = count
	result.Allowed = count < int64(ceiling)
	result.ResetAt = now.Add(duration)
	if remaining := int64(ceiling) - count; remaining > 0 {
		result.Remaining = int(remaining)
	}

	return result, nil
}

// CheckAll evaluates minute, hour and day in order. It returns the first
// exhausted window, or the minute window when all allow the request.
func (c *RateLimitChecker) CheckAll(ctx context.Context, apiKey *models.APIKey) (WindowResult, error) {
	var first WindowResult
	for i, window := range models.Windows {
		result, err := c.CheckWindow(ctx, apiKey, window)
		if err != nil {
			return result, err
		}
		if !result.Allowed {
			return result, nil
		}
		if i == 0 {
			first = result
		}
	}
	return first, nil
}

// Snapshot reports every window without short-circuiting, for analytics.
func (c *RateLimitChecker) Snapshot(ctx context.Context, apiKey *models.APIKey) ([]WindowResult, error) {
	results := make([]WindowResult, 0, len(models.Windows))
	for _, window := range models.Windows {
		result, err := c.CheckWindow(ctx, apiKey, window)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
