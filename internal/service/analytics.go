package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/repository"
)

type UsageReader interface {
	CountByRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (int64, error)
	CountByStatusRange(ctx context.Context, ownerID uuid.UUID, minStatus, maxStatus int, from, to time.Time) (int64, error)
	AverageResponseTime(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (float64, error)
	TopPaths(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit int) ([]repository.PathCount, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit, offset int) ([]models.UsageEvent, error)
}

type AnalyticsService struct {
	usage  UsageReader
	limits *RateLimitChecker
	now    func() time.Time
}

func NewAnalyticsService(usage UsageReader, limits *RateLimitChecker) *AnalyticsService {
	return &AnalyticsService{
		usage:  usage,
		limits: limits,
		now:    time.Now,
	}
}

// Holds an owner's usage over a time range plus the live window state
// of the key that asked.
type UsageSummary struct {
	From            time.Time              `json:"from"`
	To              time.Time              `json:"to"`
	TotalRequests   int64                  `json:"total_requests"`
	AvgResponseTime float64                `json:"avg_response_time_ms"`
	ErrorRate       float64                `json:"error_rate"`
	SuccessRate     float64                `json:"success_rate"`
	ClientErrorRate float64                `json:"client_error_rate"`
	ServerErrorRate float64                `json:"server_error_rate"`
	TopPaths        []repository.PathCount `json:"top_paths"`
	Windows         []WindowResult         `json:"windows"`
}

// Summary reports usage for apiKey's owner in [from, to].
func (s *AnalyticsService) Summary(ctx context.Context, apiKey *models.APIKey, from, to time.Time) (*UsageSummary, error) {
	if !from.Before(to) {
		return nil, invalid("from", "must be before to")
	}

	ownerID := apiKey.OwnerID
	summary := &UsageSummary{From: from.UTC(), To: to.UTC(), TopPaths: []repository.PathCount{}}

	windows, err := s.limits.Snapshot(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	summary.Windows = windows

	totalRequests, err := s.usage.CountByRange(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	summary.TotalRequests = totalRequests

	if totalRequests == 0 {
		return summary, nil
	}

	avgResponseTime, err := s.usage.AverageResponseTime(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	summary.AvgResponseTime = avgResponseTime

	clientErrors, err := s.usage.CountByStatusRange(ctx, ownerID, 400, 499, from, to)
	if err != nil {
		return nil, err
	}
	serverErrors, err := s.usage.CountByStatusRange(ctx, ownerID, 500, 599, from, to)
	if err != nil {
		return nil, err
	}

	total := float64(totalRequests)
	summary.ErrorRate = float64(clientErrors+serverErrors) / total * 100
	summary.SuccessRate = 100 - summary.ErrorRate
	summary.ClientErrorRate = float64(clientErrors) / total * 100
	summary.ServerErrorRate = float64(serverErrors) / total * 100

	topPaths, err := s.usage.TopPaths(ctx, ownerID, from, to, 10)
	if err != nil {
		return nil, err
	}
	if topPaths != nil {
		summary.TopPaths = topPaths
	}

	return summary, nil
}

// Events pages through the owner's raw usage events, newest first.
func (s *AnalyticsService) Events(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit, offset int) ([]models.UsageEvent, error) {
	if !from.Before(to) {
		return nil, invalid("from", "must be before to")
	}
	events, err := s.usage.ListByOwner(ctx, ownerID, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.UsageEvent{}
	}
	return events, nil
}

// DefaultRange is the last 24 hours ending now.
func (s *AnalyticsService) DefaultRange() (time.Time, time.Time) {
	to := s.now()
	return to.Add(-24 * time.Hour), to
}
