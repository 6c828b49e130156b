package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/storage"
)

type UsageEventRepository struct {
	db *storage.Database
}

func NewUsageEventRepository(db *storage.Database) *UsageEventRepository {
	return &UsageEventRepository{db: db}
}

// PathCount is one row of TopPaths.
type PathCount struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

func (r *UsageEventRepository) Create(ctx context.Context, event *models.UsageEvent) error {
	return r.db.DB.WithContext(ctx).Create(event).Error
}

// Inserts multiple events (for batch insertion)
func (r *UsageEventRepository) CreateBatch(ctx context.Context, events []models.UsageEvent) error {
	if len(events) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&events).Error
}

// CountSince counts the owner's events with created_at >= since.
func (r *UsageEventRepository) CountSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageEvent{}).
		Where("owner_id = ? AND created_at >= ?", ownerID, since.UTC()).
		Count(&count).Error

	return count, err
}

// Counts the owner's events in [from, to]
func (r *UsageEventRepository) CountByRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageEvent{}).
		Where("owner_id = ? AND created_at BETWEEN ? AND ?", ownerID, from.UTC(), to.UTC()).
		Count(&count).Error

	return count, err
}

// Counts the owner's events whose status falls in [minStatus, maxStatus]
func (r *UsageEventRepository) CountByStatusRange(ctx context.Context, ownerID uuid.UUID, minStatus, maxStatus int, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageEvent{}).
		Where("owner_id = ? AND status_code BETWEEN ? AND ? AND created_at BETWEEN ? AND ?",
			ownerID, minStatus, maxStatus, from.UTC(), to.UTC()).
		Count(&count).Error

	return count, err
}

// Calculates the average response time of the owner's events
func (r *UsageEventRepository) AverageResponseTime(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (float64, error) {
	var avg float64
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageEvent{}).
		Select("COALESCE(AVG(response_time_ms), 0)").
		Where("owner_id = ? AND created_at BETWEEN ? AND ?", ownerID, from.UTC(), to.UTC()).
		Scan(&avg).Error

	return avg, err
}

// Returns the owner's most requested paths
func (r *UsageEventRepository) TopPaths(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit int) ([]PathCount, error) {
	var results []PathCount
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageEvent{}).
		Select("path, COUNT(*) AS count").
		Where("owner_id = ? AND created_at BETWEEN ? AND ?", ownerID, from.UTC(), to.UTC()).
		Group("path").
		Order("count DESC").
		Limit(limit).
		Scan(&results).Error

	return results, err
}

// Returns the owner's events newest first
func (r *UsageEventRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit, offset int) ([]models.UsageEvent, error) {
	var events []models.UsageEvent
	err := r.db.DB.WithContext(ctx).
		Where("owner_id = ? AND created_at BETWEEN ? AND ?", ownerID, from.UTC(), to.UTC()).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error

	return events, err
}

// Deletes events older than the specified time
func (r *UsageEventRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("created_at < ?", before.UTC()).
		Delete(&models.UsageEvent{})

	return result.RowsAffected, result.Error
}
