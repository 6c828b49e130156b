package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageEvent is one authenticated request, counted against the owner's
// rate limits and reported in usage analytics.
type UsageEvent struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OwnerID        uuid.UUID `gorm:"type:uuid;not null;index:idx_usage_owner_created,priority:1" json:"owner_id"`
	APIKeyID       uuid.UUID `gorm:"type:uuid;index" json:"api_key_id"`
	Method         string    `json:"method"`
	Path           string    `gorm:"index" json:"path"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	CreatedAt      time.Time `gorm:"not null;index:idx_usage_owner_created,priority:2" json:"created_at"`
}

func (UsageEvent) TableName() string {
	return "usage_events"
}
