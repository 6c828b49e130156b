package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/keygen"
	"gorm.io/gorm"
)

// MaxKeyNameLength bounds APIKey.Name, counted in characters.
const MaxKeyNameLength = 100

type APIKey struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name    string    `gorm:"type:varchar(100);not null" json:"name"`

	// Secret is write-only: gorm never selects it back.
	Secret       string `gorm:"->:false;<-;not null" json:"-"`
	SecretDigest string `gorm:"uniqueIndex;not null" json:"-"`
	Hint         string `gorm:"type:varchar(20)" json:"hint"`

	Permissions []string   `gorm:"type:text;serializer:json;not null" json:"permissions"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	UsageCount  int64      `gorm:"not null;default:0" json:"usage_count"`
	RateLimits  RateLimits `gorm:"embedded;embeddedPrefix:rate_limit_" json:"rate_limits"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Owner *User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
}

func (a *APIKey) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Secret != "" {
		a.SecretDigest = keygen.Digest(a.Secret)
		a.Hint = keygen.Hint(a.Secret)
	}
	return nil
}

func (APIKey) TableName() string {
	return "api_keys"
}

// IsExpired reports whether the key has an expiry at or before now.
func (a *APIKey) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// IsUsable reports whether the key may authenticate a request at now.
func (a *APIKey) IsUsable(now time.Time) bool {
	return a.IsActive && !a.IsExpired(now)
}
