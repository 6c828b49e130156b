package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/keygen"
	"github.com/klya-ai/klya-api/internal/models"
)

// MaxKeysPerOwner caps how many keys one account may hold.
const MaxKeysPerOwner = 25

// KeyRepository is the persistence the key store needs. Every method except
// FindByDigest and UpdateUsage is scoped to an owner.
type KeyRepository interface {
	Create(ctx context.Context, apiKey *models.APIKey) error
	FindByDigest(ctx context.Context, digest string) (*models.APIKey, error)
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*models.APIKey, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.APIKey, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, changes *models.APIKey, columns ...string) error
	UpdateSecret(ctx context.Context, ownerID, id uuid.UUID, secret string) error
	UpdateUsage(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type APIKeyService struct {
	repository KeyRepository
	generate   func() (string, error)
	now        func() time.Time
	log        *slog.Logger
}

func NewAPIKeyService(repo KeyRepository, log *slog.Logger) *APIKeyService {
	return &APIKeyService{
		repository: repo,
		generate:   keygen.Generate,
		now:        time.Now,
		log:        log,
	}
}

type CreateKeyParams struct {
	OwnerID     uuid.UUID
	Name        string
	Permissions []string
	RateLimits  *models.RateLimits // nil means defaults
	ExpiresAt   *time.Time
}

// UpdateKeyParams carries the owner's edits; nil fields are left unchanged.
type UpdateKeyParams struct {
	Name        *string
	Permissions []string
	RateLimits  *models.RateLimits
	ExpiresAt   *time.Time
	ClearExpiry bool
	IsActive    *bool
}

// Create stores a new key and returns it together with the raw secret.
// The secret is not retrievable afterwards.
func (s *APIKeyService) Create(ctx context.Context, params CreateKeyParams) (*models.APIKey, string, error) {
	if params.OwnerID == uuid.Nil {
		return nil, "", invalid("owner_id", "is required")
	}

	name, err := validateName(params.Name)
	if err != nil {
		return nil, "", err
	}

	permissions, err := validatePermissions(params.Permissions)
	if err != nil {
		return nil, "", err
	}

	limits := models.DefaultRateLimits()
	if params.RateLimits != nil {
		if err := validateRateLimits(*params.RateLimits); err != nil {
			return nil, "", err
		}
		limits = *params.RateLimits
	}

	if params.ExpiresAt != nil && !params.ExpiresAt.After(s.now()) {
		return nil, "", invalid("expires_at", "must be in the future")
	}

	count, err := s.repository.CountByOwner(ctx, params.OwnerID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to count API keys: %w", err)
	}
	if count >= MaxKeysPerOwner {
		return nil, "", invalid("api_keys", "maximum of %d per account", MaxKeysPerOwner)
	}

	secret, err := s.generate()
	if err != nil {
		return nil, "", err
	}

	apiKey := &models.APIKey{
		OwnerID:     params.OwnerID,
		Name:        name,
		Secret:      secret,
		Permissions: permissions,
		IsActive:    true,
		RateLimits:  limits,
		ExpiresAt:   utcPtr(params.ExpiresAt),
	}

	if err := s.repository.Create(ctx, apiKey); err != nil {
		return nil, "", fmt.Errorf("failed to create API key: %w", err)
	}
	apiKey.Secret = ""

	s.log.Info("api_key_created",
		"owner_id", apiKey.OwnerID.String(),
		"key_id", apiKey.ID.String(),
		"hint", apiKey.Hint,
	)

	// Return plain key (only time it's visible)
	return apiKey, secret, nil
}

func (s *APIKeyService) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.APIKey, error) {
	apiKey, err := s.repository.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if apiKey == nil {
		return nil, ErrNotFound
	}
	return apiKey, nil
}

func (s *APIKeyService) List(ctx context.Context, ownerID uuid.UUID) ([]models.APIKey, error) {
	return s.repository.ListByOwner(ctx, ownerID)
}

// Update applies the owner's edits and returns the stored key.
func (s *APIKeyService) Update(ctx context.Context, ownerID, id uuid.UUID, params UpdateKeyParams) (*models.APIKey, error) {
	changes := &models.APIKey{}
	var columns []string

	if params.Name != nil {
		name, err := validateName(*params.Name)
		if err != nil {
			return nil, err
		}
		changes.Name = name
		columns = append(columns, "name")
	}

	if params.Permissions != nil {
		permissions, err := validatePermissions(params.Permissions)
		if err != nil {
			return nil, err
		}
		changes.Permissions = permissions
		columns = append(columns, "permissions")
	}

	if params.RateLimits != nil {
		if err := validateRateLimits(*params.RateLimits); err != nil {
			return nil, err
		}
		changes.RateLimits = *params.RateLimits
		columns = append(columns, "rate_limit_per_minute", "rate_limit_per_hour", "rate_limit_per_day")
	}

	switch {
	case params.ClearExpiry:
		changes.ExpiresAt = nil
		columns = append(columns, "expires_at")
	case params.ExpiresAt != nil:
		if !params.ExpiresAt.After(s.now()) {
			return nil, invalid("expires_at", "must be in the future")
		}
		changes.ExpiresAt = utcPtr(params.ExpiresAt)
		columns = append(columns, "expires_at")
	}

	if params.IsActive != nil {
		changes.IsActive = *params.IsActive
		columns = append(columns, "is_active")
	}

	if len(columns) == 0 {
		return nil, invalid("body", "no fields to update")
	}

	if err := s.repository.Update(ctx, ownerID, id, changes, columns...); err != nil {
		return nil, err
	}

	s.log.Info("api_key_updated",
		"owner_id", ownerID.String(),
		"key_id", id.String(),
		"fields", strings.Join(columns, ","),
	)

	return s.Get(ctx, ownerID, id)
}

// Deactivate soft-disables a key; it stops verifying but keeps its history.
func (s *APIKeyService) Deactivate(ctx context.Context, ownerID, id uuid.UUID) (*models.APIKey, error) {
	inactive := false
	return s.Update(ctx, ownerID, id, UpdateKeyParams{IsActive: &inactive})
}

// Rotate replaces the key's secret. The old secret stops verifying
// immediately; the new one is returned once.
func (s *APIKeyService) Rotate(ctx context.Context, ownerID, id uuid.UUID) (*models.APIKey, string, error) {
	secret, err := s.generate()
	if err != nil {
		return nil, "", err
	}

	if err := s.repository.UpdateSecret(ctx, ownerID, id, secret); err != nil {
		return nil, "", err
	}

	apiKey, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, "", err
	}

	s.log.Info("api_key_rotated",
		"owner_id", ownerID.String(),
		"key_id", id.String(),
		"hint", apiKey.Hint,
	)

	return apiKey, secret, nil
}

func (s *APIKeyService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.repository.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	s.log.Info("api_key_deleted", "owner_id", ownerID.String(), "key_id", id.String())
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > models.MaxKeyNameLength {
		return "", invalid("name", "must be %d characters or less", models.MaxKeyNameLength)
	}
	return name, nil
}

// validatePermissions checks every value against the fixed set and drops duplicates.
func validatePermissions(permissions []string) ([]string, error) {
	if len(permissions) == 0 {
		return nil, invalid("permissions", "at least one permission is required")
	}

	seen := make(map[string]struct{}, len(permissions))
	out := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if !models.IsValidPermission(p) {
			return nil, invalid("permissions", "unknown permission %q", p)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func validateRateLimits(limits models.RateLimits) error {
	if limits.PerMinute <= 0 || limits.PerHour <= 0 || limits.PerDay <= 0 {
		return invalid("rate_limits", "every ceiling must be positive")
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
