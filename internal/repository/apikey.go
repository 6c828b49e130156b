package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/keygen"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/storage"
	"gorm.io/gorm"
)

type APIKeyRepository struct {
	db *storage.Database
}

func NewAPIKeyRepository(db *storage.Database) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create inserts apiKey. A digest already held by another key yields ErrConflict.
func (r *APIKeyRepository) Create(ctx context.Context, apiKey *models.APIKey) error {
	if apiKey.Secret != "" {
		apiKey.SecretDigest = keygen.Digest(apiKey.Secret)
	}

	return translate(r.db.Transaction(ctx, func(tx *gorm.DB) error {
		taken, err := digestTaken(tx, apiKey.SecretDigest, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrConflict
		}

		return tx.Create(apiKey).Error
	}))
}

// FindByDigest looks a key up by the SHA-256 digest of its secret.
// Returns nil, nil when nothing matches.
func (r *APIKeyRepository) FindByDigest(ctx context.Context, digest string) (*models.APIKey, error) {
	var apiKey models.APIKey
	err := r.db.DB.WithContext(ctx).
		Where("secret_digest = ?", digest).
		First(&apiKey).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &apiKey, nil
}

// FindByID returns the owner's key with the given id, or nil, nil.
func (r *APIKeyRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*models.APIKey, error) {
	var apiKey models.APIKey
	err := r.db.DB.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&apiKey).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &apiKey, nil
}

func (r *APIKeyRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := r.db.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&keys).Error

	return keys, err
}

func (r *APIKeyRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error

	return count, err
}

// Update writes the named columns of changes to the owner's key.
func (r *APIKeyRepository) Update(ctx context.Context, ownerID, id uuid.UUID, changes *models.APIKey, columns ...string) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Select(columns).
		Updates(changes)

	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateSecret replaces the secret and its digest.
func (r *APIKeyRepository) UpdateSecret(ctx context.Context, ownerID, id uuid.UUID, secret string) error {
	changes := &models.APIKey{
		Secret:       secret,
		SecretDigest: keygen.Digest(secret),
		Hint:         keygen.Hint(secret),
	}

	return translate(r.db.Transaction(ctx, func(tx *gorm.DB) error {
		taken, err := digestTaken(tx, changes.SecretDigest, id)
		if err != nil {
			return err
		}
		if taken {
			return ErrConflict
		}

		result := tx.Model(&models.APIKey{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Select("secret", "secret_digest", "hint").
			Updates(changes)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}))
}

// UpdateUsage stamps last_used_at and increments usage_count in one statement.
func (r *APIKeyRepository) UpdateUsage(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"last_used_at": at,
			"usage_count":  gorm.Expr("usage_count + ?", 1),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.APIKey{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func digestTaken(tx *gorm.DB, digest string, except uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&models.APIKey{}).
		Where("secret_digest = ? AND id <> ?", digest, except).
		Count(&count).Error

	return count > 0, err
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}
