package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/patrickmn/go-cache"
)

type OwnerFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// OwnerDirectory resolves key owners with a short-lived in-memory cache so
// verification costs one query on the hot path.
type OwnerDirectory struct {
	users OwnerFinder
	cache *cache.Cache
}

func NewOwnerDirectory(users OwnerFinder, ttl time.Duration) *OwnerDirectory {
	return &OwnerDirectory{
		users: users,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Resolve returns a copy of the owner, or nil, nil if the account is gone.
func (d *OwnerDirectory) Resolve(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if cached, ok := d.cache.Get(id.String()); ok {
		user := cached.(models.User)
		return &user, nil
	}

	user, err := d.users.FindByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}

	d.cache.SetDefault(id.String(), *user)
	copied := *user
	return &copied, nil
}

// Forget drops a cached owner after its profile changes.
func (d *OwnerDirectory) Forget(id uuid.UUID) {
	d.cache.Delete(id.String())
}
