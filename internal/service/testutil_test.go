package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/config"
	"github.com/klya-ai/klya-api/internal/logger"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/repository"
	"github.com/klya-ai/klya-api/internal/storage"
	"github.com/stretchr/testify/require"
)

// stack wires the real repositories over an in-memory sqlite database.
type stack struct {
	db       *storage.Database
	keys     *repository.APIKeyRepository
	users    *repository.UserRepository
	events   *repository.UsageEventRepository
	service  *APIKeyService
	verifier *Verifier
	owner    *models.User
}

func newStack(t *testing.T) *stack {
	t.Helper()

	db, err := storage.NewDatabase(config.DatabaseConfig{Type: "sqlite", DSN: ":memory:"}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate())

	s := &stack{
		db:     db,
		keys:   repository.NewAPIKeyRepository(db),
		users:  repository.NewUserRepository(db),
		events: repository.NewUsageEventRepository(db),
	}
	s.service = NewAPIKeyService(s.keys, logger.Discard())
	s.verifier = NewVerifier(s.keys, NewOwnerDirectory(s.users, time.Minute), time.Second, logger.Discard())

	s.owner = &models.User{Email: "owner@klya.ai", PasswordHash: "hash", Name: "Owner"}
	require.NoError(t, s.users.Create(context.Background(), s.owner))

	return s
}

func (s *stack) createKey(t *testing.T, permissions ...string) (*models.APIKey, string) {
	t.Helper()

	apiKey, secret, err := s.service.Create(context.Background(), CreateKeyParams{
		OwnerID:     s.owner.ID,
		Name:        "test key",
		Permissions: permissions,
	})
	require.NoError(t, err)
	return apiKey, secret
}

func (s *stack) recordEvents(t *testing.T, n int, at time.Time) {
	t.Helper()

	events := make([]models.UsageEvent, n)
	for i := range events {
		events[i] = models.UsageEvent{
			OwnerID:    s.owner.ID,
			Method:     "POST",
			Path:       "/v1/content/generate",
			StatusCode: 200,
			CreatedAt:  at,
		}
	}
	require.NoError(t, s.events.CreateBatch(context.Background(), events))
}

// fakeKeys is an in-memory KeyLookup with injectable failures.
type fakeKeys struct {
	mu        sync.Mutex
	byDigest  map[string]*models.APIKey
	findErr   error
	usageErr  error
	block     bool
	usageHits int
}

func (f *fakeKeys) FindByDigest(ctx context.Context, digest string) (*models.APIKey, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.findErr != nil {
		return nil, f.findErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	apiKey, ok := f.byDigest[digest]
	if !ok {
		return nil, nil
	}
	copied := *apiKey
	return &copied, nil
}

func (f *fakeKeys) UpdateUsage(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usageHits++
	return f.usageErr
}

type fakeOwners struct {
	user *models.User
	err  error
}

func (f fakeOwners) Resolve(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return f.user, f.err
}

type fakeCounter struct {
	count int64
	err   error
	since []time.Time
}

func (f *fakeCounter) CountSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error) {
	f.since = append(f.since, since)
	return f.count, f.err
}
