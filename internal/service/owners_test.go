package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFinder struct {
	user  *models.User
	calls int
}

func (c *countingFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	c.calls++
	if c.user == nil {
		return nil, nil
	}
	copied := *c.user
	return &copied, nil
}

func TestOwnerDirectory_CachesHits(t *testing.T) {
	finder := &countingFinder{user: &models.User{ID: uuid.New(), Email: "a@klya.ai"}}
	dir := NewOwnerDirectory(finder, time.Minute)

	first, err := dir.Resolve(context.Background(), finder.user.ID)
	require.NoError(t, err)
	first.Email = "mutated@klya.ai"

	second, err := dir.Resolve(context.Background(), finder.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@klya.ai", second.Email)
	assert.Equal(t, 1, finder.calls)

	dir.Forget(finder.user.ID)
	_, err = dir.Resolve(context.Background(), finder.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, finder.calls)
}

func TestOwnerDirectory_MissesAreNotCached(t *testing.T) {
	finder := &countingFinder{}
	dir := NewOwnerDirectory(finder, time.Minute)
	id := uuid.New()

	for i := 0; i < 2; i++ {
		user, err := dir.Resolve(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, user)
	}
	assert.Equal(t, 2, finder.calls)
}
