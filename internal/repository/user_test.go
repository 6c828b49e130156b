package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createUser(t, db, "esi@klya.ai")

	byEmail, err := repo.FindByEmail(ctx, "esi@klya.ai")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.Create(ctx, &models.User{Email: "esi@klya.ai", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, repo.Update(ctx, user.ID, &models.User{Name: "Esi", BusinessName: "Esi Prints"}, "name", "business_name"))
	updated, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Esi", updated.Name)
	assert.Equal(t, "Esi Prints", updated.BusinessName)

	assert.ErrorIs(t, repo.Update(ctx, uuid.New(), &models.User{Name: "x"}, "name"), ErrNotFound)
}
