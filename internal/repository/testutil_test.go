package repository

import (
	"context"
	"testing"

	"github.com/klya-ai/klya-api/internal/config"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/storage"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *storage.Database {
	t.Helper()

	db, err := storage.NewDatabase(config.DatabaseConfig{Type: "sqlite", DSN: ":memory:"}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.AutoMigrate())
	return db
}

func createUser(t *testing.T, db *storage.Database, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, PasswordHash: "hash", Name: "Ama"}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}
