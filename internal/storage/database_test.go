package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/klya-ai/klya-api/internal/config"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewDatabase_SQLite(t *testing.T) {
	db, err := NewDatabase(config.DatabaseConfig{Type: "sqlite", DSN: ":memory:"}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.AutoMigrate())
	assert.NoError(t, db.Ping(context.Background()))

	for _, table := range []string{"users", "api_keys", "usage_events"} {
		assert.True(t, db.DB.Migrator().HasTable(table), table)
	}
	assert.True(t, db.DB.Migrator().HasColumn(&models.APIKey{}, "rate_limit_per_minute"))
	assert.True(t, db.DB.Migrator().HasColumn(&models.APIKey{}, "secret"))
}

func TestNewDatabase_Unsupported(t *testing.T) {
	_, err := NewDatabase(config.DatabaseConfig{Type: "mysql", DSN: "x"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestTransaction_RollsBack(t *testing.T) {
	db, err := NewDatabase(config.DatabaseConfig{Type: "sqlite", DSN: ":memory:"}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate())

	err = db.Transaction(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&models.User{Email: "a@klya.ai", PasswordHash: "x"}).Error; err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	var count int64
	db.DB.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestGormLogger_SkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	db, err := NewDatabase(config.DatabaseConfig{Type: "sqlite", DSN: ":memory:"}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate())

	quiet := db.DB.Session(&gorm.Session{Logger: newGormLogger(&buf, logger.Warn)})

	var apiKey models.APIKey
	err = quiet.Where("secret_digest = ?", "unknown").First(&apiKey).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	// real failures still reach the log
	_ = quiet.Exec("SELECT * FROM missing_table").Error
	assert.Contains(t, buf.String(), "missing_table")
}
