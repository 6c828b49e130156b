package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a disposable Redis, e.g. KLYA_TEST_REDIS_ADDR=localhost:6379.
func newTestRedis(t *testing.T) *storage.RedisClient {
	t.Helper()

	addr := os.Getenv("KLYA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("KLYA_TEST_REDIS_ADDR not set")
	}

	client, err := storage.NewRedis(addr, "", 15)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisEventLog_CountSince(t *testing.T) {
	log := NewRedisEventLog(newTestRedis(t), "klya:test:usage")
	ctx := context.Background()
	owner := uuid.New()
	t.Cleanup(func() { _ = log.Clear(ctx, owner) })

	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, log.Record(ctx, models.UsageEvent{OwnerID: owner, CreatedAt: now.Add(-10 * time.Second)}))
	}
	require.NoError(t, log.Record(ctx, models.UsageEvent{OwnerID: owner, CreatedAt: now.Add(-2 * time.Minute)}))

	count, err := log.CountSince(ctx, owner, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = log.CountSince(ctx, owner, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	count, err = log.CountSince(ctx, uuid.New(), now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestScore_ExactInFloat64(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 30, 45, 123456789, time.UTC)

	assert.Equal(t, "1792326645123456", score(at))
	// the stored float score must compare equal to the string bound
	assert.Equal(t, at.UnixMicro(), int64(float64(at.UnixMicro())))
}

func TestRedisEventLog_LowerBoundInclusive(t *testing.T) {
	log := NewRedisEventLog(newTestRedis(t), "klya:test:usage")
	ctx := context.Background()
	owner := uuid.New()
	t.Cleanup(func() { _ = log.Clear(ctx, owner) })

	at := time.Now().Truncate(time.Microsecond)
	require.NoError(t, log.Record(ctx, models.UsageEvent{OwnerID: owner, CreatedAt: at}))

	count, err := log.CountSince(ctx, owner, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = log.CountSince(ctx, owner, at.Add(time.Microsecond))
	require.NoError(t, err)
	assert.Zero(t, count)
}
