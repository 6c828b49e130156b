package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/storage"
	"github.com/redis/go-redis/v9"
)

// retention covers the longest rate-limit window.
const retention = 24 * time.Hour

// RedisEventLog keeps each owner's usage events in a sorted set scored by
// timestamp, so window counts are a single ZCOUNT.
type RedisEventLog struct {
	redis  *storage.RedisClient
	prefix string
}

func NewRedisEventLog(redis *storage.RedisClient, prefix string) *RedisEventLog {
	if prefix == "" {
		prefix = "klya:usage"
	}
	return &RedisEventLog{
		redis:  redis,
		prefix: prefix,
	}
}

func (l *RedisEventLog) key(ownerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", l.prefix, ownerID)
}

// Record adds the event and trims entries older than the day window.
func (l *RedisEventLog) Record(ctx context.Context, event models.UsageEvent) error {
	at := event.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	redisKey := l.key(event.OwnerID)

	pipe := l.redis.Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+score(at.Add(-retention)))

	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score: float64(at.UnixMicro()),
		// unique per request even when two land on the same microsecond
		Member: fmt.Sprintf("%d:%s", at.UnixMicro(), uuid.NewString()),
	})
	pipe.Expire(ctx, redisKey, retention+time.Minute)

	_, err := pipe.Exec(ctx)
	return err
}

// CountSince counts the owner's events with timestamp >= since.
func (l *RedisEventLog) CountSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error) {
	return l.redis.ZCount(ctx, l.key(ownerID), score(since), "+inf")
}

// score uses microseconds, which a float64 holds exactly for current dates.
func score(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro(), 10)
}

// Clear drops every event recorded for the owner.
func (l *RedisEventLog) Clear(ctx context.Context, ownerID uuid.UUID) error {
	return l.redis.Del(ctx, l.key(ownerID))
}
