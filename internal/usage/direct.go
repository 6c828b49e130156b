package usage

import (
	"context"
	"time"

	"github.com/klya-ai/klya-api/internal/models"
)

type EventStore interface {
	Create(ctx context.Context, event *models.UsageEvent) error
}

// DirectWriter inserts each event before Record returns, so a count taken
// by the next request already includes it.
type DirectWriter struct {
	store   EventStore
	timeout time.Duration
}

func NewDirectWriter(store EventStore, timeout time.Duration) *DirectWriter {
	if timeout <= 0 {
		timeout = flushTimeout
	}
	return &DirectWriter{store: store, timeout: timeout}
}

func (w *DirectWriter) Record(ctx context.Context, event models.UsageEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	return w.store.Create(ctx, &event)
}
