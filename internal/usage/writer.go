package usage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/klya-ai/klya-api/internal/models"
)

// ErrBufferFull is returned by Record when the writer cannot keep up.
var ErrBufferFull = errors.New("usage event buffer full")

const flushTimeout = 5 * time.Second

// Sink accepts usage events for counting and analytics.
type Sink interface {
	Record(ctx context.Context, event models.UsageEvent) error
}

type BatchStore interface {
	CreateBatch(ctx context.Context, events []models.UsageEvent) error
}

// BatchWriter queues events on a buffered channel and inserts them in
// batches, when a batch fills or the flush interval ticks.
type BatchWriter struct {
	store     BatchStore
	events    chan models.UsageEvent
	batchSize int
	interval  time.Duration
	log       *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewBatchWriter(store BatchStore, bufferSize, batchSize int, interval time.Duration, log *slog.Logger) *BatchWriter {
	return &BatchWriter{
		store:     store,
		events:    make(chan models.UsageEvent, bufferSize),
		batchSize: batchSize,
		interval:  interval,
		log:       log,
		done:      make(chan struct{}),
	}
}

// Record queues the event without blocking.
func (w *BatchWriter) Record(_ context.Context, event models.UsageEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	select {
	case w.events <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// Start runs the flush loop until ctx is cancelled or Stop is called.
func (w *BatchWriter) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
}

// Stop ends the loop and waits for queued events to be written.
func (w *BatchWriter) Stop() {
	w.once.Do(func() {
		if w.cancel == nil {
			close(w.done)
			return
		}
		w.cancel()
		<-w.done
	})
}

func (w *BatchWriter) run(ctx context.Context) {
	defer close(w.done)

	batch := make([]models.UsageEvent, 0, w.batchSize)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case event := <-w.events:
			batch = append(batch, event)
			if len(batch) >= w.batchSize {
				batch = w.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = w.flush(ctx, batch)
		case <-ctx.Done():
			w.drain(batch)
			return
		}
	}
}

// drain writes whatever is still queued after shutdown began.
func (w *BatchWriter) drain(batch []models.UsageEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	for {
		select {
		case event := <-w.events:
			batch = append(batch, event)
			if len(batch) >= w.batchSize {
				batch = w.flush(ctx, batch)
			}
		default:
			w.flush(ctx, batch)
			return
		}
	}
}

func (w *BatchWriter) flush(ctx context.Context, batch []models.UsageEvent) []models.UsageEvent {
	if len(batch) == 0 {
		return batch
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	if err := w.store.CreateBatch(writeCtx, batch); err != nil {
		w.log.Error("usage_events_insert_failed",
			"count", len(batch),
			"error", err.Error(),
		)
	}

	return make([]models.UsageEvent, 0, w.batchSize)
}
