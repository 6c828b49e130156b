package usage

import (
	"context"
	"errors"

	"github.com/klya-ai/klya-api/internal/models"
)

// Fanout records every event to each sink in order and joins their errors.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, event models.UsageEvent) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
