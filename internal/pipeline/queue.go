package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/crime-map-service/internal/domain"
	"github.com/couchcryptid/crime-map-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Queue buffers redraw events between the map controller and the pipeline.
// It implements mapview.Observer and BatchExtractor. Observe never blocks:
// when the buffer is full the event is dropped and counted.
type Queue struct {
	events  chan domain.RedrawEvent
	flush   time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewQueue creates a queue holding up to size events. A batch is handed out
// once it is full or flush has passed since its first event.
func NewQueue(size int, flush time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Queue {
	if size < 1 {
		size = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Queue{
		events:  make(chan domain.RedrawEvent, size),
		flush:   flush,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

func (q *Queue) Observe(ev domain.RedrawEvent) {
	select {
	case q.events <- ev:
	default:
		q.metrics.EventsDropped.Inc()
		q.logger.Warn("redraw event queue full, dropping event", "event_id", ev.ID, "month", ev.Month)
	}
}

// Len is the number of buffered events.
func (q *Queue) Len() int { return len(q.events) }

// ExtractBatch blocks until at least one event is available, then collects
// more until batchSize is reached or the flush interval elapses.
func (q *Queue) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RedrawEvent, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	var batch []domain.RedrawEvent
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev := <-q.events:
		batch = append(batch, ev)
	}

	timer := q.clock.NewTimer(q.flush)
	defer timer.Stop()

	for len(batch) < batchSize {
		select {
		case ev := <-q.events:
			batch = append(batch, ev)
		case <-timer.Chan():
			return batch, nil
		case <-ctx.Done():
			return batch, nil
		}
	}
	return batch, nil
}
