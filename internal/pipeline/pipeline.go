package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/crime-map-service/internal/domain"
	"github.com/couchcryptid/crime-map-service/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize redraw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RedrawEvent, error)
}

// Transformer encodes a redraw event for the sink.
type Transformer interface {
	Transform(ctx context.Context, event domain.RedrawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline moves redraw events from the in-process queue to the sink.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	running     atomic.Bool
	batchSize   int

	// pending holds an encoded batch whose load failed; it is retried before
	// anything new is extracted.
	pending []domain.OutputEvent
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil while Run is active.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.running.Load() {
		return errors.New("redraw-event pipeline is not running")
	}
	return nil
}

// Run publishes batches until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.running.Store(true)
	p.metrics.PipelineRunning.Set(1)
	defer func() {
		p.running.Store(false)
		p.metrics.PipelineRunning.Set(0)
	}()

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err(), "unpublished", len(p.pending))
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err(), "unpublished", len(p.pending))
			return nil
		}
	}
}

// processBatch runs one extract-encode-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	if len(p.pending) > 0 {
		return p.load(ctx, backoff)
	}

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.BatchSize.Observe(float64(len(batch)))

	out := make([]domain.OutputEvent, 0, len(batch))
	for _, ev := range batch {
		enc, err := p.transformer.Transform(ctx, ev)
		if err != nil {
			p.logger.Warn("encode failed, skipping event",
				"error", err,
				"event_id", ev.ID,
				"month", ev.Month,
			)
			p.metrics.PublishErrors.Inc()
			continue
		}
		out = append(out, enc)
	}
	if len(out) == 0 {
		return true
	}

	p.pending = out
	return p.load(ctx, backoff)
}

// load writes the pending batch, keeping it for a retry on failure.
func (p *Pipeline) load(ctx context.Context, backoff *time.Duration) bool {
	if err := p.loader.LoadBatch(ctx, p.pending); err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(p.pending), "retry_in", *backoff)
		p.metrics.PublishErrors.Inc()
		return p.backoffOrStop(ctx, backoff)
	}

	p.metrics.EventsPublished.Add(float64(len(p.pending)))
	p.logger.Debug("batch published", "batch_size", len(p.pending))
	p.pending = nil
	*backoff = initialBackoff
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}
