package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/gridpulse/internal/batch"
	"github.com/vietddude/gridpulse/internal/core/domain"
)

// BatchProcessor runs one decoded arrival through the pipeline.
type BatchProcessor interface {
	Process(ctx context.Context, b domain.Batch) (*batch.Result, error)
}

// WorkerConfig holds configuration for the ingest worker.
type WorkerConfig struct {
	EmptySleep     time.Duration `yaml:"empty_sleep"`     // Sleep when queue empty (default: 5s)
	ProcessTimeout time.Duration `yaml:"process_timeout"` // Max time per batch (default: 2m)
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		EmptySleep:     5 * time.Second,
		ProcessTimeout: 2 * time.Minute,
	}
}

// Worker pops arrivals off the queue and feeds them to the processor.
type Worker struct {
	cfg       WorkerConfig
	queue     Queue
	source    ObjectSource
	processor BatchProcessor
	log       *slog.Logger
}

// NewWorker creates a new ingest worker.
func NewWorker(cfg WorkerConfig, queue Queue, source ObjectSource, processor BatchProcessor) *Worker {
	if cfg.EmptySleep <= 0 {
		cfg.EmptySleep = DefaultWorkerConfig().EmptySleep
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = DefaultWorkerConfig().ProcessTimeout
	}
	return &Worker{
		cfg:       cfg,
		queue:     queue,
		source:    source,
		processor: processor,
		log:       slog.Default().With("component", "ingest"),
	}
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting ingest worker")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Ingest worker stopped")
			return nil
		default:
		}

		key, found, err := w.queue.PopArrival(ctx)
		if err != nil {
			w.log.Error("Failed to pop arrival", "error", err)
			w.sleep(ctx)
			continue
		}
		if !found {
			w.sleep(ctx)
			continue
		}

		w.processArrival(ctx, key)
	}
}

// processArrival runs one batch. A fetch failure re-queues the key; a
// batch-level decode failure is reported exactly once and the payload moves
// aside so it never loops.
func (w *Worker) processArrival(ctx context.Context, key string) {
	payload, err := w.source.Get(ctx, key)
	if err != nil {
		w.log.Error("Failed to fetch batch, re-queueing", "key", key, "error", err)
		if requeueErr := w.queue.PushArrival(ctx, key); requeueErr != nil {
			w.log.Error("Failed to re-queue batch", "key", key, "error", requeueErr)
		}
		w.sleep(ctx)
		return
	}

	procCtx, cancel := context.WithTimeout(ctx, w.cfg.ProcessTimeout)
	defer cancel()

	res, err := w.processor.Process(procCtx, domain.Batch{SourceKey: key, Payload: payload})
	if err != nil {
		w.log.Error("Batch failed",
			"kind", domain.ErrorKindValidation, "key", key, "error", err)
		if rejErr := w.source.Reject(ctx, key); rejErr != nil {
			w.log.Warn("Failed to set batch aside", "key", key, "error", rejErr)
		}
		return
	}

	if err := w.source.Archive(ctx, key); err != nil {
		w.log.Warn("Failed to archive batch", "key", key, "error", err)
	}
	w.log.Debug("Arrival completed", "key", key, "persisted", res.Persisted)
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.EmptySleep):
	}
}
