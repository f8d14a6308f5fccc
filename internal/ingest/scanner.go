package ingest

import (
	"context"
	"log/slog"
	"time"
)

// ScannerConfig holds configuration for the drop-directory scanner.
type ScannerConfig struct {
	ScanInterval time.Duration `yaml:"scan_interval"`
}

// DefaultScannerConfig returns default scanner configuration.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		ScanInterval: 10 * time.Second,
	}
}

// Scanner polls the object source and enqueues every pending batch key.
// Re-enqueueing a key that is already pending is harmless.
type Scanner struct {
	cfg    ScannerConfig
	source ObjectSource
	queue  Queue
	log    *slog.Logger
}

// NewScanner creates a new arrival scanner.
func NewScanner(cfg ScannerConfig, source ObjectSource, queue Queue) *Scanner {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultScannerConfig().ScanInterval
	}
	return &Scanner{
		cfg:    cfg,
		source: source,
		queue:  queue,
		log:    slog.Default().With("component", "scanner"),
	}
}

// Run starts the scanner loop.
func (s *Scanner) Run(ctx context.Context) error {
	s.log.Info("Starting arrival scanner", "interval", s.cfg.ScanInterval)

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		s.scan(ctx)

		select {
		case <-ctx.Done():
			s.log.Info("Arrival scanner stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Scanner) scan(ctx context.Context) {
	keys, err := s.source.List(ctx)
	if err != nil {
		s.log.Error("Failed to list pending batches", "error", err)
		return
	}

	for _, key := range keys {
		if err := s.queue.PushArrival(ctx, key); err != nil {
			s.log.Error("Failed to enqueue batch", "key", key, "error", err)
			return
		}
	}
	if len(keys) > 0 {
		s.log.Debug("Enqueued pending batches", "count", len(keys))
	}
}
