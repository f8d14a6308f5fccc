// Package control wires the ingestion pipeline together and manages its
// lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/gridpulse/internal/alerting"
	"github.com/vietddude/gridpulse/internal/batch"
	"github.com/vietddude/gridpulse/internal/core/config"
	"github.com/vietddude/gridpulse/internal/infra/health"
	redisclient "github.com/vietddude/gridpulse/internal/infra/redis"
	"github.com/vietddude/gridpulse/internal/infra/storage"
	"github.com/vietddude/gridpulse/internal/infra/storage/memory"
	"github.com/vietddude/gridpulse/internal/infra/storage/postgres"
	"github.com/vietddude/gridpulse/internal/ingest"
	"github.com/vietddude/gridpulse/internal/resilience"
	"github.com/vietddude/gridpulse/internal/summary"
)

// Pipeline is the main application struct that manages component lifecycle.
type Pipeline struct {
	cfg          *config.AppConfig
	scanner      *ingest.Scanner
	worker       *ingest.Worker
	aggregator   *summary.Aggregator
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewPipeline creates a pipeline with all dependencies initialized.
func NewPipeline(cfg *config.AppConfig) (*Pipeline, error) {

	// 1. Initialize Storage
	var recordRepo storage.RecordRepository
	var eventRepo storage.ErrorEventRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations. Goose needs the raw *sql.DB that sqlx wraps.
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		recordRepo = postgres.NewRecordRepo(db)
		eventRepo = postgres.NewEventRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		recordRepo = memory.NewRecordRepo(store)
		eventRepo = memory.NewEventRepo(store)
		slog.Info("Using Memory storage")
	}

	// 2. Initialize Redis (arrival queue and shared alert dedup)
	var redisClient *redisclient.Client
	var queue ingest.Queue
	var dedup alerting.DedupStore
	var depth health.DepthReader

	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		queue = redisClient
		dedup = redisClient
		depth = redisClient
		slog.Info("Using Redis arrival queue")
	} else {
		memQueue := ingest.NewMemoryQueue()
		queue = memQueue
		depth = memQueue
		dedup = alerting.NewMemoryDedupStore()
		slog.Info("Using in-process arrival queue")
	}

	// 3. Initialize Alerting
	channels := []alerting.Channel{alerting.NewLogChannel()}
	if cfg.Alerting.WebhookURL != "" {
		channels = append(channels,
			alerting.NewWebhookChannel("webhook", cfg.Alerting.WebhookURL, cfg.Alerting.WebhookTimeout))
	}
	dispatcher := alerting.NewDispatcher(cfg.Alerting.Dispatch, channels, dedup)

	// 4. Initialize Aggregation and Resilience
	aggregator := summary.NewAggregator(cfg.Summary, dispatcher)
	breaker := resilience.NewBreaker(cfg.Breaker)
	retrier := resilience.NewRetrier(cfg.Retry, breaker)

	// 5. Initialize Batch Processing and Ingest
	processor := batch.NewProcessor(recordRepo, eventRepo, retrier, dispatcher, aggregator)

	source, err := ingest.NewFSSource(cfg.Ingest.DropDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init object source: %w", err)
	}
	scanner := ingest.NewScanner(cfg.Ingest.Scanner, source, queue)
	worker := ingest.NewWorker(cfg.Ingest.Worker, queue, source, processor)

	// 6. Initialize Health Monitor
	var dbPinger, redisPinger health.Pinger
	if db != nil {
		dbPinger = db
	}
	if redisClient != nil {
		redisPinger = redisClient
	}
	healthMon := health.NewMonitor(dbPinger, redisPinger, depth, breaker)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	return &Pipeline{
		cfg:          cfg,
		scanner:      scanner,
		worker:       worker,
		aggregator:   aggregator,
		healthServer: healthServer,
		db:           db,
		redisClient:  redisClient,
		log:          slog.Default(),
	}, nil
}

// Start starts the pipeline and all its components.
func (p *Pipeline) Start(ctx context.Context) error {
	go func() {
		if err := p.healthServer.Start(); err != nil {
			p.log.Error("Health server failed", "error", err)
		}
	}()

	go p.aggregator.Start(ctx)

	go func() {
		if err := p.scanner.Run(ctx); err != nil {
			p.log.Error("Arrival scanner failed", "error", err)
		}
	}()

	go func() {
		if err := p.worker.Run(ctx); err != nil {
			p.log.Error("Ingest worker failed", "error", err)
		}
	}()

	return nil
}

// Stop stops the pipeline. The current summary period is flushed so its
// counters survive the restart as a digest.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.log.Info("Stopping pipeline...")

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	p.aggregator.Flush(flushCtx)

	if p.redisClient != nil {
		if err := p.redisClient.Close(); err != nil {
			p.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if p.db != nil {
		if err := p.db.Close(); err != nil {
			p.log.Warn("Failed to close database", "error", err)
		}
	}

	return p.healthServer.Stop(ctx)
}
