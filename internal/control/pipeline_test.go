package control

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/gridpulse/internal/core/config"
)

func memoryConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		Server: config.ServerConfig{Port: 0},
		Ingest: config.IngestConfig{DropDir: t.TempDir()},
	}
}

func TestNewPipelineMemoryFallback(t *testing.T) {
	// No database URL and no Redis URL: the pipeline runs fully in-process.
	p, err := NewPipeline(memoryConfig(t))
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	if p.db != nil || p.redisClient != nil {
		t.Error("memory fallback opened external connections")
	}
}

func TestNewPipelineRejectsMissingDropDir(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Ingest.DropDir = "/nonexistent/drop/dir"

	if _, err := NewPipeline(cfg); err == nil {
		t.Fatal("expected error for missing drop directory")
	}
}

func TestPipelineStartStop(t *testing.T) {
	p, err := NewPipeline(memoryConfig(t))
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := p.Stop(shutdownCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
