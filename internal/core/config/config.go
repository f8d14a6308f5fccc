package config

import (
	"time"

	"github.com/vietddude/gridpulse/internal/alerting"
	"github.com/vietddude/gridpulse/internal/ingest"
	redisclient "github.com/vietddude/gridpulse/internal/infra/redis"
	"github.com/vietddude/gridpulse/internal/infra/storage/postgres"
	"github.com/vietddude/gridpulse/internal/resilience"
	"github.com/vietddude/gridpulse/internal/summary"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig             `yaml:"server"`
	Database postgres.Config          `yaml:"database"`
	Redis    redisclient.Config       `yaml:"redis"`
	Logging  LoggingConfig            `yaml:"logging"`
	Ingest   IngestConfig             `yaml:"ingest"`
	Retry    resilience.RetryConfig   `yaml:"retry"`
	Breaker  resilience.BreakerConfig `yaml:"breaker"`
	Alerting AlertingConfig           `yaml:"alerting"`
	Summary  summary.Config           `yaml:"summary"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// IngestConfig holds settings for the arrival scanner and worker.
type IngestConfig struct {
	DropDir string               `yaml:"drop_dir"`
	Scanner ingest.ScannerConfig `yaml:"scanner"`
	Worker  ingest.WorkerConfig  `yaml:"worker"`
}

// AlertingConfig holds alert dispatch and channel settings.
type AlertingConfig struct {
	Dispatch       alerting.DispatcherConfig `yaml:"dispatch"`
	WebhookURL     string                    `yaml:"webhook_url"`
	WebhookTimeout time.Duration             `yaml:"webhook_timeout"`
}
