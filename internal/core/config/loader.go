package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/gridpulse/internal/alerting"
	"github.com/vietddude/gridpulse/internal/ingest"
	"github.com/vietddude/gridpulse/internal/resilience"
	"github.com/vietddude/gridpulse/internal/summary"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Ingest.DropDir == "" {
		cfg.Ingest.DropDir = "energy_data"
	}
	if cfg.Ingest.Scanner.ScanInterval == 0 {
		cfg.Ingest.Scanner = ingest.DefaultScannerConfig()
	}
	if cfg.Ingest.Worker.EmptySleep == 0 && cfg.Ingest.Worker.ProcessTimeout == 0 {
		cfg.Ingest.Worker = ingest.DefaultWorkerConfig()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.DefaultRetryConfig
	}
	if cfg.Breaker.Threshold == 0 {
		cfg.Breaker = resilience.DefaultBreakerConfig
	}
	if cfg.Alerting.Dispatch.DedupWindow == 0 {
		cfg.Alerting.Dispatch.DedupWindow = alerting.DefaultDispatcherConfig.DedupWindow
	}
	if cfg.Alerting.Dispatch.Primary == "" {
		cfg.Alerting.Dispatch.Primary = alerting.DefaultDispatcherConfig.Primary
	}
	if cfg.Summary.CheckInterval == 0 {
		cfg.Summary = summary.DefaultConfig
	}
}
