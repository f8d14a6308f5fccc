// Package alerting routes anomaly and error contexts to severity levels and
// delivers deduplicated operator alerts.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/gridpulse/internal/core/domain"
)

// Channel delivers one alert to a configured endpoint. Delivery is
// fire-and-forget from the pipeline's perspective.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert *domain.Alert) error
}

// LogChannel writes alerts to the structured log. Always configured so
// operators can follow alerts without any external endpoint.
type LogChannel struct {
	log *slog.Logger
}

func NewLogChannel() *LogChannel {
	return &LogChannel{log: slog.Default()}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(ctx context.Context, alert *domain.Alert) error {
	c.log.Warn("ALERT",
		"severity", alert.Severity,
		"subject", alert.Subject,
		"dedup_key", alert.DedupKey,
		"body", alert.Body,
	)
	return nil
}

// WebhookChannel posts alerts as JSON to an HTTP endpoint (email gateway,
// chat hook, paging bridge).
type WebhookChannel struct {
	name   string
	url    string
	client *http.Client
}

func NewWebhookChannel(name, url string, timeout time.Duration) *WebhookChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *WebhookChannel) Name() string { return c.name }

func (c *WebhookChannel) Send(ctx context.Context, alert *domain.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
