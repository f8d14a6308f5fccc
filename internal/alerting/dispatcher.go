package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/gridpulse/internal/core/domain"
	"github.com/vietddude/gridpulse/internal/infra/metrics"
)

// Outcome reports what the dispatcher did with an alert candidate.
type Outcome string

const (
	OutcomeDelivered    Outcome = "delivered"
	OutcomeDeduplicated Outcome = "deduplicated"
	OutcomeDigestOnly   Outcome = "digest_only"
	OutcomeNoRoute      Outcome = "no_route"
)

// DispatcherConfig holds alert dispatch settings.
type DispatcherConfig struct {
	DedupWindow time.Duration `yaml:"dedup_window"`
	Primary     string        `yaml:"primary_channel"`
}

// DefaultDispatcherConfig provides sensible defaults.
var DefaultDispatcherConfig = DispatcherConfig{
	DedupWindow: 15 * time.Minute,
	Primary:     "log",
}

// Dispatcher deduplicates alert candidates and fans them out to the channel
// set implied by their severity.
type Dispatcher struct {
	cfg      DispatcherConfig
	channels []Channel
	dedup    DedupStore
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher over the configured channels. The
// primary channel must be among them.
func NewDispatcher(cfg DispatcherConfig, channels []Channel, dedup DedupStore) *Dispatcher {
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = DefaultDispatcherConfig.DedupWindow
	}
	if cfg.Primary == "" {
		cfg.Primary = DefaultDispatcherConfig.Primary
	}
	return &Dispatcher{
		cfg:      cfg,
		channels: channels,
		dedup:    dedup,
		log:      slog.Default(),
	}
}

// Notify routes the input, deduplicates and delivers. DigestOnly routes are
// never dispatched immediately; the daily aggregator picks them up.
func (d *Dispatcher) Notify(ctx context.Context, in Input) (Outcome, error) {
	route, ok := RouteFor(in)
	if !ok {
		return OutcomeNoRoute, nil
	}
	if route.DigestOnly {
		return OutcomeDigestOnly, nil
	}

	alert := buildAlert(in, route.Severity)

	fresh, err := d.dedup.ReserveDedup(ctx, alert.DedupKey, d.cfg.DedupWindow)
	if err != nil {
		// Dedup store trouble must not swallow alerts; deliver anyway.
		d.log.Warn("Dedup store unavailable, delivering without suppression",
			"dedup_key", alert.DedupKey, "error", err)
	} else if !fresh {
		metrics.AlertsDeduplicated.Inc()
		return OutcomeDeduplicated, nil
	}

	d.deliver(ctx, alert, route.Target)
	return OutcomeDelivered, nil
}

// Digest sends a periodic summary alert. It bypasses dedup entirely: a digest
// is always sent once per period even if its content is unchanged.
func (d *Dispatcher) Digest(ctx context.Context, alert *domain.Alert) {
	target := TargetPrimary
	if alert.Severity == domain.SeverityCritical {
		target = TargetAll
	}
	d.deliver(ctx, alert, target)
}

// deliver fans out to the target channel set with at most one redelivery
// retry per channel, so alert failures never feed back into the retry
// subsystem.
func (d *Dispatcher) deliver(ctx context.Context, alert *domain.Alert, target string) {
	for _, ch := range d.targetChannels(target) {
		err := ch.Send(ctx, alert)
		if err != nil {
			err = ch.Send(ctx, alert)
		}
		if err != nil {
			// Logged as a structured error event; no further retries.
			d.log.Error("Alert delivery failed",
				"kind", domain.ErrorKindTransient,
				"resource", domain.ResourceAlertChannel,
				"operation", "send_"+ch.Name(),
				"retry_count", 1,
				"severity", alert.Severity,
				"dedup_key", alert.DedupKey,
				"error", err,
			)
			continue
		}
		metrics.AlertsDispatched.WithLabelValues(string(alert.Severity)).Inc()
	}
}

func (d *Dispatcher) targetChannels(target string) []Channel {
	if target == TargetAll {
		return d.channels
	}
	for _, ch := range d.channels {
		if ch.Name() == d.cfg.Primary {
			return []Channel{ch}
		}
	}
	// Primary misconfigured; fall back to everything rather than dropping.
	return d.channels
}

// buildAlert constructs the alert candidate, deriving the dedup key from
// (site or resource, reason code) so identical conditions collapse.
func buildAlert(in Input, severity domain.Severity) *domain.Alert {
	alert := &domain.Alert{
		ID:        uuid.New().String(),
		Severity:  severity,
		CreatedAt: time.Now().UTC(),
	}

	switch {
	case in.Record != nil:
		reasons := make([]string, 0, len(in.Record.AnomalyReasons))
		for _, r := range in.Record.AnomalyReasons {
			reasons = append(reasons, string(r))
		}
		alert.DedupKey = fmt.Sprintf("%s:%s", in.Record.SiteID, strings.Join(reasons, ","))
		alert.Subject = fmt.Sprintf("Energy anomaly detected - %s", in.Record.SiteID)
		alert.Body = fmt.Sprintf(
			"Site: %s\nTime: %s\nReasons: %s\n\n"+
				"Generation: %.2f kWh\nConsumption: %.2f kWh\nNet: %.2f kWh\n\n"+
				"Recommended actions: check site equipment status, verify sensor "+
				"readings, review maintenance logs.",
			in.Record.SiteID, in.Record.Timestamp, strings.Join(reasons, ", "),
			in.Record.EnergyGeneratedKWh, in.Record.EnergyConsumedKWh, in.Record.NetEnergyKWh,
		)
	case in.Event != nil:
		alert.DedupKey = fmt.Sprintf("%s:%s", in.Event.Context.Resource, in.Event.Kind)
		alert.Subject = fmt.Sprintf("%s failure - %s", in.Event.Kind, in.Event.Context.Resource)
		alert.Body = fmt.Sprintf(
			"Resource: %s\nOperation: %s\nKind: %s\nRetries: %d\n\nError: %s",
			in.Event.Context.Resource, in.Event.Context.Operation,
			in.Event.Kind, in.Event.RetryCount, in.Event.Message,
		)
	}

	return alert
}
