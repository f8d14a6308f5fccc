// Package summary accumulates per-site daily counters and emits one digest
// alert per period.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/gridpulse/internal/core/domain"
)

// Digester delivers the periodic digest alert, bypassing dedup suppression.
type Digester interface {
	Digest(ctx context.Context, alert *domain.Alert)
}

// Config holds aggregator settings.
type Config struct {
	CheckInterval time.Duration `yaml:"check_interval"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	CheckInterval: time.Minute,
}

// Aggregator accumulates counts from every processed record and every error
// event, keyed by site and UTC calendar day.
type Aggregator struct {
	cfg      Config
	digester Digester
	log      *slog.Logger

	mu     sync.Mutex
	date   string
	counts map[string]*domain.SiteCounts

	now func() time.Time
}

// NewAggregator creates an aggregator that flushes through the digester.
func NewAggregator(cfg Config, digester Digester) *Aggregator {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultConfig.CheckInterval
	}
	a := &Aggregator{
		cfg:      cfg,
		digester: digester,
		log:      slog.Default(),
		counts:   make(map[string]*domain.SiteCounts),
		now:      time.Now,
	}
	a.date = a.today()
	return a
}

func (a *Aggregator) today() string {
	return a.now().UTC().Format("2006-01-02")
}

// ObserveRecord counts one processed record for the current period.
func (a *Aggregator) ObserveRecord(rec *domain.EnergyRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.site(rec.SiteID)
	c.RecordCount++
	if rec.Anomaly {
		c.AnomalyCount++
	}
}

// ObserveError counts one terminal error event for the current period.
func (a *Aggregator) ObserveError(ev *domain.ErrorEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	site := ev.Context.SiteID
	if site == "" {
		site = ev.Context.Resource
	}
	a.site(site).ErrorCount++
}

// site must be called with the lock held.
func (a *Aggregator) site(id string) *domain.SiteCounts {
	c, ok := a.counts[id]
	if !ok {
		c = &domain.SiteCounts{}
		a.counts[id] = c
	}
	return c
}

// Flush closes the current period: counters are swapped out under the lock
// so increments racing with the flush land in the new period, then exactly
// one digest alert is emitted regardless of content.
func (a *Aggregator) Flush(ctx context.Context) *domain.DailySummary {
	a.mu.Lock()
	flushed := a.counts
	date := a.date
	a.counts = make(map[string]*domain.SiteCounts)
	a.date = a.today()
	a.mu.Unlock()

	s := &domain.DailySummary{
		Date:          date,
		PerSiteCounts: flushed,
	}
	s.HealthScore = healthScore(s)

	alert := buildDigest(s)
	a.digester.Digest(ctx, alert)
	a.log.Info("Daily digest emitted",
		"date", s.Date, "health_score", s.HealthScore, "severity", alert.Severity)
	return s
}

// Start runs the period-boundary loop: a digest is flushed once whenever the
// UTC day rolls over.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			rollover := a.date != a.today()
			a.mu.Unlock()
			if rollover {
				a.Flush(ctx)
			}
		}
	}
}

// healthScore computes 1 - anomaly_rate - error_rate, clamped to [0, 1].
// An empty period scores a healthy 1.
func healthScore(s *domain.DailySummary) float64 {
	records, anomalies, errs := s.Totals()
	if records == 0 && errs == 0 {
		return 1
	}
	total := records
	if total == 0 {
		total = errs
	}
	score := 1 - float64(anomalies)/float64(total) - float64(errs)/float64(total)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// digestSeverity maps the health score to alert severity bands.
func digestSeverity(score float64) domain.Severity {
	switch {
	case score >= 0.99:
		return domain.SeverityLow
	case score >= 0.95:
		return domain.SeverityMedium
	case score >= 0.80:
		return domain.SeverityHigh
	default:
		return domain.SeverityCritical
	}
}

func buildDigest(s *domain.DailySummary) *domain.Alert {
	records, anomalies, errs := s.Totals()

	var b strings.Builder
	fmt.Fprintf(&b, "Daily energy system summary for %s\n\n", s.Date)
	fmt.Fprintf(&b, "Records processed: %d\n", records)
	fmt.Fprintf(&b, "Anomalies detected: %d\n", anomalies)
	fmt.Fprintf(&b, "Errors recorded: %d\n", errs)
	fmt.Fprintf(&b, "Health score: %.3f\n", s.HealthScore)

	sites := make([]string, 0, len(s.PerSiteCounts))
	for site := range s.PerSiteCounts {
		sites = append(sites, site)
	}
	sort.Strings(sites)

	if len(sites) > 0 {
		b.WriteString("\nPer-site breakdown:\n")
		for _, site := range sites {
			c := s.PerSiteCounts[site]
			fmt.Fprintf(&b, "  %s: %d records, %d anomalies, %d errors\n",
				site, c.RecordCount, c.AnomalyCount, c.ErrorCount)
		}
	}

	return &domain.Alert{
		ID:        uuid.New().String(),
		Severity:  digestSeverity(s.HealthScore),
		Subject:   fmt.Sprintf("Daily energy system summary - %s", s.Date),
		Body:      b.String(),
		DedupKey:  "digest:" + s.Date,
		CreatedAt: time.Now().UTC(),
	}
}
