package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/gridpulse/internal/core/domain"
)

type fakeChannel struct {
	name     string
	sent     []*domain.Alert
	failures int // fail this many sends before succeeding
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(ctx context.Context, alert *domain.Alert) error {
	if c.failures > 0 {
		c.failures--
		return errors.New("channel unavailable")
	}
	c.sent = append(c.sent, alert)
	return nil
}

func anomalyInput(site string) Input {
	return Input{Record: &domain.EnergyRecord{
		SiteID:         site,
		Timestamp:      "2025-06-08T00:15:00Z",
		Anomaly:        true,
		AnomalyReasons: []domain.AnomalyReason{domain.ReasonNegativeNet},
	}}
}

func TestDispatcherDeduplicates(t *testing.T) {
	primary := &fakeChannel{name: "log"}
	store := NewMemoryDedupStore()
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	d := NewDispatcher(
		DispatcherConfig{DedupWindow: 15 * time.Minute, Primary: "log"},
		[]Channel{primary},
		store,
	)

	out, err := d.Notify(context.Background(), anomalyInput("SITE_001"))
	if err != nil || out != OutcomeDelivered {
		t.Fatalf("first notify = %v, %v; want delivered", out, err)
	}

	out, _ = d.Notify(context.Background(), anomalyInput("SITE_001"))
	if out != OutcomeDeduplicated {
		t.Fatalf("second notify = %v, want deduplicated", out)
	}
	if len(primary.sent) != 1 {
		t.Fatalf("delivered %d alerts inside dedup window, want 1", len(primary.sent))
	}

	// Window expires: the same alert is delivered again.
	now = now.Add(16 * time.Minute)
	out, _ = d.Notify(context.Background(), anomalyInput("SITE_001"))
	if out != OutcomeDelivered {
		t.Fatalf("notify after window = %v, want delivered", out)
	}
	if len(primary.sent) != 2 {
		t.Errorf("delivered %d alerts after window expiry, want 2", len(primary.sent))
	}
}

func TestDispatcherDistinctKeysNotSuppressed(t *testing.T) {
	primary := &fakeChannel{name: "log"}
	d := NewDispatcher(DispatcherConfig{}, []Channel{primary}, NewMemoryDedupStore())

	d.Notify(context.Background(), anomalyInput("SITE_001"))
	d.Notify(context.Background(), anomalyInput("SITE_002"))

	if len(primary.sent) != 2 {
		t.Errorf("delivered %d alerts for distinct sites, want 2", len(primary.sent))
	}
}

func TestDispatcherCriticalFansOutToAllChannels(t *testing.T) {
	primary := &fakeChannel{name: "log"}
	secondary := &fakeChannel{name: "pager"}
	d := NewDispatcher(
		DispatcherConfig{Primary: "log"},
		[]Channel{primary, secondary},
		NewMemoryDedupStore(),
	)

	out, _ := d.Notify(context.Background(), Input{Event: &domain.ErrorEvent{
		Kind:    domain.ErrorKindCircuitOpen,
		Message: "circuit open",
		Context: domain.ErrorContext{Resource: domain.ResourceEnergyStore, Operation: "put_record"},
	}})
	if out != OutcomeDelivered {
		t.Fatalf("outcome = %v, want delivered", out)
	}
	if len(primary.sent) != 1 || len(secondary.sent) != 1 {
		t.Errorf("critical alert fanout = %d/%d, want 1/1", len(primary.sent), len(secondary.sent))
	}
}

func TestDispatcherMediumUsesPrimaryOnly(t *testing.T) {
	primary := &fakeChannel{name: "log"}
	secondary := &fakeChannel{name: "pager"}
	d := NewDispatcher(
		DispatcherConfig{Primary: "log"},
		[]Channel{primary, secondary},
		NewMemoryDedupStore(),
	)

	d.Notify(context.Background(), anomalyInput("SITE_001"))
	if len(primary.sent) != 1 || len(secondary.sent) != 0 {
		t.Errorf("medium alert fanout = %d/%d, want 1/0", len(primary.sent), len(secondary.sent))
	}
}

func TestDispatcherDigestOnlyNotDispatched(t *testing.T) {
	primary := &fakeChannel{name: "log"}
	d := NewDispatcher(DispatcherConfig{}, []Channel{primary}, NewMemoryDedupStore())

	out, _ := d.Notify(context.Background(), Input{Record: &domain.EnergyRecord{
		SiteID:         "SITE_001",
		Anomaly:        true,
		AnomalyReasons: []domain.AnomalyReason{domain.ReasonMissingField},
	}})
	if out != OutcomeDigestOnly {
		t.Fatalf("outcome = %v, want digest_only", out)
	}
	if len(primary.sent) != 0 {
		t.Errorf("digest-only alert was dispatched immediately")
	}
}

func TestDispatcherRetriesChannelOnce(t *testing.T) {
	flaky := &fakeChannel{name: "log", failures: 1}
	d := NewDispatcher(DispatcherConfig{Primary: "log"}, []Channel{flaky}, NewMemoryDedupStore())

	d.Notify(context.Background(), anomalyInput("SITE_001"))
	if len(flaky.sent) != 1 {
		t.Errorf("single channel failure not retried, sent = %d", len(flaky.sent))
	}

	dead := &fakeChannel{name: "log", failures: 10}
	d2 := NewDispatcher(DispatcherConfig{Primary: "log"}, []Channel{dead}, NewMemoryDedupStore())
	d2.Notify(context.Background(), anomalyInput("SITE_002"))
	if dead.failures != 8 {
		t.Errorf("channel attempted %d times, want exactly 2 (one retry)", 10-dead.failures)
	}
}

func TestDispatcherDigestBypassesDedup(t *testing.T) {
	primary := &fakeChannel{name: "log"}
	d := NewDispatcher(DispatcherConfig{Primary: "log"}, []Channel{primary}, NewMemoryDedupStore())

	digest := &domain.Alert{
		Severity: domain.SeverityLow,
		Subject:  "Daily summary",
		DedupKey: "digest:2025-06-08",
	}
	d.Digest(context.Background(), digest)
	d.Digest(context.Background(), digest)

	if len(primary.sent) != 2 {
		t.Errorf("digest suppressed by dedup: sent = %d, want 2", len(primary.sent))
	}
}
