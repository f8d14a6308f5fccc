package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/gridpulse/internal/resilience"
)

type fakePinger struct{ err error }

func (p *fakePinger) Health(ctx context.Context) error { return p.err }

type fakeDepth struct{ depth int64 }

func (d *fakeDepth) QueueDepth(ctx context.Context) (int64, error) { return d.depth, nil }

func TestMonitorHealthy(t *testing.T) {
	m := NewMonitor(&fakePinger{}, &fakePinger{}, &fakeDepth{depth: 3}, nil)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy", report.Status)
	}
	if report.QueueDepth != 3 {
		t.Errorf("queue depth = %d, want 3", report.QueueDepth)
	}
}

func TestMonitorDegradedOnPingFailure(t *testing.T) {
	m := NewMonitor(&fakePinger{err: errors.New("connection refused")}, nil, nil, nil)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("status = %v, want degraded", report.Status)
	}
	if report.Components["database"].Status != StatusDegraded {
		t.Errorf("database component = %v, want degraded", report.Components["database"])
	}
}

func TestMonitorCriticalOnOpenCircuit(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Threshold: 2,
		Window:    time.Minute,
		Cooldown:  time.Minute,
	})
	breaker.ReportFailure("energy_store")
	breaker.ReportFailure("energy_store")

	m := NewMonitor(&fakePinger{}, nil, nil, breaker)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusCritical {
		t.Errorf("status = %v, want critical", report.Status)
	}
	if report.Breakers["energy_store"] != "open" {
		t.Errorf("breaker state = %q, want open", report.Breakers["energy_store"])
	}
}

func TestMonitorCachesReport(t *testing.T) {
	p := &fakePinger{}
	m := NewMonitor(p, nil, nil, nil)

	first := m.CheckHealth(context.Background())
	p.err = errors.New("down")
	second := m.CheckHealth(context.Background())

	// Within the rate-limit window the cached report is returned.
	if first != second {
		t.Error("report not cached inside the check window")
	}
}
