package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/vietddude/gridpulse/internal/core/domain"
)

func newTestBreaker(cfg BreakerConfig) (*Breaker, *time.Time) {
	b := NewBreaker(cfg)
	now := time.Unix(1_700_000_000, 0)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerTripsAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 5, Window: time.Minute, Cooldown: time.Minute})

	for i := 0; i < 4; i++ {
		b.ReportFailure("store")
		if err := b.Allow("store"); err != nil {
			t.Fatalf("circuit opened after %d failures, want threshold 5", i+1)
		}
	}

	b.ReportFailure("store")
	if err := b.Allow("store"); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("Allow after threshold = %v, want ErrCircuitOpen", err)
	}
	if got := b.State("store"); got != StateOpen {
		t.Errorf("state = %v, want open", got)
	}
}

func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	b, now := newTestBreaker(BreakerConfig{Threshold: 2, Window: time.Minute, Cooldown: time.Minute})

	b.ReportFailure("store")
	b.ReportFailure("store")
	if err := b.Allow("store"); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatal("expected open circuit")
	}

	// Cooldown elapses: exactly one probe is admitted.
	*now = now.Add(61 * time.Second)
	if err := b.Allow("store"); err != nil {
		t.Fatalf("probe not admitted after cooldown: %v", err)
	}
	if err := b.Allow("store"); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("second concurrent probe admitted, want ErrCircuitOpen")
	}

	// Probe success closes the circuit and resets the failure count.
	b.ReportSuccess("store")
	if got := b.State("store"); got != StateClosed {
		t.Fatalf("state after probe success = %v, want closed", got)
	}
	b.ReportFailure("store")
	if err := b.Allow("store"); err != nil {
		t.Error("single failure after close reopened the circuit")
	}
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b, now := newTestBreaker(BreakerConfig{Threshold: 1, Window: time.Minute, Cooldown: time.Minute})

	b.ReportFailure("store")
	*now = now.Add(2 * time.Minute)
	if err := b.Allow("store"); err != nil {
		t.Fatalf("probe not admitted: %v", err)
	}

	// Probe fails: circuit reopens and cooldown restarts from now.
	b.ReportFailure("store")
	if got := b.State("store"); got != StateOpen {
		t.Fatalf("state after probe failure = %v, want open", got)
	}
	*now = now.Add(30 * time.Second)
	if err := b.Allow("store"); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Error("circuit admitted a call before the restarted cooldown elapsed")
	}
}

func TestBreakerWindowRollover(t *testing.T) {
	b, now := newTestBreaker(BreakerConfig{Threshold: 3, Window: time.Minute, Cooldown: time.Minute})

	b.ReportFailure("store")
	b.ReportFailure("store")

	// Window rolls over: stale failures no longer count toward the threshold.
	*now = now.Add(2 * time.Minute)
	b.ReportFailure("store")
	b.ReportFailure("store")
	if err := b.Allow("store"); err != nil {
		t.Error("failures across window boundary tripped the circuit")
	}
	b.ReportFailure("store")
	if err := b.Allow("store"); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Error("three failures within one window did not trip the circuit")
	}
}

func TestBreakerResourcesIndependent(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 1, Window: time.Minute, Cooldown: time.Minute})

	b.ReportFailure("store")
	if err := b.Allow("store"); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatal("expected store circuit open")
	}
	if err := b.Allow("alerts"); err != nil {
		t.Error("unrelated resource affected by store circuit")
	}

	snap := b.Snapshot()
	if snap["store"] != StateOpen || snap["alerts"] != StateClosed {
		t.Errorf("snapshot = %v", snap)
	}
}
