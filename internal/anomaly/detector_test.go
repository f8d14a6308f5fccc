package anomaly

import (
	"testing"

	"github.com/vietddude/gridpulse/internal/core/domain"
)

func f(v float64) *float64 { return &v }

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		c       Candidate
		net     float64
		anomaly bool
		reasons []domain.AnomalyReason
	}{
		{
			name:    "normal surplus",
			c:       Candidate{GeneratedKWh: f(50), ConsumedKWh: f(30)},
			net:     20,
			anomaly: false,
		},
		{
			name:    "net deficit",
			c:       Candidate{GeneratedKWh: f(10), ConsumedKWh: f(15)},
			net:     -5,
			anomaly: true,
			reasons: []domain.AnomalyReason{domain.ReasonNegativeNet},
		},
		{
			name:    "negative generation",
			c:       Candidate{GeneratedKWh: f(-15.5), ConsumedKWh: f(45.2)},
			net:     -60.7,
			anomaly: true,
			reasons: []domain.AnomalyReason{
				domain.ReasonNegativeGeneration,
				domain.ReasonNegativeNet,
			},
		},
		{
			name:    "negative consumption",
			c:       Candidate{GeneratedKWh: f(5), ConsumedKWh: f(-2)},
			net:     7,
			anomaly: true,
			reasons: []domain.AnomalyReason{domain.ReasonNegativeConsumption},
		},
		{
			name:    "both negative accumulates all reasons",
			c:       Candidate{GeneratedKWh: f(-1), ConsumedKWh: f(-2)},
			net:     1,
			anomaly: true,
			reasons: []domain.AnomalyReason{
				domain.ReasonNegativeGeneration,
				domain.ReasonNegativeConsumption,
			},
		},
		{
			name:    "missing generated",
			c:       Candidate{ConsumedKWh: f(10)},
			net:     0,
			anomaly: true,
			reasons: []domain.AnomalyReason{domain.ReasonMissingField},
		},
		{
			name:    "missing field suppresses negative_net",
			c:       Candidate{GeneratedKWh: f(-3)},
			net:     0,
			anomaly: true,
			reasons: []domain.AnomalyReason{
				domain.ReasonMissingField,
				domain.ReasonNegativeGeneration,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.c)
			if got.NetEnergyKWh != tt.net {
				t.Errorf("net = %v, want %v", got.NetEnergyKWh, tt.net)
			}
			if got.Anomaly != tt.anomaly {
				t.Errorf("anomaly = %v, want %v", got.Anomaly, tt.anomaly)
			}
			if len(got.Reasons) != len(tt.reasons) {
				t.Fatalf("reasons = %v, want %v", got.Reasons, tt.reasons)
			}
			for i := range tt.reasons {
				if got.Reasons[i] != tt.reasons[i] {
					t.Errorf("reasons[%d] = %v, want %v", i, got.Reasons[i], tt.reasons[i])
				}
			}
		})
	}
}

func TestDetectDeterministic(t *testing.T) {
	c := Candidate{GeneratedKWh: f(-1), ConsumedKWh: f(5)}
	first := Detect(c)
	for i := 0; i < 100; i++ {
		got := Detect(c)
		if got.NetEnergyKWh != first.NetEnergyKWh || len(got.Reasons) != len(first.Reasons) {
			t.Fatalf("detection not deterministic: %+v vs %+v", got, first)
		}
	}
}
