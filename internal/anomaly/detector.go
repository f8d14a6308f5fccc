// Package anomaly derives net energy and anomaly flags for a single reading.
// Detection is a pure function: no I/O, no shared state, safe to run over all
// records of a batch concurrently.
package anomaly

import "github.com/vietddude/gridpulse/internal/core/domain"

// Candidate is one reading with its numeric fields already coerced. A nil
// field means the value was missing or non-numeric in the source payload.
type Candidate struct {
	GeneratedKWh *float64
	ConsumedKWh  *float64
}

// Result is the derived outcome for one candidate.
type Result struct {
	NetEnergyKWh float64
	Anomaly      bool
	Reasons      []domain.AnomalyReason
}

// Detect evaluates every rule independently and accumulates all applicable
// reasons. Rules are not short-circuited; negative_net is suppressed when a
// field is missing because net energy is undefined in that case (it is
// reported as 0 for aggregation).
func Detect(c Candidate) Result {
	var res Result

	missing := c.GeneratedKWh == nil || c.ConsumedKWh == nil
	if missing {
		res.Reasons = append(res.Reasons, domain.ReasonMissingField)
	}

	if c.GeneratedKWh != nil && *c.GeneratedKWh < 0 {
		res.Reasons = append(res.Reasons, domain.ReasonNegativeGeneration)
	}
	if c.ConsumedKWh != nil && *c.ConsumedKWh < 0 {
		res.Reasons = append(res.Reasons, domain.ReasonNegativeConsumption)
	}

	if !missing {
		res.NetEnergyKWh = *c.GeneratedKWh - *c.ConsumedKWh
		if res.NetEnergyKWh < 0 {
			res.Reasons = append(res.Reasons, domain.ReasonNegativeNet)
		}
	}

	res.Anomaly = len(res.Reasons) > 0
	return res
}
