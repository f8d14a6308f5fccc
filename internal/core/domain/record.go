package domain

// AnomalyReason is a stable reason code attached to a flagged record.
type AnomalyReason string

const (
	ReasonMissingField        AnomalyReason = "missing_field"
	ReasonNegativeGeneration  AnomalyReason = "negative_generation"
	ReasonNegativeConsumption AnomalyReason = "negative_consumption"
	ReasonNegativeNet         AnomalyReason = "negative_net"
)

// EnergyRecord is one processed reading. Immutable once computed; corrections
// are written as new records with new timestamps.
type EnergyRecord struct {
	SiteID             string          `db:"site_id"              json:"site_id"`
	Timestamp          string          `db:"ts"                   json:"timestamp"`
	EnergyGeneratedKWh float64         `db:"energy_generated_kwh" json:"energy_generated_kwh"`
	EnergyConsumedKWh  float64         `db:"energy_consumed_kwh"  json:"energy_consumed_kwh"`
	NetEnergyKWh       float64         `db:"net_energy_kwh"       json:"net_energy_kwh"`
	Anomaly            bool            `db:"anomaly"              json:"anomaly"`
	AnomalyReasons     []AnomalyReason `db:"-"                    json:"anomaly_reasons"`
	ProcessedAt        string          `db:"processed_at"         json:"processed_at"`
}

// HasReason reports whether the record carries the given reason code.
func (r *EnergyRecord) HasReason(reason AnomalyReason) bool {
	for _, got := range r.AnomalyReasons {
		if got == reason {
			return true
		}
	}
	return false
}

// ValidationFailure captures one structurally broken batch element. It is
// never fatal to the batch.
type ValidationFailure struct {
	SourceIndex int    `json:"source_index"`
	Reason      string `json:"reason"`
	RawPayload  string `json:"raw_payload"`
}

// Batch is one ingestion unit: raw record payloads plus the source object key.
type Batch struct {
	SourceKey string
	Payload   []byte
}
