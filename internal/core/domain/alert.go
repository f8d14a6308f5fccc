package domain

import "time"

// Severity is the ordinal alert urgency level.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is one operator-facing notification candidate.
type Alert struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	DedupKey  string    `json:"dedup_key"`
	CreatedAt time.Time `json:"created_at"`
}
