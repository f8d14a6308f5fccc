package domain

// SiteCounts accumulates per-site totals for one calendar day.
type SiteCounts struct {
	RecordCount  int `json:"record_count"`
	AnomalyCount int `json:"anomaly_count"`
	ErrorCount   int `json:"error_count"`
}

// DailySummary is one day's accumulated counters plus the derived health
// score, flushed once per period.
type DailySummary struct {
	Date          string                 `json:"date"` // YYYY-MM-DD (UTC)
	PerSiteCounts map[string]*SiteCounts `json:"per_site_counts"`
	HealthScore   float64                `json:"health_score"`
}

// Totals sums the per-site counters.
func (s *DailySummary) Totals() (records, anomalies, errors int) {
	for _, c := range s.PerSiteCounts {
		records += c.RecordCount
		anomalies += c.AnomalyCount
		errors += c.ErrorCount
	}
	return records, anomalies, errors
}
