package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/vietddude/gridpulse/internal/core/domain"
)

// RecordRepo implements storage.RecordRepository using PostgreSQL.
type RecordRepo struct {
	db *DB
}

// NewRecordRepo creates a new PostgreSQL record repository.
func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Save upserts a record keyed by (site_id, ts). Records are immutable once
// computed, so a conflicting write with identical content is a no-op.
func (r *RecordRepo) Save(ctx context.Context, record *domain.EnergyRecord) error {
	reasons := make([]string, 0, len(record.AnomalyReasons))
	for _, reason := range record.AnomalyReasons {
		reasons = append(reasons, string(reason))
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO energy_records
			(site_id, ts, energy_generated_kwh, energy_consumed_kwh,
			 net_energy_kwh, anomaly, anomaly_reasons, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (site_id, ts) DO UPDATE SET
			energy_generated_kwh = EXCLUDED.energy_generated_kwh,
			energy_consumed_kwh  = EXCLUDED.energy_consumed_kwh,
			net_energy_kwh       = EXCLUDED.net_energy_kwh,
			anomaly              = EXCLUDED.anomaly,
			anomaly_reasons      = EXCLUDED.anomaly_reasons,
			processed_at         = EXCLUDED.processed_at`,
		record.SiteID,
		record.Timestamp,
		record.EnergyGeneratedKWh,
		record.EnergyConsumedKWh,
		record.NetEnergyKWh,
		record.Anomaly,
		pq.Array(reasons),
		record.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// GetBySiteRange retrieves records for a site within [from, to] ordered by
// timestamp.
func (r *RecordRepo) GetBySiteRange(
	ctx context.Context,
	siteID, from, to string,
) ([]*domain.EnergyRecord, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT site_id, ts, energy_generated_kwh, energy_consumed_kwh,
		       net_energy_kwh, anomaly, anomaly_reasons, processed_at
		FROM energy_records
		WHERE site_id = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts`,
		siteID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*domain.EnergyRecord
	for rows.Next() {
		rec := &domain.EnergyRecord{}
		var reasons pq.StringArray
		if err := rows.Scan(
			&rec.SiteID, &rec.Timestamp,
			&rec.EnergyGeneratedKWh, &rec.EnergyConsumedKWh, &rec.NetEnergyKWh,
			&rec.Anomaly, &reasons, &rec.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		for _, reason := range reasons {
			rec.AnomalyReasons = append(rec.AnomalyReasons, domain.AnomalyReason(reason))
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountBySite returns the number of stored records for a site.
func (r *RecordRepo) CountBySite(ctx context.Context, siteID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM energy_records WHERE site_id = $1`, siteID)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}
