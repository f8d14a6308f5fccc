package storage

import (
	"context"

	"github.com/vietddude/gridpulse/internal/core/domain"
)

// RecordRepository handles processed energy record storage.
type RecordRepository interface {
	// Save persists a record keyed by (site_id, timestamp). Re-writing the
	// same key with the same content is a no-op for the caller.
	Save(ctx context.Context, record *domain.EnergyRecord) error

	// GetBySiteRange retrieves records for a site within [from, to],
	// ordered by timestamp.
	GetBySiteRange(ctx context.Context, siteID, from, to string) ([]*domain.EnergyRecord, error)

	// CountBySite returns the number of stored records for a site.
	CountBySite(ctx context.Context, siteID string) (int, error)
}

// ErrorEventRepository handles the error event log.
type ErrorEventRepository interface {
	// Save appends an error event. Events are terminal once written.
	Save(ctx context.Context, event *domain.ErrorEvent) error

	// ListRecent retrieves the most recent events, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.ErrorEvent, error)
}
