package postgres

import (
	"context"
	"fmt"

	"github.com/vietddude/gridpulse/internal/core/domain"
)

// EventRepo implements storage.ErrorEventRepository using PostgreSQL.
type EventRepo struct {
	db *DB
}

// NewEventRepo creates a new PostgreSQL error event repository.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

// Save appends an error event.
func (r *EventRepo) Save(ctx context.Context, event *domain.ErrorEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO error_events
			(id, kind, message, resource, operation, site_id, source_key,
			 retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		event.ID,
		string(event.Kind),
		event.Message,
		event.Context.Resource,
		event.Context.Operation,
		event.Context.SiteID,
		event.Context.SourceKey,
		event.RetryCount,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save error event: %w", err)
	}
	return nil
}

// ListRecent retrieves the most recent events, newest first.
func (r *EventRepo) ListRecent(ctx context.Context, limit int) ([]*domain.ErrorEvent, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, kind, message, resource, operation, site_id, source_key,
		       retry_count, created_at
		FROM error_events
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query error events: %w", err)
	}
	defer rows.Close()

	var events []*domain.ErrorEvent
	for rows.Next() {
		ev := &domain.ErrorEvent{}
		var kind string
		if err := rows.Scan(
			&ev.ID, &kind, &ev.Message,
			&ev.Context.Resource, &ev.Context.Operation,
			&ev.Context.SiteID, &ev.Context.SourceKey,
			&ev.RetryCount, &ev.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan error event: %w", err)
		}
		ev.Kind = domain.ErrorKind(kind)
		events = append(events, ev)
	}
	return events, rows.Err()
}
