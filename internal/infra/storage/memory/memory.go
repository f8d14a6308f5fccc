package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vietddude/gridpulse/internal/core/domain"
)

// MemoryStorage backs the repositories when no database is configured
// (tests, local development).
type MemoryStorage struct {
	records map[string]*domain.EnergyRecord // keyed by site_id + "|" + ts
	events  []*domain.ErrorEvent
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*domain.EnergyRecord),
	}
}

// -----------------------------------------------------------------------------
// Record Repository
// -----------------------------------------------------------------------------

type RecordRepo struct {
	store *MemoryStorage
}

func NewRecordRepo(store *MemoryStorage) *RecordRepo {
	return &RecordRepo{store: store}
}

func (r *RecordRepo) Save(ctx context.Context, record *domain.EnergyRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := record.SiteID + "|" + record.Timestamp
	r.store.records[key] = record
	return nil
}

func (r *RecordRepo) GetBySiteRange(
	ctx context.Context,
	siteID, from, to string,
) ([]*domain.EnergyRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.EnergyRecord
	for _, rec := range r.store.records {
		if rec.SiteID == siteID && rec.Timestamp >= from && rec.Timestamp <= to {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (r *RecordRepo) CountBySite(ctx context.Context, siteID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, rec := range r.store.records {
		if rec.SiteID == siteID {
			count++
		}
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// Error Event Repository
// -----------------------------------------------------------------------------

type EventRepo struct {
	store *MemoryStorage
}

func NewEventRepo(store *MemoryStorage) *EventRepo {
	return &EventRepo{store: store}
}

func (r *EventRepo) Save(ctx context.Context, event *domain.ErrorEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.events = append(r.store.events, event)
	return nil
}

func (r *EventRepo) ListRecent(ctx context.Context, limit int) ([]*domain.ErrorEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	n := len(r.store.events)
	if limit > n {
		limit = n
	}
	out := make([]*domain.ErrorEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.store.events[i])
	}
	return out, nil
}
