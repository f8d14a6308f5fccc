package alerting

import (
	"context"
	"sync"
	"time"
)

// DedupStore claims dedup keys for a suppression window. The Redis client
// satisfies this so concurrent invocations share suppression state; the
// in-process store below is the fallback.
type DedupStore interface {
	ReserveDedup(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryDedupStore is a process-local TTL cache. Entries are claimed with a
// per-key compare-and-swap so unrelated keys never contend.
type MemoryDedupStore struct {
	entries sync.Map // key -> expiry (time.Time)
	now     func() time.Time
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{now: time.Now}
}

// ReserveDedup claims the key until now+ttl. Returns false when the key is
// already held and unexpired.
func (s *MemoryDedupStore) ReserveDedup(
	ctx context.Context,
	key string,
	ttl time.Duration,
) (bool, error) {
	now := s.now()
	expiry := now.Add(ttl)

	for {
		prev, loaded := s.entries.LoadOrStore(key, expiry)
		if !loaded {
			return true, nil
		}
		if now.Before(prev.(time.Time)) {
			return false, nil
		}
		// Expired entry: take it over atomically.
		if s.entries.CompareAndSwap(key, prev, expiry) {
			return true, nil
		}
	}
}
