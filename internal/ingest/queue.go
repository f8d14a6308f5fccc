package ingest

import (
	"context"
	"sync"
)

// Queue is the arrival queue between the scanner and the worker. The Redis
// client satisfies this; MemoryQueue serves single-process deployments.
type Queue interface {
	PushArrival(ctx context.Context, objectKey string) error
	PopArrival(ctx context.Context) (objectKey string, found bool, err error)
}

// MemoryQueue is an in-process FIFO arrival queue. Pushing a key already in
// the queue is a no-op, matching the Redis sorted-set behavior.
type MemoryQueue struct {
	mu      sync.Mutex
	keys    []string
	pending map[string]struct{}
}

// NewMemoryQueue creates an empty in-process queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{pending: make(map[string]struct{})}
}

func (q *MemoryQueue) PushArrival(ctx context.Context, objectKey string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[objectKey]; ok {
		return nil
	}
	q.pending[objectKey] = struct{}{}
	q.keys = append(q.keys, objectKey)
	return nil
}

// QueueDepth returns the number of pending arrivals.
func (q *MemoryQueue) QueueDepth(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.keys)), nil
}

func (q *MemoryQueue) PopArrival(ctx context.Context) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.keys) == 0 {
		return "", false, nil
	}
	key := q.keys[0]
	q.keys = q.keys[1:]
	delete(q.pending, key)
	return key, true, nil
}
