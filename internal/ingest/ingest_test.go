package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/vietddude/gridpulse/internal/batch"
	"github.com/vietddude/gridpulse/internal/core/domain"
)

type fakeProcessor struct {
	mu      sync.Mutex
	seen    []domain.Batch
	failKey string
}

func (p *fakeProcessor) Process(ctx context.Context, b domain.Batch) (*batch.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, b)
	if b.SourceKey == p.failKey {
		return nil, errors.New("failed to decode batch")
	}
	return &batch.Result{SourceKey: b.SourceKey, Attempted: 1, Persisted: 1}, nil
}

func writeBatch(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFSSourceListSkipsArchived(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "energy_data/a.json", "[]")
	writeBatch(t, dir, "energy_data/b.json", "[]")
	writeBatch(t, dir, "notes.txt", "ignore me")

	src, err := NewFSSource(dir)
	if err != nil {
		t.Fatal(err)
	}

	keys, err := src.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("listed %d keys, want 2: %v", len(keys), keys)
	}

	if err := src.Archive(context.Background(), "energy_data/a.json"); err != nil {
		t.Fatal(err)
	}

	keys, err = src.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "energy_data/b.json" {
		t.Errorf("keys after archive = %v, want [energy_data/b.json]", keys)
	}

	// Archived payload is still readable under processed/.
	if _, err := os.Stat(filepath.Join(dir, "processed", "energy_data", "a.json")); err != nil {
		t.Errorf("archived batch not found: %v", err)
	}
}

func TestScannerEnqueuesPendingBatches(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "a.json", "[]")
	writeBatch(t, dir, "b.json", "[]")

	src, err := NewFSSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	queue := NewMemoryQueue()
	s := NewScanner(ScannerConfig{}, src, queue)

	s.scan(context.Background())
	// A second scan of the same files must not duplicate queue entries.
	s.scan(context.Background())

	var popped []string
	for {
		key, found, err := queue.PopArrival(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			break
		}
		popped = append(popped, key)
	}
	if len(popped) != 2 {
		t.Errorf("queue held %d keys after double scan, want 2: %v", len(popped), popped)
	}
}

func TestWorkerArchivesProcessedBatch(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "a.json", "[]")

	src, err := NewFSSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	queue := NewMemoryQueue()
	queue.PushArrival(context.Background(), "a.json")

	proc := &fakeProcessor{}
	w := NewWorker(WorkerConfig{}, queue, src, proc)

	key, _, _ := queue.PopArrival(context.Background())
	w.processArrival(context.Background(), key)

	if len(proc.seen) != 1 || proc.seen[0].SourceKey != "a.json" {
		t.Fatalf("processor saw %v, want one batch a.json", proc.seen)
	}
	keys, _ := src.List(context.Background())
	if len(keys) != 0 {
		t.Errorf("processed batch still listed: %v", keys)
	}
}

func TestWorkerRejectsUndecodableBatch(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "bad.json", "{not json")

	src, err := NewFSSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	queue := NewMemoryQueue()
	proc := &fakeProcessor{failKey: "bad.json"}
	w := NewWorker(WorkerConfig{}, queue, src, proc)

	w.processArrival(context.Background(), "bad.json")

	// The bad payload moves aside instead of looping through the queue.
	keys, _ := src.List(context.Background())
	if len(keys) != 0 {
		t.Errorf("rejected batch still listed: %v", keys)
	}
	if _, err := os.Stat(filepath.Join(dir, "failed", "bad.json")); err != nil {
		t.Errorf("rejected batch not set aside: %v", err)
	}
	if _, found, _ := queue.PopArrival(context.Background()); found {
		t.Error("rejected batch was re-queued")
	}
}
