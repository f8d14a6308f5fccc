// Package ingest moves arrival batches from an object source through the
// arrival queue into the batch processor.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ObjectSource is where arrival batches live. Keys are relative paths within
// the source.
type ObjectSource interface {
	// List returns the keys of batches that have not been processed yet.
	List(ctx context.Context) ([]string, error)
	// Get fetches the raw payload for a key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Archive marks a key as processed so it is never listed again.
	Archive(ctx context.Context, key string) error
	// Reject marks a key as undecodable so it is never listed again.
	Reject(ctx context.Context, key string) error
}

const (
	archiveDir = "processed"
	rejectDir  = "failed"
)

// FSSource serves batches from a drop directory. Processed files move to a
// processed/ subdirectory, undecodable ones to failed/.
type FSSource struct {
	root string
}

// NewFSSource creates a filesystem source rooted at dir.
func NewFSSource(dir string) (*FSSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open drop directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("drop path %s is not a directory", dir)
	}
	return &FSSource{root: dir}, nil
}

// List walks the drop directory for pending .json batches, skipping the
// archive and reject subdirectories.
func (s *FSSource) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == archiveDir || d.Name() == rejectDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list drop directory: %w", err)
	}
	return keys, nil
}

// Get reads one batch payload.
func (s *FSSource) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("failed to read batch %s: %w", key, err)
	}
	return data, nil
}

// Archive moves the batch into the processed/ subdirectory.
func (s *FSSource) Archive(ctx context.Context, key string) error {
	return s.move(key, archiveDir)
}

// Reject moves the batch into the failed/ subdirectory.
func (s *FSSource) Reject(ctx context.Context, key string) error {
	return s.move(key, rejectDir)
}

func (s *FSSource) move(key, sub string) error {
	src := filepath.Join(s.root, filepath.FromSlash(key))
	dst := filepath.Join(s.root, sub, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to prepare %s directory: %w", sub, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move batch %s: %w", key, err)
	}
	return nil
}
