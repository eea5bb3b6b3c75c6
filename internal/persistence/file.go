// Package persistence holds the snapshot adapters. Each backend writes the
// whole store as one document and reads it back; failures never corrupt a
// previously written snapshot.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tdiprima/langchain-flask-api/internal/domain"
)

// historyDocument is the persisted layout: session id -> ordered turns.
type historyDocument struct {
	Sessions domain.Snapshot `json:"sessions"`
}

// FileStore persists the snapshot as a single JSON file. Writes go to a
// temp file in the same directory followed by an atomic rename, so a crash
// mid-write leaves the previous snapshot intact.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Save(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create history directory %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(historyDocument{Sessions: snap}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

// Load reads the snapshot file. A missing file is a normal cold start and
// yields an empty snapshot; an unreadable one wraps ErrCorruptSnapshot.
func (f *FileStore) Load(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return domain.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file %s: %w", f.path, err)
	}

	var doc historyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptSnapshot, f.path, err)
	}
	if doc.Sessions == nil {
		doc.Sessions = domain.Snapshot{}
	}
	return doc.Sessions, nil
}
