package storage

import (
	"context"
	"fmt"
	"path/filepath"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"

	DatabaseFile = "study_timer.db"
)

// Slot is a single persisted value addressed by a fixed key.
type Slot interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, value []byte) error
	Close() error
}

// Open returns the slot for key under dir using the named backend.
func Open(backend, dir, key string) (Slot, error) {
	switch backend {
	case BackendSQLite:
		repo, err := NewRepository(filepath.Join(dir, DatabaseFile))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return repo.Slot(key), nil
	case BackendFile:
		return NewFileSlot(dir, key), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
