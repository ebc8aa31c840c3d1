// Package cache memoizes chat replies keyed by the full request.
package cache

import (
	"context"
	"fmt"
)

// Store is a durable string-to-string mapping. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set writes value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// Backends accepted by NewStore.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// NewStore opens the store for backend. path is ignored by the memory backend.
func NewStore(backend, path string) (Store, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
