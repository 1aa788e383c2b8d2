// Package blobstore provides keyed storage of opaque binary-safe records.
// It backs the durable session/auth state: credential bundles and signal
// key material keyed by "{category}-{id}" record ids.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists under the key.
var ErrNotFound = errors.New("blobstore: record not found")

// Store is a keyed blob store. Values may contain arbitrary byte
// sequences; implementations must never coerce them through a lossy
// text encoding. Operations are independently atomic per key; there is
// no cross-key transaction guarantee.
//
// Callers treat any failure as "record unavailable" and fall back to
// creating fresh state rather than crashing.
type Store interface {
	Put(ctx context.Context, key string, payload []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context) error
	// ListKeys returns all record keys starting with the given prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}
