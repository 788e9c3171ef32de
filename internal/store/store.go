// Package store defines the durable local key-value persistence used by every
// coordinator component. Each concern owns one namespaced key holding a
// serialized JSON document.
package store

import (
	"context"
	"errors"
)

// Namespaced keys of the persisted local record.
const (
	KeyCatalog   = "qrm:catalog:v1"
	KeyOverlays  = "qrm:overlays:v1"
	KeyAuth      = "qrm:auth:v1"
	KeySyncState = "qrm:sync:v1"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("store: key not found")

// Store is a durable key-value store. Implementations must be safe for
// concurrent use; Put replaces the whole value atomically.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Lifecycle
	Close() error
}
