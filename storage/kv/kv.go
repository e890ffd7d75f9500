// Package kv abstracts the key-value snapshot store the in-memory database
// engine persists its collections to.
package kv

import (
	"context"

	"github.com/pkg/errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Store saves and loads opaque blobs by collection name.
type Store interface {
	Save(ctx context.Context, name string, data []byte) error
	// Load fails with ErrKeyNotFound when the collection was never saved.
	Load(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}
