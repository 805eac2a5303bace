// Package persistence provides the key-value secure storage the client
// stores read and write. Values are opaque bytes, usually JSON.
package persistence

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("persistence: key not found")

// Persistence is a key-value store. Delete on an absent key is not an error.
type Persistence interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
