// Package blobstore abstracts where serialized mapping state lives.
//
// Transform state blobs are small and read wholly at load time, so the
// interface is deliberately whole-blob: no streaming, no random access.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named blob does not exist.
//
// Implementations must return an error that satisfies
// errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blob not found")

// Store reads and writes named immutable state blobs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the full contents of the named blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes a blob atomically, replacing any previous contents.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}
