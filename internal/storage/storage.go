// Package storage defines where exported result files are written. The
// abstraction keeps the CLI independent of a specific backend (local
// filesystem, Google Cloud Storage, or memory for dry runs).
package storage

import (
	"context"
	"io"
)

// BlobStore persists one named object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}
