// Package snapshot persists opaque state blobs under well-known keys.
//
// A Storage holds one serialized snapshot per key and overwrites it
// wholesale on every save. Backends: a local directory (default),
// PostgreSQL and any S3-compatible object store.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
)

// ErrNotFound is returned by Load when no snapshot exists for the key.
var ErrNotFound = errors.New("snapshot: not found")

// ErrInvalidKey is returned for keys outside [A-Za-z0-9._-].
var ErrInvalidKey = errors.New("snapshot: invalid key")

// Storage reads and writes whole snapshots.
type Storage interface {
	// Load returns the snapshot stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the snapshot stored under key.
	Save(ctx context.Context, key string, data []byte) error

	// Name returns the backend name (e.g., "file", "postgres", "minio").
	Name() string

	io.Closer
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateKey rejects keys that are unsafe as file or object names.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
