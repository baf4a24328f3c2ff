// Package medium defines the key-value storage contract a store persists its
// value through, plus a handful of implementations.
//
// Responsibilities:
//   - A Medium stores one opaque text record per key. It knows nothing about
//     the shape of the value; encoding belongs to the store's serializer.
//   - Reads report absence through ok=false, never through an error.
//   - Failures are returned to the caller. The store decides they are never
//     fatal; mediums do not swallow them.
//
// Implementations:
//
//	Session  in-memory, lives as long as the process (a session-scoped medium)
//	File     one file per key under a directory
//	SQLite   a single table in a SQLite database (modernc.org/sqlite)
//	NATS     a JetStream key-value bucket
//	Faulty   wraps another medium and injects failures, for tests
package medium

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidKey is returned for keys a medium cannot address.
var ErrInvalidKey = errors.New("medium: invalid key")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("medium: closed")

// Medium reads and writes text records by key.
type Medium interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
}

// ValidateKey rejects keys that are empty, padded with whitespace, or contain
// path separators.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) != key {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return ErrInvalidKey
	}
	if len(key) > 1024 {
		return ErrInvalidKey
	}
	return nil
}
