// Package lockstore defines the key-value contract used for
// short-lived seat locks.  A lock entry is an exclusive claim on a
// seat id, created atomically with a TTL; the first successful write
// wins and the entry disappears on explicit delete or on expiry,
// whichever occurs first.
package lockstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no live entry exists for the
// key.  An entry whose lease has lapsed is treated as absent.
var ErrNotFound = errors.New("lockstore: key not found")

// Store is the minimal contract the reservation engine needs from a
// lock store.  Implementations must make SetNX atomic across
// concurrent callers and must surface store failures as errors: a
// caller must never be left believing a lock was taken when the
// store call could not be confirmed.
type Store interface {
	// SetNX writes key=value with the given TTL only if no live
	// entry exists for key.  It reports whether the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Get returns the value of a live entry, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Del removes the entry and reports whether one was removed.
	// Deleting an absent key is not an error.
	Del(ctx context.Context, key string) (bool, error)
}
