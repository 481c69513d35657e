// Package cache stores computed layouts and rendered artifacts keyed by a
// hash of their inputs.
//
// Three backends are provided: [FileCache] for the CLI, [RedisCache] for the
// HTTP server and [NullCache] when caching is disabled. Keys come from a
// [Keyer] so that callers can scope them per tenant with [ScopedKeyer].
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. Expired
	// entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Entry lifetimes.
const (
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 30 * 24 * time.Hour
)
