package cache

import (
	"context"
	"time"
)

// Cache is the contract for the cache layer, allowing implementations to be
// swapped (Redis in production, an in-memory map in tests).
type Cache interface {
	// Get unmarshals the cached value for key into dest.
	// found = false means cache miss; dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)

	// Set marshals value and stores it under key with the given TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
