package schemakit

import (
	"context"
	"time"
)

// Cache is the interface for sharing loaded table descriptors between
// processes. Users should implement this interface with their preferred
// caching solution (e.g., Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies a cached table descriptor.
type CacheKey struct {
	Namespace string // Hash of the connection identity
	Dialect   string
	Table     string
}

// Prefix returns the key prefix shared by every table of the namespace.
func (k CacheKey) Prefix() string {
	return "schemakit:" + k.Dialect + ":" + k.Namespace + ":"
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.Prefix() + k.Table
}
