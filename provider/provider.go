// Package provider defines the fast-cache abstraction used by cascade.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). If a store performs internal transforms
// (e.g., compression), they MUST be fully reversed so that the bytes returned by
// Get are identical to the bytes provided to Set.
//
// Important: keys under the accessor's configured prefix are owned by cascade.
// External code MUST NOT write values under that prefix. Foreign writes may be
// treated as corruption by payload decoding and deleted.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs.
// Must be safe for concurrent use and must be byte-for-byte
// transparent: Get must return exactly the []byte previously passed to Set for
// the same key. Implementations must not prepend/append metadata, transcode, or
// otherwise mutate values.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Has reports whether key is present without fetching its value.
	Has(ctx context.Context, key string) (bool, error)

	// Set stores value with the given TTL. A non-positive TTL means the
	// backend's default lifetime (or no expiry where none exists).
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort). Removing an absent key is not an error.
	Del(ctx context.Context, key string) error

	// Flush removes every key held by the store. Backends shared with other
	// tenants flush their whole scope (e.g. the selected Redis database), so
	// callers that need finer blast radius should use a TagProvider.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// TagProvider is an optional capability: backends that can associate entries
// with named tags support group invalidation without a full Flush.
// Accessors probe for it with a type assertion and degrade to plain Provider
// behavior when it is absent.
type TagProvider interface {
	Provider

	// SetTagged stores value like Set and associates the key with each tag.
	SetTagged(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) (ok bool, err error)

	// DelTag removes every key associated with tag, and the tag itself.
	// Deleting an unknown tag is not an error.
	DelTag(ctx context.Context, tag string) error
}
