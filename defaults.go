package cascade

import "time"

const (
	defaultPrefix  = "cascade:"
	defaultTagName = "cascade"
	defaultTTL     = time.Hour
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// ttlOr returns def when ttl is not strictly positive. coalesce is not
// enough for TTLs: a negative value would pass through, and some backends
// store non-positive TTLs as "never expires".
func ttlOr(ttl, def time.Duration) time.Duration {
	if ttl <= 0 {
		return def
	}
	return ttl
}
