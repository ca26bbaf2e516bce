package cascade

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The accessor calls them on hot paths. See loghooks for a slog-backed
// implementation and hooks/async for a buffering wrapper.
type Hooks interface {
	// A cache entry failed to decode and was deleted on read.
	SelfHeal(physicalKey string)

	// The cache backend errored on a read; the lookup fell through.
	CacheError(physicalKey string, err error)

	// A persisted file failed to decode and was treated as a miss.
	// The file is left in place for inspection.
	FileCorrupt(key string, err error)

	// The relational layer errored on a read; the lookup fell through.
	SourceError(key string, err error)

	// A seeding routine failed; the lookup proceeded as "no data".
	SeedError(key string, err error)

	// A clear ran with isolation enabled on a backend without tag support:
	// only the shared entry was removed, isolated copies age out by TTL.
	// op is one of "set", "invalidate", "clear_cache".
	StaleIsolation(op, key string)

	// The cache backend rejected a write (backpressure/eviction).
	WriteRejected(physicalKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string)               {}
func (NopHooks) CacheError(string, error)      {}
func (NopHooks) FileCorrupt(string, error)     {}
func (NopHooks) SourceError(string, error)     {}
func (NopHooks) SeedError(string, error)       {}
func (NopHooks) StaleIsolation(string, string) {}
func (NopHooks) WriteRejected(string)          {}
