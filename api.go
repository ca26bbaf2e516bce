package cascade

import (
	"context"
	"time"

	c "github.com/veiloq/cascade/codec"
	pr "github.com/veiloq/cascade/provider"
	src "github.com/veiloq/cascade/source"
)

type Manager[V any] = Cascade[V] // alias -> cascade.Manager[FAQ] or cascade.Cascade[FAQ]

// Cascade is the high-level, provider-agnostic layered accessor.
// Reads resolve through fast cache -> file -> relational source -> seeder
// and promote what they find back up; writes propagate source first, then
// file, then cache. V is the caller's row type. Serialization of cache
// payloads is handled by a pluggable Codec[[]V].
type Cascade[V any] interface {
	// Get resolves key through the layers. It never returns an error: read
	// failures are logged, hooked and treated as a miss on that layer. When
	// every layer comes up empty the default is returned.
	Get(ctx context.Context, key string, def []V) []V
	GetWith(ctx context.Context, key string, def []V, opts GetOptions[V]) []V

	// Set replaces the rows for key in every layer: relational source first
	// (unless skipped), then file, then cache. Failing layers are recorded
	// in a *WriteError while the remaining layers are still attempted, so
	// after a partial failure the source may hold newer rows than the file
	// or cache; a Refresh re-synchronizes them. An empty rows slice is a
	// real replace: readers will see zero rows, not a miss.
	Set(ctx context.Context, key string, rows []V) error
	SetWith(ctx context.Context, key string, rows []V, opts SetOptions) error

	// Remember returns the cached rows for key, or stores and returns the
	// produced ones. It is cache-only: file and source are not consulted.
	// Concurrent callers may each run produce; last write wins.
	Remember(ctx context.Context, key string, ttl time.Duration, produce func(context.Context) ([]V, error)) ([]V, error)
	RememberWith(ctx context.Context, key string, produce func(context.Context) ([]V, error), opts RememberOptions) ([]V, error)

	// Refresh drops the cached entry, re-reads the relational source and
	// rewrites file and cache. ok reports whether the source had rows.
	Refresh(ctx context.Context, key string) (rows []V, ok bool, err error)

	// Invalidate removes key from cache and file. The source is untouched.
	Invalidate(ctx context.Context, key string) error

	// ClearCache removes key from the cache only; the file layer keeps
	// serving reads for it.
	ClearCache(ctx context.Context, key string) error

	// ClearAll drops every cache entry written by this accessor (by tag
	// when the provider supports it, full flush otherwise) and removes all
	// files under the storage root.
	ClearAll(ctx context.Context) error

	// Stats returns a snapshot of the layer hit counters.
	Stats() StatsSnapshot

	Close(ctx context.Context) error
}

// GetOptions tune a single lookup.
type GetOptions[V any] struct {
	// TTL overrides DefaultTTL for cache writes made by this lookup.
	TTL time.Duration

	// Transform post-processes whatever the lookup resolves to, including
	// the default on a full miss.
	Transform func([]V) []V

	// Isolate overrides the accessor-level isolation toggle.
	Isolate *bool
}

// SetOptions tune a single write.
type SetOptions struct {
	// TTL overrides DefaultTTL for the cache write.
	TTL time.Duration

	// SkipSource leaves the relational layer untouched and only rewrites
	// file and cache.
	SkipSource bool

	// Isolate overrides the accessor-level isolation toggle when deciding
	// whether stale isolated variants need clearing.
	Isolate *bool
}

// RememberOptions tune a single cache-aside call.
type RememberOptions struct {
	// TTL overrides DefaultTTL for the cache write.
	TTL time.Duration

	// Isolate overrides the accessor-level isolation toggle when deriving
	// the physical key.
	Isolate *bool
}

// FileStore is the durable file layer consumed by the accessor.
// *filestore.Store satisfies it.
type FileStore[V any] interface {
	Read(ctx context.Context, key string) ([]V, bool, error)
	Write(ctx context.Context, key string, rows []V) error
	Remove(ctx context.Context, key string) error
	RemoveAll(ctx context.Context) error
}

// Options tune the accessor.
// Only Provider and Files are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Provider pr.Provider  // fast cache backend
	Files    FileStore[V] // durable file layer

	Prefix     string        // physical key prefix. "" => "cascade:"
	DefaultTTL time.Duration // cache TTL; 0 => 1h
	Codec      c.Codec[[]V]  // cache payload codec; nil => codec.JSON

	// Sources binds logical keys to their relational tables. Keys without
	// a binding simply stop at the file layer. Bindings whose Source also
	// implements src.Observable get a post-commit hook registered at
	// construction that refreshes the key.
	Sources map[string]src.Binding[V]

	DisableSource  bool // skip the relational layer on reads and writes
	DisableSeeding bool // never invoke Binding.Seed on a source miss

	Isolate bool        // partition cache entries per visitor
	Visitor VisitorFunc // nil => VisitorFromContext

	DisableTags bool   // never use provider tag support
	TagName     string // tag namespace; "" => "cascade"

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	LogReads  bool // log every resolved read with the serving layer
	LogWrites bool // log every write propagation
}

func New[V any](opts Options[V]) (Cascade[V], error) {
	return newManager[V](opts)
}
