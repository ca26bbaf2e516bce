package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	c "github.com/veiloq/cascade/codec"
	"github.com/veiloq/cascade/filestore"
	"github.com/veiloq/cascade/internal/keys"
	pr "github.com/veiloq/cascade/provider"
	src "github.com/veiloq/cascade/source"
)

type manager[V any] struct {
	provider pr.Provider
	tags     pr.TagProvider // nil => no tag support (or disabled)
	files    FileStore[V]
	codec    c.Codec[[]V]
	sources  map[string]src.Binding[V]
	log      Logger
	hooks    Hooks

	prefix     string
	defaultTTL time.Duration
	tagName    string

	isolate bool
	visitor VisitorFunc

	noSource bool
	noSeed   bool

	logReads  bool
	logWrites bool

	stats stats
}

func newManager[V any](opts Options[V]) (*manager[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("cascade: provider is required")
	}
	if opts.Files == nil {
		return nil, fmt.Errorf("cascade: files is required")
	}

	m := &manager[V]{
		provider:  opts.Provider,
		files:     opts.Files,
		sources:   opts.Sources,
		isolate:   opts.Isolate,
		noSource:  opts.DisableSource,
		noSeed:    opts.DisableSeeding,
		logReads:  opts.LogReads,
		logWrites: opts.LogWrites,
	}

	// defaults
	m.log = coalesce[Logger](opts.Logger, NopLogger{})
	m.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	m.prefix = coalesce(opts.Prefix, defaultPrefix)
	m.defaultTTL = ttlOr(opts.DefaultTTL, defaultTTL)
	m.tagName = coalesce(opts.TagName, defaultTagName)

	if opts.Codec != nil {
		m.codec = opts.Codec
	} else {
		m.codec = c.JSON[[]V]{}
	}
	if opts.Visitor != nil {
		m.visitor = opts.Visitor
	} else {
		m.visitor = VisitorFromContext
	}
	if !opts.DisableTags {
		if tp, ok := opts.Provider.(pr.TagProvider); ok {
			m.tags = tp
		}
	}

	// Post-commit refresh: one callback per observable binding, registered
	// here once so direct table writes keep the layers above warm.
	for key, b := range m.sources {
		obs, ok := b.Source.(src.Observable)
		if !ok {
			continue
		}
		k := key
		obs.AfterCommit(func(ctx context.Context, op src.Op) {
			if _, _, err := m.Refresh(ctx, k); err != nil {
				m.log.Error("post-commit refresh failed", Fields{"key": k, "op": op.String(), "err": err})
			}
		})
	}

	return m, nil
}

func (m *manager[V]) Close(ctx context.Context) error {
	if m.provider != nil {
		return m.provider.Close(ctx)
	}
	return nil
}

func (m *manager[V]) Stats() StatsSnapshot { return m.stats.snapshot() }

// ==========================
// Reads
// ==========================

func (m *manager[V]) Get(ctx context.Context, key string, def []V) []V {
	return m.GetWith(ctx, key, def, GetOptions[V]{})
}

func (m *manager[V]) GetWith(ctx context.Context, key string, def []V, opts GetOptions[V]) []V {
	rows, ok := m.resolve(ctx, key, opts)
	if !ok {
		m.stats.misses.Add(1)
		if m.logReads {
			m.log.Debug("miss on every layer", Fields{"key": key})
		}
		rows = def
	}
	if opts.Transform != nil {
		rows = opts.Transform(rows)
	}
	return rows
}

// resolve walks the layers for key, promoting what it finds back up.
// ok is false only when every layer (including the seeder) came up empty.
// A stored empty row set at the cache or file layer is a hit: a full
// replace to zero rows is a real value, and must not let the seeder run
// again. Only the source layer treats empty as "try seeding".
func (m *manager[V]) resolve(ctx context.Context, key string, opts GetOptions[V]) ([]V, bool) {
	pk := m.physicalKey(ctx, key, m.isolated(opts.Isolate))
	ttl := ttlOr(opts.TTL, m.defaultTTL)

	if rows, ok := m.cacheGet(ctx, key, pk); ok {
		m.stats.cacheHits.Add(1)
		if m.logReads {
			m.log.Debug("cache hit", Fields{"key": key, "physical": pk})
		}
		return rows, true
	}

	if rows, ok := m.fileGet(ctx, key); ok {
		m.stats.fileHits.Add(1)
		if m.logReads {
			m.log.Debug("file hit", Fields{"key": key})
		}
		m.promote(ctx, key, pk, rows, ttl)
		return rows, true
	}

	if rows, ok := m.sourceGet(ctx, key); ok {
		m.stats.sourceHits.Add(1)
		if m.logReads {
			m.log.Debug("source hit", Fields{"key": key})
		}
		if err := m.files.Write(ctx, key, rows); err != nil {
			m.log.Warn("file write-back failed", Fields{"key": key, "err": err})
		}
		m.promote(ctx, key, pk, rows, ttl)
		return rows, true
	}

	return nil, false
}

// cacheGet reads and decodes the entry at pk. Backend errors fall through as
// a miss; an undecodable entry is deleted so the next write starts clean. A
// decodable entry is a hit even when it holds zero rows.
func (m *manager[V]) cacheGet(ctx context.Context, key, pk string) ([]V, bool) {
	raw, ok, err := m.provider.Get(ctx, pk)
	if err != nil {
		m.hooks.CacheError(pk, err)
		m.log.Warn("cache read failed", Fields{"key": key, "physical": pk, "err": err})
		return nil, false
	}
	if !ok {
		return nil, false
	}
	rows, err := m.codec.Decode(raw)
	if err != nil {
		_ = m.provider.Del(ctx, pk) // self-heal corrupt
		m.hooks.SelfHeal(pk)
		m.log.Warn("self-healed corrupt cache entry", Fields{"key": key, "physical": pk, "err": err})
		return nil, false
	}
	return rows, true
}

// fileGet reads the persisted file. A corrupt file is hooked, treated as a
// miss and left in place until the next write replaces it. A parseable file
// is a hit regardless of how many rows its envelope holds.
func (m *manager[V]) fileGet(ctx context.Context, key string) ([]V, bool) {
	rows, ok, err := m.files.Read(ctx, key)
	if err != nil {
		if errors.Is(err, filestore.ErrCorrupt) {
			m.hooks.FileCorrupt(key, err)
		}
		m.log.Warn("file read failed", Fields{"key": key, "err": err})
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return rows, true
}

// sourceGet loads rows from the bound relational table. When the first load
// comes back empty and the binding carries a seeder, the seeder runs and the
// table is re-queried exactly once. Seed failures are swallowed.
func (m *manager[V]) sourceGet(ctx context.Context, key string) ([]V, bool) {
	if m.noSource {
		return nil, false
	}
	b, ok := m.sources[key]
	if !ok || b.Source == nil {
		return nil, false
	}
	rows, err := b.Source.LoadAll(ctx)
	if err != nil {
		m.hooks.SourceError(key, err)
		m.log.Error("source load failed", Fields{"key": key, "err": err})
		return nil, false
	}
	if len(rows) > 0 {
		return rows, true
	}
	if m.noSeed || b.Seed == nil {
		return nil, false
	}
	if err := b.Seed(ctx); err != nil {
		m.hooks.SeedError(key, err)
		m.log.Warn("seed failed", Fields{"key": key, "err": err})
		return nil, false
	}
	rows, err = b.Source.LoadAll(ctx)
	if err != nil {
		m.hooks.SourceError(key, err)
		m.log.Error("source load failed after seed", Fields{"key": key, "err": err})
		return nil, false
	}
	return rows, len(rows) > 0
}

// ==========================
// Writes
// ==========================

func (m *manager[V]) Set(ctx context.Context, key string, rows []V) error {
	return m.SetWith(ctx, key, rows, SetOptions{})
}

func (m *manager[V]) SetWith(ctx context.Context, key string, rows []V, opts SetOptions) error {
	we := &WriteError{Op: "set", Key: key}

	if !opts.SkipSource && !m.noSource {
		if b, ok := m.sources[key]; ok && b.Source != nil {
			if err := b.Source.ReplaceAll(ctx, rows); err != nil {
				we.SourceErr = err
			}
		}
	}

	if err := m.files.Write(ctx, key, rows); err != nil {
		we.FileErr = err
	}

	// The shared entry gets the write; isolated variants are stale now and
	// must be dropped first (or left to expire when the provider has no tags).
	if m.isolated(opts.Isolate) {
		if err := m.cacheDrop(ctx, "set", key, true); err != nil {
			we.CacheErr = err
		}
	}
	if we.CacheErr == nil {
		pk := keys.Physical(m.prefix, key, "")
		we.CacheErr = m.cacheWrite(ctx, key, pk, rows, ttlOr(opts.TTL, m.defaultTTL))
	}

	if err := we.orNil(); err != nil {
		m.log.Error("set failed", Fields{"key": key, "err": err})
		return err
	}
	if m.logWrites {
		m.log.Debug("set propagated", Fields{"key": key, "rows": len(rows)})
	}
	return nil
}

func (m *manager[V]) Remember(ctx context.Context, key string, ttl time.Duration, produce func(context.Context) ([]V, error)) ([]V, error) {
	return m.RememberWith(ctx, key, produce, RememberOptions{TTL: ttl})
}

func (m *manager[V]) RememberWith(ctx context.Context, key string, produce func(context.Context) ([]V, error), opts RememberOptions) ([]V, error) {
	pk := m.physicalKey(ctx, key, m.isolated(opts.Isolate))
	if rows, ok := m.cacheGet(ctx, key, pk); ok {
		m.stats.cacheHits.Add(1)
		return rows, nil
	}
	m.stats.misses.Add(1)
	rows, err := produce(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.cacheWrite(ctx, key, pk, rows, ttlOr(opts.TTL, m.defaultTTL)); err != nil {
		m.log.Error("remember store failed", Fields{"key": key, "err": err})
		return rows, &WriteError{Op: "remember", Key: key, CacheErr: err}
	}
	return rows, nil
}

func (m *manager[V]) Refresh(ctx context.Context, key string) ([]V, bool, error) {
	b, ok := m.sources[key]
	if m.noSource || !ok || b.Source == nil {
		return nil, false, ErrNoSource
	}
	rows, err := b.Source.LoadAll(ctx)
	if err != nil {
		m.log.Error("refresh load failed", Fields{"key": key, "err": err})
		return nil, false, err
	}

	we := &WriteError{Op: "refresh", Key: key}
	if err := m.cacheDrop(ctx, "refresh", key, m.isolate); err != nil {
		we.CacheErr = err
	}

	if len(rows) == 0 {
		// empty source: leave no stale copies behind
		if err := m.files.Remove(ctx, key); err != nil {
			we.FileErr = err
		}
		if err := we.orNil(); err != nil {
			m.log.Error("refresh failed", Fields{"key": key, "err": err})
			return nil, false, err
		}
		if m.logWrites {
			m.log.Debug("refreshed to empty", Fields{"key": key})
		}
		return nil, false, nil
	}

	if err := m.files.Write(ctx, key, rows); err != nil {
		we.FileErr = err
	}
	if we.CacheErr == nil {
		pk := keys.Physical(m.prefix, key, "")
		we.CacheErr = m.cacheWrite(ctx, key, pk, rows, m.defaultTTL)
	}
	if err := we.orNil(); err != nil {
		m.log.Error("refresh failed", Fields{"key": key, "err": err})
		return rows, true, err
	}
	if m.logWrites {
		m.log.Debug("refreshed", Fields{"key": key, "rows": len(rows)})
	}
	return rows, true, nil
}

func (m *manager[V]) Invalidate(ctx context.Context, key string) error {
	we := &WriteError{Op: "invalidate", Key: key}
	if err := m.cacheDrop(ctx, "invalidate", key, m.isolate); err != nil {
		we.CacheErr = err
	}
	if err := m.files.Remove(ctx, key); err != nil {
		we.FileErr = err
	}
	if err := we.orNil(); err != nil {
		m.log.Error("invalidate failed", Fields{"key": key, "err": err})
		return err
	}
	m.log.Debug("invalidated", Fields{"key": key})
	return nil
}

func (m *manager[V]) ClearCache(ctx context.Context, key string) error {
	if err := m.cacheDrop(ctx, "clear_cache", key, m.isolate); err != nil {
		m.log.Error("clear cache failed", Fields{"key": key, "err": err})
		return &WriteError{Op: "clear_cache", Key: key, CacheErr: err}
	}
	m.log.Debug("cleared cache entry", Fields{"key": key})
	return nil
}

func (m *manager[V]) ClearAll(ctx context.Context) error {
	we := &WriteError{Op: "clear_all"}
	if m.tags != nil {
		if err := m.tags.DelTag(ctx, m.tagName); err != nil {
			we.CacheErr = err
		}
	} else if err := m.provider.Flush(ctx); err != nil {
		we.CacheErr = err
	}
	if err := m.files.RemoveAll(ctx); err != nil {
		we.FileErr = err
	}
	if err := we.orNil(); err != nil {
		m.log.Error("clear all failed", Fields{"err": err})
		return err
	}
	m.log.Debug("cleared all entries", Fields{"scoped": m.tags != nil})
	return nil
}

// ==========================
// Internals
// ==========================

// cacheWrite encodes rows and stores them under pk, tagging the entry for
// scoped clears when the provider supports tags. A rejected write is not an
// error: it is hooked and the entry simply stays cold.
func (m *manager[V]) cacheWrite(ctx context.Context, key, pk string, rows []V, ttl time.Duration) error {
	raw, err := m.codec.Encode(rows)
	if err != nil {
		return fmt.Errorf("cascade: encode %q: %w", key, err)
	}
	var ok bool
	if m.tags != nil {
		ok, err = m.tags.SetTagged(ctx, pk, raw, ttl, m.tagName, keys.Tag(m.tagName, key))
	} else {
		ok, err = m.provider.Set(ctx, pk, raw, ttl)
	}
	if err != nil {
		return err
	}
	if !ok {
		m.hooks.WriteRejected(pk)
		m.log.Debug("cache write rejected (pressure)", Fields{"key": key, "physical": pk})
		return nil
	}
	m.stats.writes.Add(1)
	if m.logWrites {
		m.log.Debug("cache write", Fields{"key": key, "physical": pk, "ttl": ttl.String()})
	}
	return nil
}

// promote is cacheWrite for the read path: failures only log, reads never error.
func (m *manager[V]) promote(ctx context.Context, key, pk string, rows []V, ttl time.Duration) {
	if err := m.cacheWrite(ctx, key, pk, rows, ttl); err != nil {
		m.log.Warn("cache promotion failed", Fields{"key": key, "physical": pk, "err": err})
	}
}

// cacheDrop removes the cache entry for key: by per-key tag when available
// (which also catches isolated variants), by shared physical key otherwise.
// Without tags, isolated variants cannot be enumerated and are left to
// expire; the StaleIsolation hook makes that visible.
func (m *manager[V]) cacheDrop(ctx context.Context, op, key string, isolated bool) error {
	if m.tags != nil {
		return m.tags.DelTag(ctx, keys.Tag(m.tagName, key))
	}
	if isolated {
		m.hooks.StaleIsolation(op, key)
		m.log.Warn("isolated variants left to expire (no tag support)", Fields{"op": op, "key": key})
	}
	return m.provider.Del(ctx, keys.Physical(m.prefix, key, ""))
}

// physicalKey maps a logical key to its cache key, appending the visitor
// digest when isolation applies and an identity is present.
func (m *manager[V]) physicalKey(ctx context.Context, key string, isolated bool) string {
	if !isolated {
		return keys.Physical(m.prefix, key, "")
	}
	id, ok := m.visitor(ctx)
	if !ok {
		return keys.Physical(m.prefix, key, "")
	}
	return keys.Physical(m.prefix, key, keys.Digest(id))
}

// isolated resolves a per-call isolation override against the accessor toggle.
func (m *manager[V]) isolated(override *bool) bool {
	if override != nil {
		return *override
	}
	return m.isolate
}
