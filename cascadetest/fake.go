// Package cascadetest provides an in-memory Cascade implementation for
// tests. Every operation is recorded in a call log, and assertion helpers
// check both the log and the fake's contents, so code under test can swap
// its accessor for a Fake without touching real backends.
package cascadetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/veiloq/cascade"
)

// Call is one recorded operation on a Fake.
type Call struct {
	Method string         // "get", "set", "remember", "refresh", ...
	Key    string         // empty for clear_all and close
	Args   map[string]any // operation extras: ttl, rows, skip_source
	At     time.Time
}

// Fake collapses the layered accessor into two maps: data holds what a real
// accessor would have warm in cache and file, stock holds what the
// relational source would return. Lookups resolve data first, then stock
// (promoting it), mirroring the real fallback order closely enough for
// behavioral tests.
type Fake[V any] struct {
	mu    sync.Mutex
	data  map[string][]V
	stock map[string][]V
	calls []Call
	stats cascade.StatsSnapshot

	// FailWith, when non-nil, is returned by every mutating operation.
	// Reads are unaffected: Get never fails, matching the real contract.
	FailWith error

	clock func() time.Time
}

var _ cascade.Cascade[string] = (*Fake[string])(nil)

func New[V any]() *Fake[V] {
	return &Fake[V]{
		data:  make(map[string][]V),
		stock: make(map[string][]V),
		clock: time.Now,
	}
}

// Put places rows directly into the fake's resolved state, as if an earlier
// lookup had warmed every layer.
func (f *Fake[V]) Put(key string, rows []V) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = clone(rows)
}

// Stock sets the rows Refresh and a missed lookup will find, as if they
// were sitting in the relational source. An empty (non-nil) slice models a
// bound but empty table.
func (f *Fake[V]) Stock(key string, rows []V) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rows == nil {
		rows = []V{}
	}
	f.stock[key] = clone(rows)
}

// ==========================
// Cascade surface
// ==========================

func (f *Fake[V]) Get(ctx context.Context, key string, def []V) []V {
	return f.GetWith(ctx, key, def, cascade.GetOptions[V]{})
}

func (f *Fake[V]) GetWith(_ context.Context, key string, def []V, opts cascade.GetOptions[V]) []V {
	f.mu.Lock()
	f.record("get", key, map[string]any{"ttl": opts.TTL})
	rows, ok := f.lookupLocked(key)
	f.mu.Unlock()
	if !ok {
		rows = def
	}
	if opts.Transform != nil {
		rows = opts.Transform(rows)
	}
	return rows
}

func (f *Fake[V]) Set(ctx context.Context, key string, rows []V) error {
	return f.SetWith(ctx, key, rows, cascade.SetOptions{})
}

func (f *Fake[V]) SetWith(_ context.Context, key string, rows []V, opts cascade.SetOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("set", key, map[string]any{
		"rows":        len(rows),
		"skip_source": opts.SkipSource,
		"ttl":         opts.TTL,
	})
	if f.FailWith != nil {
		return f.FailWith
	}
	f.data[key] = clone(rows)
	if !opts.SkipSource {
		f.stock[key] = clone(rows)
	}
	f.stats.Writes++
	return nil
}

func (f *Fake[V]) Remember(ctx context.Context, key string, ttl time.Duration, produce func(context.Context) ([]V, error)) ([]V, error) {
	return f.RememberWith(ctx, key, produce, cascade.RememberOptions{TTL: ttl})
}

// RememberWith ignores the Isolate override: the fake keeps a single flat
// map, so there are no per-visitor variants to partition.
func (f *Fake[V]) RememberWith(ctx context.Context, key string, produce func(context.Context) ([]V, error), opts cascade.RememberOptions) ([]V, error) {
	f.mu.Lock()
	f.record("remember", key, map[string]any{"ttl": opts.TTL})
	if rows, ok := f.data[key]; ok {
		f.stats.CacheHits++
		out := clone(rows)
		f.mu.Unlock()
		return out, nil
	}
	f.stats.Misses++
	f.mu.Unlock()

	// produce runs unlocked: it may call back into the fake
	rows, err := produce(ctx)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return clone(rows), f.FailWith
	}
	f.data[key] = clone(rows)
	f.stats.Writes++
	return clone(rows), nil
}

func (f *Fake[V]) Refresh(_ context.Context, key string) ([]V, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("refresh", key, nil)
	if f.FailWith != nil {
		return nil, false, f.FailWith
	}
	rows, bound := f.stock[key]
	if !bound {
		return nil, false, cascade.ErrNoSource
	}
	if len(rows) == 0 {
		delete(f.data, key)
		return nil, false, nil
	}
	f.data[key] = clone(rows)
	f.stats.Writes++
	return clone(rows), true, nil
}

func (f *Fake[V]) Invalidate(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("invalidate", key, nil)
	if f.FailWith != nil {
		return f.FailWith
	}
	delete(f.data, key)
	return nil
}

func (f *Fake[V]) ClearCache(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("clear_cache", key, nil)
	if f.FailWith != nil {
		return f.FailWith
	}
	delete(f.data, key)
	return nil
}

func (f *Fake[V]) ClearAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("clear_all", "", nil)
	if f.FailWith != nil {
		return f.FailWith
	}
	f.data = make(map[string][]V)
	return nil
}

func (f *Fake[V]) Stats() cascade.StatsSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *Fake[V]) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("close", "", nil)
	return nil
}

// ==========================
// Inspection
// ==========================

// Calls returns a copy of the call log in invocation order.
func (f *Fake[V]) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount counts invocations of method on key; key "" matches any key.
func (f *Fake[V]) CallCount(method, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && (key == "" || c.Key == key) {
			n++
		}
	}
	return n
}

// Has reports whether the fake currently holds rows for key.
func (f *Fake[V]) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data[key]) > 0
}

// Reset returns the fake to its initial state: log, contents and counters.
func (f *Fake[V]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.data = make(map[string][]V)
	f.stock = make(map[string][]V)
	f.stats = cascade.StatsSnapshot{}
}

// ==========================
// Assertions
// ==========================

func (f *Fake[V]) AssertCalled(t testing.TB, method, key string) bool {
	t.Helper()
	if f.CallCount(method, key) > 0 {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected %s(%q) to have been called", method, key))
}

func (f *Fake[V]) AssertNotCalled(t testing.TB, method, key string) bool {
	t.Helper()
	if n := f.CallCount(method, key); n > 0 {
		return assert.Fail(t, fmt.Sprintf("expected %s(%q) not to have been called, got %d call(s)", method, key, n))
	}
	return true
}

func (f *Fake[V]) AssertHas(t testing.TB, key string) bool {
	t.Helper()
	if f.Has(key) {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected fake to hold rows for %q", key))
}

func (f *Fake[V]) AssertMissing(t testing.TB, key string) bool {
	t.Helper()
	if !f.Has(key) {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected fake to hold nothing for %q", key))
}

func (f *Fake[V]) record(method, key string, args map[string]any) {
	f.calls = append(f.calls, Call{Method: method, Key: key, Args: args, At: f.clock()})
}

// lookupLocked resolves key the way the real accessor does: warm state
// first, then stock with promotion. Warm state hits on presence, so a
// stored empty row set is served rather than falling through; stock mirrors
// the source layer, where empty means "nothing to promote".
func (f *Fake[V]) lookupLocked(key string) ([]V, bool) {
	if rows, ok := f.data[key]; ok {
		f.stats.CacheHits++
		return clone(rows), true
	}
	if rows := f.stock[key]; len(rows) > 0 {
		f.stats.SourceHits++
		f.data[key] = clone(rows)
		return clone(rows), true
	}
	f.stats.Misses++
	return nil, false
}

func clone[V any](rows []V) []V {
	if rows == nil {
		return nil
	}
	out := make([]V, len(rows))
	copy(out, rows)
	return out
}
