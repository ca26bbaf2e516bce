// Package source defines the relational layer contract: the authoritative
// store a layered accessor falls back to, plus the explicit registry entry
// binding a logical key to its accessor and optional seeding routine.
package source

import "context"

// Source is a relational accessor for one logical key. Implementations own
// row ordering: LoadAll returns rows already in their canonical order.
type Source[V any] interface {
	// LoadAll returns every live row. An empty result is not an error.
	LoadAll(ctx context.Context) ([]V, error)

	// ReplaceAll swaps the full row set in one transaction.
	ReplaceAll(ctx context.Context, rows []V) error
}

// SeedFunc populates an empty source. It is invoked at most once per lookup
// when a key resolves all the way down to an empty relational result; after a
// successful seed the source is re-queried exactly once. Seed failures are
// logged and treated as "no data".
type SeedFunc func(ctx context.Context) error

// Binding is the registry entry for one logical key. Bindings are resolved at
// configuration time; there is no runtime type-name derivation.
type Binding[V any] struct {
	Source Source[V]
	Seed   SeedFunc // optional
}

// Op identifies the row-level mutation that committed.
type Op int

const (
	OpCreated Op = iota
	OpUpdated
	OpDeleted
	OpRestored
)

func (o Op) String() string {
	switch o {
	case OpCreated:
		return "created"
	case OpUpdated:
		return "updated"
	case OpDeleted:
		return "deleted"
	case OpRestored:
		return "restored"
	}
	return "unknown"
}

// Hook observes a committed row-level mutation. Hooks run synchronously after
// the commit and must not fail it; implementations swallow their own errors.
type Hook func(ctx context.Context, op Op)

// Observable is implemented by sources that announce row-level mutations.
// Accessors register one refresh callback per bound key at construction so
// that direct writes (ones bypassing the accessor) keep caches warm.
//
// Hooks fire for Insert/Update/Delete/Restore style mutations, not for
// ReplaceAll: the accessor's own write path uses ReplaceAll and already
// refreshes the layers above.
type Observable interface {
	AfterCommit(h Hook)
}
