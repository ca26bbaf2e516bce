// Package cascade implements a layered read-through accessor: a logical key
// resolves through a fast cache, then a persisted file, then a relational
// source, and finally an optional seeding routine. Whatever a lower layer
// returns is promoted back up; writes propagate the other way (source first,
// file, then cache).
//
// Components:
//   - provider.Provider: byte store with TTL (e.g. Ristretto, BigCache,
//     Redis, NATS KV). Tag-capable backends get scoped group clears.
//   - FileStore: one file per key under a storage root, codec-envelope
//     encoded. Survives cache restarts, never isolation-aware.
//   - source.Binding: explicit registry entry mapping a logical key to its
//     relational table and optional seeder.
//   - codec.Codec: (de)serializes rows <-> []byte for the cache payload.
//
// Keys:
//
//	<prefix><key>           - shared entry
//	<prefix><key>:<digest>  - per-visitor entry when isolation is on
//
// Reads never fail: a layer that errors is logged and skipped, and a full
// miss returns the caller's default. Writes report per-layer failures via
// *WriteError after attempting every layer.
package cascade
