// Package natskv implements the provider contract over a NATS JetStream
// KeyValue bucket, for deployments that already run NATS and want the cache
// layer replicated without adding Redis.
//
// Two bucket-level constraints apply:
//   - per-entry TTLs are not supported; entries live for the bucket's
//     configured TTL (set KeyValueConfig.TTL when creating the bucket)
//   - the KV key charset excludes ':', so physical keys are mapped by
//     replacing ':' with '/'; keys must therefore not contain '/'
//
// No tag support.
package natskv

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	pr "github.com/veiloq/cascade/provider"
)

var ErrNilBucket = errors.New("natskv provider: nil bucket")

type Provider struct {
	kv jetstream.KeyValue
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	// Bucket is an existing KV bucket handle; the caller owns its lifecycle
	// (and the underlying connection).
	Bucket jetstream.KeyValue
}

func New(cfg Config) (*Provider, error) {
	if cfg.Bucket == nil {
		return nil, ErrNilBucket
	}
	return &Provider{kv: cfg.Bucket}, nil
}

// mapKey rewrites ':' (not a legal KV key character) to '/'.
func mapKey(key string) string {
	return strings.ReplaceAll(key, ":", "/")
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := p.kv.Get(ctx, mapKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Value(), true, nil
}

func (p *Provider) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Get(ctx, key)
	return ok, err
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	// Bucket-level TTL applies; the per-entry TTL is ignored.
	if _, err := p.kv.Put(ctx, mapKey(key), value); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	err := p.kv.Purge(ctx, mapKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (p *Provider) Flush(ctx context.Context) error {
	lister, err := p.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}
		return err
	}
	defer func() { _ = lister.Stop() }()
	for key := range lister.Keys() {
		if err := p.kv.Purge(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return err
		}
	}
	return nil
}

// Close is a no-op: the bucket handle and connection belong to the caller.
func (p *Provider) Close(context.Context) error { return nil }
