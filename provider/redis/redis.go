package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/veiloq/cascade/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

// Redis adapts a go-redis client to the provider contract. Tags are kept as
// Redis sets: SetTagged adds the key to one set per tag, DelTag deletes the
// set's members in a single pipeline.
type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	tagPrefix   string
	tagTTL      time.Duration
}

var (
	_ pr.Provider    = (*Redis)(nil)
	_ pr.TagProvider = (*Redis)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this provider exclusively owns the client

	// TagPrefix namespaces the membership sets; "" => "tag:".
	TagPrefix string
	// TagTTL optionally expires membership sets so that abandoned tags do not
	// grow without bound. Entries that expired from the cache linger in their
	// set until the set itself expires or is flushed; DelTag on such members
	// is a harmless no-op. 0 disables expiry.
	TagTTL time.Duration
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.TagPrefix
	if prefix == "" {
		prefix = "tag:"
	}
	return &Redis{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		tagPrefix:   prefix,
		tagTTL:      cfg.TagTTL,
	}, nil
}

func (p *Redis) tagKey(tag string) string { return p.tagPrefix + tag }

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // treat non-positive TTLs as "no expiry" per provider contract
	}

	err := p.rdb.Set(ctx, key, value, ttl).Err()
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetTagged writes the value and its tag memberships in one round-trip.
func (p *Redis) SetTagged(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) (bool, error) {
	if len(tags) == 0 {
		return p.Set(ctx, key, value, ttl)
	}
	if ttl <= 0 {
		ttl = 0
	}
	_, err := p.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, key, value, ttl)
		for _, t := range tags {
			sk := p.tagKey(t)
			pipe.SAdd(ctx, sk, key)
			if p.tagTTL > 0 {
				pipe.Expire(ctx, sk, p.tagTTL)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}

// DelTag removes every member of the tag's set, then the set itself.
func (p *Redis) DelTag(ctx context.Context, tag string) error {
	sk := p.tagKey(tag)
	members, err := p.rdb.SMembers(ctx, sk).Result()
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return p.rdb.Del(ctx, sk).Err()
	}
	_, err = p.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, members...)
		pipe.Del(ctx, sk)
		return nil
	})
	return err
}

// Flush clears the selected Redis database. Scope this provider to a
// dedicated logical database (or rely on tags) when the instance is shared.
func (p *Redis) Flush(ctx context.Context) error {
	return p.rdb.FlushDB(ctx).Err()
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
