// Package memory implements an in-process provider with TTLs and tag support.
// It is meant for tests, tooling, and single-process deployments; multi-replica
// setups should prefer the redis provider.
package memory

import (
	"context"
	"sync"
	"time"

	pr "github.com/veiloq/cascade/provider"
)

type entry struct {
	val  []byte
	exp  time.Time // zero => no expiry
	tags []string
}

func (e entry) expired(now time.Time) bool {
	return !e.exp.IsZero() && now.After(e.exp)
}

type Provider struct {
	mu   sync.RWMutex
	m    map[string]entry
	tags map[string]map[string]struct{} // tag -> member keys

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var (
	_ pr.Provider    = (*Provider)(nil)
	_ pr.TagProvider = (*Provider)(nil)
)

type Config struct {
	// SweepInterval enables a background janitor that prunes expired entries.
	// 0 disables the janitor; expired entries are then pruned lazily on read.
	SweepInterval time.Duration
}

func New(cfg Config) *Provider {
	p := &Provider{
		m:    make(map[string]entry),
		tags: make(map[string]map[string]struct{}),
	}
	if cfg.SweepInterval > 0 {
		p.ticker = time.NewTicker(cfg.SweepInterval)
		p.stopCh = make(chan struct{})
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ticker.C:
					p.sweep(time.Now())
				case <-p.stopCh:
					return
				}
			}
		}()
	}
	return p
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	e, ok := p.m[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		p.mu.Lock()
		// re-check; another goroutine may have replaced the entry
		if cur, ok := p.m[key]; ok && cur.expired(time.Now()) {
			p.removeLocked(key)
		}
		p.mu.Unlock()
		return nil, false, nil
	}
	return e.val, true, nil
}

func (p *Provider) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Get(ctx, key)
	return ok, err
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.SetTagged(ctx, key, value, ttl)
}

func (p *Provider) SetTagged(_ context.Context, key string, value []byte, ttl time.Duration, tags ...string) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(key) // drop stale tag membership from a previous write
	p.m[key] = entry{val: value, exp: exp, tags: tags}
	for _, t := range tags {
		set, ok := p.tags[t]
		if !ok {
			set = make(map[string]struct{})
			p.tags[t] = set
		}
		set[key] = struct{}{}
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	p.removeLocked(key)
	p.mu.Unlock()
	return nil
}

func (p *Provider) DelTag(_ context.Context, tag string) error {
	p.mu.Lock()
	for key := range p.tags[tag] {
		p.removeLocked(key)
	}
	delete(p.tags, tag)
	p.mu.Unlock()
	return nil
}

func (p *Provider) Flush(_ context.Context) error {
	p.mu.Lock()
	p.m = make(map[string]entry)
	p.tags = make(map[string]map[string]struct{})
	p.mu.Unlock()
	return nil
}

// Close stops the janitor. The store itself stays usable; there is nothing
// external to release.
func (p *Provider) Close(_ context.Context) error {
	p.once.Do(func() {
		if p.ticker != nil {
			p.ticker.Stop()
			close(p.stopCh)
			p.wg.Wait()
		}
	})
	return nil
}

// Len reports the number of live entries. Expired-but-unswept entries count
// until a read or sweep prunes them.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

func (p *Provider) removeLocked(key string) {
	e, ok := p.m[key]
	if !ok {
		return
	}
	for _, t := range e.tags {
		set := p.tags[t]
		delete(set, key)
		if len(set) == 0 {
			delete(p.tags, t)
		}
	}
	delete(p.m, key)
}

func (p *Provider) sweep(now time.Time) {
	p.mu.Lock()
	for key, e := range p.m {
		if e.expired(now) {
			p.removeLocked(key)
		}
	}
	p.mu.Unlock()
}
