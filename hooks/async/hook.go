// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/veiloq/cascade"
//	"github.com/veiloq/cascade/hooks/async"
//	"github.com/veiloq/cascade/loghooks"
//
// )
//
//	raw := loghooks.New(slog.Default(), loghooks.Options{
//	    SelfHealEvery:   10, // sample logs: ~every 10th self-heal
//	    CacheErrorEvery: 1,  // log every backend error
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	faqs, _ := cascade.New[FAQ](cascade.Options[FAQ]{
//	    Provider: provider,
//	    Files:    files,
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/veiloq/cascade"
)

// Hooks fans events out to a small worker pool so slow sinks never stall the
// accessor's hot path. The queue is bounded; events beyond capacity are
// dropped rather than blocking.
type Hooks struct {
	inner cascade.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ cascade.Hooks = (*Hooks)(nil)

func New(inner cascade.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) SelfHeal(pk string)              { h.try(func() { h.inner.SelfHeal(pk) }) }
func (h *Hooks) CacheError(pk string, err error) { h.try(func() { h.inner.CacheError(pk, err) }) }
func (h *Hooks) FileCorrupt(k string, err error) { h.try(func() { h.inner.FileCorrupt(k, err) }) }
func (h *Hooks) SourceError(k string, err error) { h.try(func() { h.inner.SourceError(k, err) }) }
func (h *Hooks) SeedError(k string, err error)   { h.try(func() { h.inner.SeedError(k, err) }) }
func (h *Hooks) StaleIsolation(op, k string)     { h.try(func() { h.inner.StaleIsolation(op, k) }) }
func (h *Hooks) WriteRejected(pk string)         { h.try(func() { h.inner.WriteRejected(pk) }) }
