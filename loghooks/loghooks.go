// Package loghooks provides a cascade.Hooks implementation backed by slog.
// Noisy events (self-heals, cache outages, write pressure) can be sampled so
// a degraded backend does not flood the log.
package loghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/veiloq/cascade"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery    uint64
	CacheErrorEvery  uint64
	WriteRejectEvery uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr    atomic.Uint64
	cacheErrCtr    atomic.Uint64
	writeRejectCtr atomic.Uint64
}

var _ cascade.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(physicalKey string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("cascade.self_heal",
		"key", physicalKey)
}

func (h *Hooks) CacheError(physicalKey string, err error) {
	if h.l == nil || !sample(h.opts.CacheErrorEvery, &h.cacheErrCtr) {
		return
	}
	h.l.Warn("cascade.cache_error",
		"key", physicalKey,
		"err", err)
}

func (h *Hooks) FileCorrupt(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cascade.file_corrupt",
		"key", key,
		"err", err)
}

func (h *Hooks) SourceError(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("cascade.source_error",
		"key", key,
		"err", err)
}

func (h *Hooks) SeedError(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cascade.seed_error",
		"key", key,
		"err", err)
}

func (h *Hooks) StaleIsolation(op, key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("cascade.stale_isolation",
		"op", op,
		"key", key,
		"msg", "isolated variants left to expire; provider has no tag support")
}

func (h *Hooks) WriteRejected(physicalKey string) {
	if h.l == nil || !sample(h.opts.WriteRejectEvery, &h.writeRejectCtr) {
		return
	}
	h.l.Warn("cascade.write_rejected",
		"key", physicalKey)
}
