package cascade

import "sync/atomic"

// stats is the manager's internal counter set. Fields are bumped
// atomically on hot paths; snapshot reads them without locking.
type stats struct {
	cacheHits  atomic.Uint64
	fileHits   atomic.Uint64
	sourceHits atomic.Uint64
	misses     atomic.Uint64
	writes     atomic.Uint64
}

func (s *stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		CacheHits:  s.cacheHits.Load(),
		FileHits:   s.fileHits.Load(),
		SourceHits: s.sourceHits.Load(),
		Misses:     s.misses.Load(),
		Writes:     s.writes.Load(),
	}
}

// StatsSnapshot is a point-in-time view of accessor activity.
// Hit counters record which layer resolved a read; Writes counts
// successful cache writes from any path (set, promotion, remember).
type StatsSnapshot struct {
	CacheHits  uint64 `json:"cache_hits"`
	FileHits   uint64 `json:"file_hits"`
	SourceHits uint64 `json:"source_hits"`
	Misses     uint64 `json:"misses"`
	Writes     uint64 `json:"writes"`
}

// Lookups returns the total number of resolved reads.
func (s StatsSnapshot) Lookups() uint64 {
	return s.CacheHits + s.FileHits + s.SourceHits + s.Misses
}

// HitRatio returns the fraction of lookups served by the fast cache,
// or 0 before the first lookup.
func (s StatsSnapshot) HitRatio() float64 {
	n := s.Lookups()
	if n == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(n)
}
