package couchkit

import "sync/atomic"

// ClientStats contains counters for operations issued through a Bucket.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: Gets, Mutations, Removes, Touches, Errors (with operation label)
//   - Counters: CasRetries, ViewQueries, ViewRows
//   - Counter: GetHits (derive hit rate as GetHits/Gets)
type ClientStats struct {
	Gets        uint64 // get and get_and_touch operations
	GetHits     uint64 // gets that found the key
	Mutations   uint64 // insert, replace, upsert operations
	Removes     uint64 // remove operations
	Touches     uint64 // touch operations
	CasRetries  uint64 // transform loop retries triggered by CAS mismatch
	ViewQueries uint64 // view queries issued
	ViewRows    uint64 // view rows delivered
	Errors      uint64 // operations that ended with a non-success status
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - the bucket updates its own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{stats: &ClientStats{}}
}

func (c *clientStatsCollector) recordOp(kind OpKind, status Status) {
	switch {
	case kind.IsRead():
		atomic.AddUint64(&c.stats.Gets, 1)
		if status.Ok() {
			atomic.AddUint64(&c.stats.GetHits, 1)
		}
	case kind == OpRemove:
		atomic.AddUint64(&c.stats.Removes, 1)
	case kind == OpTouch:
		atomic.AddUint64(&c.stats.Touches, 1)
	default:
		atomic.AddUint64(&c.stats.Mutations, 1)
	}
	if !status.Ok() {
		atomic.AddUint64(&c.stats.Errors, 1)
	}
}

func (c *clientStatsCollector) recordCasRetry() {
	atomic.AddUint64(&c.stats.CasRetries, 1)
}

func (c *clientStatsCollector) recordViewQuery() {
	atomic.AddUint64(&c.stats.ViewQueries, 1)
}

func (c *clientStatsCollector) recordViewRows(n int) {
	atomic.AddUint64(&c.stats.ViewRows, uint64(n))
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Gets:        atomic.LoadUint64(&c.stats.Gets),
		GetHits:     atomic.LoadUint64(&c.stats.GetHits),
		Mutations:   atomic.LoadUint64(&c.stats.Mutations),
		Removes:     atomic.LoadUint64(&c.stats.Removes),
		Touches:     atomic.LoadUint64(&c.stats.Touches),
		CasRetries:  atomic.LoadUint64(&c.stats.CasRetries),
		ViewQueries: atomic.LoadUint64(&c.stats.ViewQueries),
		ViewRows:    atomic.LoadUint64(&c.stats.ViewRows),
		Errors:      atomic.LoadUint64(&c.stats.Errors),
	}
}
