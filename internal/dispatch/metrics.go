package dispatch

import (
	"sync"
	"time"

	"github.com/peakform/coach/domain"
)

// Metrics aggregates per-function counters. The counter map is the one piece
// of shared mutable state in the dispatch path; it is guarded by a single
// mutex with read-modify-write critical sections only, no I/O inside the
// lock.
type Metrics struct {
	mu    sync.Mutex
	perFn map[string]*domain.FunctionStats
}

// NewMetrics creates an empty metrics aggregator.
func NewMetrics() *Metrics {
	return &Metrics{perFn: make(map[string]*domain.FunctionStats)}
}

// Record adds one invocation to the function's running totals.
func (m *Metrics) Record(name string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.perFn[name]
	if !ok {
		stats = &domain.FunctionStats{}
		m.perFn[name] = stats
	}
	stats.Calls++
	stats.TotalDurationMs += duration.Milliseconds()
	if success {
		stats.Successes++
	} else {
		stats.Errors++
	}
}

// Stats returns a copy of one function's totals.
func (m *Metrics) Stats(name string) (domain.FunctionStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.perFn[name]
	if !ok {
		return domain.FunctionStats{}, false
	}
	return *stats, true
}

// Snapshot returns a copy of all totals. The live map is never exposed.
func (m *Metrics) Snapshot() map[string]domain.FunctionStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.FunctionStats, len(m.perFn))
	for name, stats := range m.perFn {
		out[name] = *stats
	}
	return out
}
