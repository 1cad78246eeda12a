package logger

import (
	"sync"
	"time"
)

// Metrics tracks counters and timings for one crawl. All methods are safe
// for concurrent use.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
	timings  map[string][]time.Duration
}

var defaultMetrics = NewMetrics()

// NewMetrics creates an empty metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]int64),
		timings:  make(map[string][]time.Duration),
	}
}

// IncrCounter increments a counter by 1.
func (m *Metrics) IncrCounter(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// Counter returns the current value of a counter.
func (m *Metrics) Counter(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// RecordTiming records one duration sample.
func (m *Metrics) RecordTiming(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timings[name] = append(m.timings[name], d)
}

// Reset clears all counters and timings, e.g. between scheduled runs.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = make(map[string]int64)
	m.timings = make(map[string][]time.Duration)
}

// Snapshot returns a copy of the counters and, per timing, its count,
// total, average, min and max as duration strings. The result is suitable
// as a log field.
func (m *Metrics) Snapshot() Fields {
	m.mu.Lock()
	defer m.mu.Unlock()

	counters := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		counters[k] = v
	}

	timings := make(map[string]map[string]interface{}, len(m.timings))
	for name, samples := range m.timings {
		if len(samples) == 0 {
			continue
		}
		var total time.Duration
		lo, hi := samples[0], samples[0]
		for _, d := range samples {
			total += d
			lo = min(lo, d)
			hi = max(hi, d)
		}
		timings[name] = map[string]interface{}{
			"count":   len(samples),
			"total":   total.String(),
			"average": (total / time.Duration(len(samples))).String(),
			"min":     lo.String(),
			"max":     hi.String(),
		}
	}

	return Fields{
		"counters": counters,
		"timings":  timings,
	}
}

// DefaultMetrics returns the process-wide tracker.
func DefaultMetrics() *Metrics {
	return defaultMetrics
}

// IncrCounter increments a counter on the default tracker.
func IncrCounter(name string) {
	defaultMetrics.IncrCounter(name)
}

// RecordTiming records a timing on the default tracker.
func RecordTiming(name string, d time.Duration) {
	defaultMetrics.RecordTiming(name, d)
}
