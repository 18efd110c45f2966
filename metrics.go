package sigdex

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational metrics. Implement it to integrate
// with a monitoring system; see PrometheusCollector for the standard
// integration.
type MetricsCollector interface {
	// RecordAdd is called after each Add with the total time taken.
	RecordAdd(duration time.Duration, err error)

	// RecordDelete is called after each Delete. found reports whether the id
	// was present.
	RecordDelete(duration time.Duration, found bool, err error)

	// RecordBuffersInUse is called when the number of live slice buffers may
	// have changed.
	RecordBuffersInUse(n int)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)          {}
func (NoopMetricsCollector) RecordDelete(time.Duration, bool, error) {}
func (NoopMetricsCollector) RecordBuffersInUse(int)                  {}

// BasicMetricsCollector keeps simple in-memory counters. Useful for tests
// and debugging without an external monitoring system.
type BasicMetricsCollector struct {
	AddCount       atomic.Int64
	AddErrors      atomic.Int64
	AddTotalNanos  atomic.Int64
	DeleteCount    atomic.Int64
	DeleteMisses   atomic.Int64
	DeleteErrors   atomic.Int64
	BuffersInUse   atomic.Int64
	MaxBuffersSeen atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, found bool, err error) {
	b.DeleteCount.Add(1)
	if !found {
		b.DeleteMisses.Add(1)
	}
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordBuffersInUse implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuffersInUse(n int) {
	b.BuffersInUse.Store(int64(n))
	for {
		maxSeen := b.MaxBuffersSeen.Load()
		if int64(n) <= maxSeen || b.MaxBuffersSeen.CompareAndSwap(maxSeen, int64(n)) {
			return
		}
	}
}
