package valmap

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational
// metrics. Implement it to integrate with monitoring systems.
type MetricsCollector interface {
	// RecordBuild is called after table construction and indexing.
	RecordBuild(keys int, duration time.Duration, err error)

	// RecordLookup is called per evaluated element. hit is false when
	// the key was absent and a default was produced.
	RecordLookup(hit bool)

	// RecordSave is called after each state serialization.
	RecordSave(bytes int, duration time.Duration, err error)

	// RecordLoad is called after each state deserialization.
	RecordLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordLookup(bool)                     {}
func (NoopMetricsCollector) RecordSave(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Safe for concurrent use.
type BasicMetricsCollector struct {
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildTotalNanos atomic.Int64
	LookupHits      atomic.Int64
	LookupMisses    atomic.Int64
	SaveCount       atomic.Int64
	SaveErrors      atomic.Int64
	SaveBytes       atomic.Int64
	LoadCount       atomic.Int64
	LoadErrors      atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(_ int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(hit bool) {
	if hit {
		b.LookupHits.Add(1)
	} else {
		b.LookupMisses.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(bytes int, _ time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SaveBytes.Add(int64(bytes))
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}
