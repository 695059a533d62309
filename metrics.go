package adiv5

import (
	"sync/atomic"
	"time"

	"github.com/armdbg/go-adiv5/internal/interfaces"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// covering 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for a DAP
// session: journal flush latency, sticky-overrun occurrences, queue
// depth, and block-transfer throughput.
type Metrics struct {
	FlushOps       atomic.Uint64 // Total journal flushes
	FlushErrors    atomic.Uint64 // Flushes that returned an error
	OverrunCount   atomic.Uint64 // Sticky-overrun occurrences observed and cleared

	BlockTransferOps   atomic.Uint64 // Total mem_ap_transfer calls
	BlockTransferBytes atomic.Uint64 // Bytes moved by successful transfers
	BlockTransferErrors atomic.Uint64

	QueueDepthTotal atomic.Uint64
	QueueDepthCount atomic.Uint64
	MaxQueueDepth   atomic.Uint32

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordFlush records a journal flush.
func (m *Metrics) RecordFlush(latencyNs uint64, success bool) {
	m.FlushOps.Add(1)
	if !success {
		m.FlushErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordOverrun records a sticky-overrun occurrence that was detected
// and cleared.
func (m *Metrics) RecordOverrun() {
	m.OverrunCount.Add(1)
}

// RecordBlockTransfer records a mem_ap_transfer call.
func (m *Metrics) RecordBlockTransfer(bytes uint64, latencyNs uint64, success bool) {
	m.BlockTransferOps.Add(1)
	if success {
		m.BlockTransferBytes.Add(bytes)
	} else {
		m.BlockTransferErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordQueueDepth records the current journal queue depth.
func (m *Metrics) RecordQueueDepth(depth int) {
	d := uint64(depth)
	m.QueueDepthTotal.Add(d)
	m.QueueDepthCount.Add(1)
	for {
		current := m.MaxQueueDepth.Load()
		if depth <= int(current) {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, uint32(depth)) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the session as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	FlushOps     uint64
	FlushErrors  uint64
	OverrunCount uint64

	BlockTransferOps    uint64
	BlockTransferBytes  uint64
	BlockTransferErrors uint64

	AvgQueueDepth float64
	MaxQueueDepth uint32

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		FlushOps:            m.FlushOps.Load(),
		FlushErrors:         m.FlushErrors.Load(),
		OverrunCount:        m.OverrunCount.Load(),
		BlockTransferOps:    m.BlockTransferOps.Load(),
		BlockTransferBytes:  m.BlockTransferBytes.Load(),
		BlockTransferErrors: m.BlockTransferErrors.Load(),
		MaxQueueDepth:       m.MaxQueueDepth.Load(),
	}

	queueDepthTotal := m.QueueDepthTotal.Load()
	queueDepthCount := m.QueueDepthCount.Load()
	if queueDepthCount > 0 {
		snap.AvgQueueDepth = float64(queueDepthTotal) / float64(queueDepthCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile
// (0.0-1.0) using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters. Useful in tests.
func (m *Metrics) Reset() {
	m.FlushOps.Store(0)
	m.FlushErrors.Store(0)
	m.OverrunCount.Store(0)
	m.BlockTransferOps.Store(0)
	m.BlockTransferBytes.Store(0)
	m.BlockTransferErrors.Store(0)
	m.QueueDepthTotal.Store(0)
	m.QueueDepthCount.Store(0)
	m.MaxQueueDepth.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// NoOpObserver is a no-op implementation of interfaces.Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveFlush(ops int, latencyNs uint64, success bool)            {}
func (NoOpObserver) ObserveOverrun()                                                 {}
func (NoOpObserver) ObserveBlockTransfer(bytes uint64, latencyNs uint64, success bool) {}
func (NoOpObserver) ObserveQueueDepth(depth int)                                      {}

// MetricsObserver implements interfaces.Observer using the built-in
// Metrics type.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveFlush(ops int, latencyNs uint64, success bool) {
	o.metrics.RecordFlush(latencyNs, success)
}

func (o *MetricsObserver) ObserveOverrun() {
	o.metrics.RecordOverrun()
}

func (o *MetricsObserver) ObserveBlockTransfer(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordBlockTransfer(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveQueueDepth(depth int) {
	o.metrics.RecordQueueDepth(depth)
}

var _ interfaces.Observer = (*MetricsObserver)(nil)
var _ interfaces.Observer = NoOpObserver{}
