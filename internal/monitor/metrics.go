package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks overall system performance.
type SystemMetrics struct {
	// Latency histograms
	APILatency  *LatencyHistogram
	FillLatency *LatencyHistogram

	// Counters
	ordersPlaced    uint64
	ordersFilled    uint64
	ordersCancelled uint64
	ordersRejected  uint64
	ordersFailed    uint64
	eventsObserved  uint64
	errorsCount     uint64
}

// LatencyHistogram tracks latency samples with a sliding window.
// Stats are computed lazily and cached between recordings.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		APILatency:  NewLatencyHistogram(1000),
		FillLatency: NewLatencyHistogram(1000),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		// Shift window: remove oldest
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99. Recomputes only when
// samples have changed since the last call.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	min, max := sorted[0], sorted[n-1]
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   min,
		Max:   max,
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// IncrementPlaced increments the accepted orders counter.
func (m *SystemMetrics) IncrementPlaced() {
	atomic.AddUint64(&m.ordersPlaced, 1)
}

// IncrementFilled increments the fully filled orders counter.
func (m *SystemMetrics) IncrementFilled() {
	atomic.AddUint64(&m.ordersFilled, 1)
}

// IncrementCancelled increments the cancelled orders counter.
func (m *SystemMetrics) IncrementCancelled() {
	atomic.AddUint64(&m.ordersCancelled, 1)
}

// IncrementRejected increments the venue-rejected orders counter.
func (m *SystemMetrics) IncrementRejected() {
	atomic.AddUint64(&m.ordersRejected, 1)
}

// IncrementFailed increments the failed submissions counter.
func (m *SystemMetrics) IncrementFailed() {
	atomic.AddUint64(&m.ordersFailed, 1)
}

// IncrementEvents increments the observed lifecycle events counter.
func (m *SystemMetrics) IncrementEvents() {
	atomic.AddUint64(&m.eventsObserved, 1)
}

// IncrementErrors increments the error counter.
func (m *SystemMetrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// MetricsSnapshot is a point-in-time view of system metrics.
type MetricsSnapshot struct {
	APILatency      LatencyStats `json:"api_latency"`
	FillLatency     LatencyStats `json:"fill_latency"`
	OrdersPlaced    uint64       `json:"orders_placed"`
	OrdersFilled    uint64       `json:"orders_filled"`
	OrdersCancelled uint64       `json:"orders_cancelled"`
	OrdersRejected  uint64       `json:"orders_rejected"`
	OrdersFailed    uint64       `json:"orders_failed"`
	EventsObserved  uint64       `json:"events_observed"`
	ErrorsCount     uint64       `json:"errors_count"`
	GoroutineCount  int          `json:"goroutine_count"`
	HeapAlloc       uint64       `json:"heap_alloc_bytes"`
	HeapSys         uint64       `json:"heap_sys_bytes"`
	Timestamp       time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return MetricsSnapshot{
		APILatency:      m.APILatency.Stats(),
		FillLatency:     m.FillLatency.Stats(),
		OrdersPlaced:    atomic.LoadUint64(&m.ordersPlaced),
		OrdersFilled:    atomic.LoadUint64(&m.ordersFilled),
		OrdersCancelled: atomic.LoadUint64(&m.ordersCancelled),
		OrdersRejected:  atomic.LoadUint64(&m.ordersRejected),
		OrdersFailed:    atomic.LoadUint64(&m.ordersFailed),
		EventsObserved:  atomic.LoadUint64(&m.eventsObserved),
		ErrorsCount:     atomic.LoadUint64(&m.errorsCount),
		GoroutineCount:  runtime.NumGoroutine(),
		HeapAlloc:       memStats.HeapAlloc,
		HeapSys:         memStats.HeapSys,
		Timestamp:       time.Now(),
	}
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{
		start:     time.Now(),
		histogram: h,
	}
}

// Stop records elapsed time to histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
