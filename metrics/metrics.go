// Package metrics collects execution statistics for the emulator. Counter
// and Gauge are lock-free; Histogram guards its summary with a mutex.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing event count. The zero value is
// ready to use.
type Counter struct {
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add increments the counter by n. Negative values are ignored.
func (c *Counter) Add(n int64) {
	if n > 0 {
		c.value.Add(n)
	}
}

// Value returns the current count.
func (c *Counter) Value() int64 { return c.value.Load() }

func (c *Counter) reset() { c.value.Store(0) }

// Gauge holds the latest value of a measurement.
type Gauge struct {
	value atomic.Int64
}

// Set replaces the gauge value.
func (g *Gauge) Set(v int64) { g.value.Store(v) }

// Value returns the current gauge value.
func (g *Gauge) Value() int64 { return g.value.Load() }

func (g *Gauge) reset() { g.value.Store(0) }

// Summary is a point-in-time view of a Histogram. Min and Max are zero
// when Count is zero.
type Summary struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
}

// Mean returns Sum/Count, or 0 for an empty summary.
func (s Summary) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Histogram summarises observed values by count, sum, min and max.
type Histogram struct {
	mu sync.Mutex
	s  Summary
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.s.Count == 0 {
		h.s.Min, h.s.Max = v, v
	} else {
		h.s.Min = math.Min(h.s.Min, v)
		h.s.Max = math.Max(h.s.Max, v)
	}
	h.s.Count++
	h.s.Sum += v
}

// Summary returns the observations recorded so far.
func (h *Histogram) Summary() Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.s
}

func (h *Histogram) reset() {
	h.mu.Lock()
	h.s = Summary{}
	h.mu.Unlock()
}

// Timer records the elapsed time since it was started, in microseconds,
// into a Histogram.
type Timer struct {
	start time.Time
	hist  *Histogram
}

// NewTimer starts a timer that records into h when stopped.
func NewTimer(h *Histogram) *Timer {
	return &Timer{start: time.Now(), hist: h}
}

// Stop records the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.hist.Observe(float64(d.Microseconds()))
	return d
}
