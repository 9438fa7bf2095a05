package pipeline

import (
	"math"
	"sync"
	"time"
)

// MetricsWindow is the rolling window after which all aggregates restart.
const MetricsWindow = 300 * time.Second

// Metric names recorded by the pipeline tasks, all in milliseconds.
const (
	MetricColorCalc   = "color_calc"   // pattern frame computation
	MetricPatternWait = "pattern_wait" // generator waiting for the slot
	MetricBufferPrep  = "buffer_prep"  // staging pixels into the sink
	MetricSPITransmit = "spi_transmit" // hardware commit including latch
	MetricSPIWait     = "spi_wait"     // transmitter waiting for a frame
)

// MetricNames lists every recorded metric.
var MetricNames = []string{
	MetricColorCalc,
	MetricPatternWait,
	MetricBufferPrep,
	MetricSPITransmit,
	MetricSPIWait,
}

// Stat is the read-only view of one metric aggregate.
type Stat struct {
	Avg     float64 `json:"avg"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Last    float64 `json:"last"`
	Samples int     `json:"samples"`
}

type aggregate struct {
	count int
	sum   float64
	min   float64
	max   float64
	last  float64
}

// Recorder keeps running statistics per metric over a rolling window.
// The window reset is lazy: it happens on the first write after expiry,
// never on a timer and never on read.
type Recorder struct {
	mu          sync.Mutex
	now         func() time.Time
	windowStart time.Time
	aggregates  map[string]*aggregate
}

// NewRecorder builds a recorder with all known metrics at zero.
func NewRecorder() *Recorder {
	r := &Recorder{now: time.Now}
	r.aggregates = make(map[string]*aggregate, len(MetricNames))
	r.reset(r.now())
	return r
}

// Record adds one sample in milliseconds. Unknown names are ignored.
func (r *Recorder) Record(name string, valueMs float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.windowStart) > MetricsWindow {
		r.reset(now)
	}

	a, ok := r.aggregates[name]
	if !ok {
		return
	}
	a.count++
	a.sum += valueMs
	a.min = math.Min(a.min, valueMs)
	a.max = math.Max(a.max, valueMs)
	a.last = valueMs
}

// Reset clears every aggregate and restarts the window.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.reset(r.now())
	r.mu.Unlock()
}

func (r *Recorder) reset(now time.Time) {
	for _, name := range MetricNames {
		r.aggregates[name] = &aggregate{min: math.Inf(1)}
	}
	r.windowStart = now
}

// Snapshot returns the current statistics. Empty metrics report all zeros.
// Safe to call at any rate; it never mutates state.
func (r *Recorder) Snapshot() map[string]Stat {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Stat, len(r.aggregates))
	for name, a := range r.aggregates {
		if a.count == 0 {
			out[name] = Stat{}
			continue
		}
		out[name] = Stat{
			Avg:     a.sum / float64(a.count),
			Min:     a.min,
			Max:     a.max,
			Last:    a.last,
			Samples: a.count,
		}
	}
	return out
}
