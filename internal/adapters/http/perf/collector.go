// Package perf keeps a bounded window of request and store timings for the
// admin timing report.
package perf

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWindow is the default number of samples kept.
const DefaultWindow = 4096

// Kind distinguishes HTTP requests from store operations.
type Kind uint8

const (
	KindRequest Kind = iota
	KindStore
)

// Sample is one timing observation.
type Sample struct {
	Kind     Kind
	Label    string // "GET /dashboard" or "kv.Get"
	Status   int    // HTTP status, 0 for store operations
	Duration time.Duration
	At       time.Time
}

// Collector is a fixed-size ring of samples. When full the oldest sample is
// overwritten. Aggregation happens on read.
type Collector struct {
	mu      sync.Mutex
	samples []Sample
	next    int
	total   atomic.Int64
}

// NewCollector creates a collector keeping the last window samples.
// PRE: window > 0 (non-positive falls back to DefaultWindow)
func NewCollector(window int) *Collector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Collector{samples: make([]Sample, window)}
}

// Record stores a sample, overwriting the oldest one when the ring is full.
func (c *Collector) Record(s Sample) {
	c.mu.Lock()
	c.samples[c.next] = s
	c.next = (c.next + 1) % len(c.samples)
	c.mu.Unlock()
	c.total.Add(1)
}

// Total returns the number of samples ever recorded.
func (c *Collector) Total() int64 {
	return c.total.Load()
}

// LabelStat aggregates the samples of one label.
type LabelStat struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	MaxMs float64 `json:"max_ms"`
}

// Report is the aggregated view of the current window.
type Report struct {
	Recorded    int64       `json:"recorded"`
	RequestP50  float64     `json:"request_p50_ms"`
	RequestP95  float64     `json:"request_p95_ms"`
	RequestP99  float64     `json:"request_p99_ms"`
	SlowRoutes  []LabelStat `json:"slow_routes"`
	SlowStoreOp []LabelStat `json:"slow_store_ops"`
}

// Report aggregates samples taken at or after since, keeping the topN
// slowest labels (by average) of each kind.
func (c *Collector) Report(since time.Time, topN int) Report {
	c.mu.Lock()
	window := slices.Clone(c.samples)
	c.mu.Unlock()

	var requestMs []float64
	routes := map[string]*LabelStat{}
	storeOps := map[string]*LabelStat{}

	for _, s := range window {
		if s.At.IsZero() || s.At.Before(since) {
			continue
		}
		ms := float64(s.Duration.Microseconds()) / 1000.0
		bucket := storeOps
		if s.Kind == KindRequest {
			bucket = routes
			requestMs = append(requestMs, ms)
		}
		st, ok := bucket[s.Label]
		if !ok {
			st = &LabelStat{Label: s.Label}
			bucket[s.Label] = st
		}
		st.Count++
		st.AvgMs += ms
		st.MaxMs = math.Max(st.MaxMs, ms)
	}

	r := Report{
		Recorded:    c.Total(),
		SlowRoutes:  slowest(routes, topN),
		SlowStoreOp: slowest(storeOps, topN),
	}
	if len(requestMs) > 0 {
		slices.Sort(requestMs)
		r.RequestP50 = percentile(requestMs, 50)
		r.RequestP95 = percentile(requestMs, 95)
		r.RequestP99 = percentile(requestMs, 99)
	}
	return r
}

// percentile interpolates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	idx := (p / 100) * float64(len(sorted)-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// slowest turns summed stats into averages and returns the n slowest.
func slowest(stats map[string]*LabelStat, n int) []LabelStat {
	out := make([]LabelStat, 0, len(stats))
	for _, st := range stats {
		st.AvgMs /= float64(st.Count)
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b LabelStat) int {
		switch {
		case a.AvgMs > b.AvgMs:
			return -1
		case a.AvgMs < b.AvgMs:
			return 1
		}
		return 0
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
