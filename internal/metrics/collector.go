package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/barrage/internal/runner"
)

// Collector is the incremental consumer used by live views. It folds outcomes
// into an HDR histogram as they arrive, trading exact percentiles for constant
// memory. The final Report is always computed by Summarize.
type Collector struct {
	mu          sync.Mutex
	hist        *hdrhistogram.Histogram
	successes   int64
	failures    int64
	minLatency  time.Duration
	maxLatency  time.Duration
	sumLatency  time.Duration
	totalBytes  int64
	statusCodes map[int]int64
	errors      map[string]int64
}

// Stats is a point-in-time view of a Collector.
type Stats struct {
	Total          int64
	Successes      int64
	Failures       int64
	MinLatency     time.Duration
	MaxLatency     time.Duration
	MeanLatency    time.Duration
	P50Latency     time.Duration
	P90Latency     time.Duration
	P95Latency     time.Duration
	P99Latency     time.Duration
	TotalBytes     int64
	Elapsed        time.Duration
	RequestsPerSec float64
	StatusCodes    map[int]int64
	Errors         map[string]int64
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:        h,
		statusCodes: make(map[int]int64),
		errors:      make(map[string]int64),
	}
}

// Observe records one outcome. Safe for concurrent use.
func (c *Collector) Observe(o runner.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !o.OK() {
		c.failures++
		c.errors[NormalizeError(o.Err)]++
		return
	}

	latency := o.Latency()
	us := latency.Microseconds()
	if us < c.hist.LowestTrackableValue() {
		us = c.hist.LowestTrackableValue()
	}
	if us > c.hist.HighestTrackableValue() {
		us = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(us)

	c.successes++
	c.sumLatency += latency
	c.totalBytes += o.Response.Size
	c.statusCodes[o.Response.Status]++
	if c.successes == 1 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}
}

// Snapshot returns the current statistics. elapsed is the time since the run
// started and is only used for the throughput figure.
func (c *Collector) Snapshot(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Total:       c.successes + c.failures,
		Successes:   c.successes,
		Failures:    c.failures,
		MinLatency:  c.minLatency,
		MaxLatency:  c.maxLatency,
		TotalBytes:  c.totalBytes,
		Elapsed:     elapsed,
		StatusCodes: make(map[int]int64, len(c.statusCodes)),
		Errors:      make(map[string]int64, len(c.errors)),
	}
	if c.successes > 0 {
		stats.MeanLatency = c.sumLatency / time.Duration(c.successes)
	}
	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P95Latency = time.Duration(c.hist.ValueAtQuantile(95)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	if elapsed > 0 {
		stats.RequestsPerSec = float64(c.successes) / elapsed.Seconds()
	}
	for k, v := range c.statusCodes {
		stats.StatusCodes[k] = v
	}
	for k, v := range c.errors {
		stats.Errors[k] = v
	}
	return stats
}
