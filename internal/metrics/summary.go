package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/torosent/barrage/internal/runner"
)

// HistogramBuckets is the number of equal-width latency buckets in a Report.
const HistogramBuckets = 11

// DistributionPercentiles are the cut points reported in Report.Distribution.
var DistributionPercentiles = []float64{0.10, 0.25, 0.50, 0.75, 0.90, 0.95, 0.99, 0.999, 0.9999}

// LatencyStats summarizes successful request latencies.
type LatencyStats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
	P50  time.Duration
	P90  time.Duration
	P95  time.Duration
	P99  time.Duration
}

// PercentileValue is one cut point of the latency distribution.
type PercentileValue struct {
	Percentile float64
	Latency    time.Duration
}

// HistogramBucket counts latencies at or below Mark and above the previous
// bucket's mark.
type HistogramBucket struct {
	Mark  time.Duration
	Count int64
}

// Report is the aggregated view of a finished (or interrupted) run.
type Report struct {
	Total     int64
	Successes int64
	Failures  int64
	Elapsed   time.Duration
	Partial   bool

	Latency      LatencyStats
	Distribution []PercentileValue
	Histogram    []HistogramBucket

	RequestsPerSec float64
	BytesPerSec    float64
	TotalBytes     int64
	SizePerRequest int64

	StatusCodes map[int]int64
	Errors      map[string]int64
}

// SuccessRate returns successes/total, or 0 for an empty report.
func (r Report) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Successes) / float64(r.Total)
}

// FailureRate returns failures/total, or 0 for an empty report.
func (r Report) FailureRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Failures) / float64(r.Total)
}

// Summarize aggregates outcomes into a Report. It reads no clock and keeps no
// state; the same input always yields the same Report.
func Summarize(outcomes []runner.Outcome, elapsed time.Duration) Report {
	report := Report{
		Total:       int64(len(outcomes)),
		Elapsed:     elapsed,
		StatusCodes: make(map[int]int64),
		Errors:      make(map[string]int64),
	}

	latencies := make([]time.Duration, 0, len(outcomes))
	var sum time.Duration
	for _, o := range outcomes {
		if !o.OK() {
			report.Failures++
			report.Errors[NormalizeError(o.Err)]++
			continue
		}
		report.Successes++
		report.StatusCodes[o.Response.Status]++
		report.TotalBytes += o.Response.Size
		lat := o.Latency()
		sum += lat
		latencies = append(latencies, lat)
	}

	if elapsed > 0 {
		secs := elapsed.Seconds()
		report.RequestsPerSec = float64(report.Successes) / secs
		report.BytesPerSec = float64(report.TotalBytes) / secs
	}
	if len(latencies) == 0 {
		return report
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	n := len(latencies)
	report.SizePerRequest = report.TotalBytes / int64(n)
	report.Latency = LatencyStats{
		Min:  latencies[0],
		Max:  latencies[n-1],
		Mean: sum / time.Duration(n),
		P50:  Percentile(latencies, 0.50),
		P90:  Percentile(latencies, 0.90),
		P95:  Percentile(latencies, 0.95),
		P99:  Percentile(latencies, 0.99),
	}

	report.Distribution = make([]PercentileValue, len(DistributionPercentiles))
	for i, p := range DistributionPercentiles {
		report.Distribution[i] = PercentileValue{Percentile: p, Latency: Percentile(latencies, p)}
	}
	report.Histogram = histogram(latencies, HistogramBuckets)
	return report
}

// Percentile returns the element at index ceil(p*n)-1 of an ascending slice,
// clamped to the valid range. p is a fraction in [0, 1].
func Percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	// The epsilon absorbs float error such as 0.9*10 = 9.000000000000002.
	idx := int(math.Ceil(p*float64(n)-1e-9)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// histogram splits [min, max] into bins-1 equal steps. Bucket i is marked
// min+step*i and holds values v with ceil((v-min)/step) == i.
func histogram(sorted []time.Duration, bins int) []HistogramBucket {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	step := float64(hi-lo) / float64(bins-1)

	buckets := make([]HistogramBucket, bins)
	for i := range buckets {
		buckets[i].Mark = lo + time.Duration(step*float64(i))
	}
	for _, v := range sorted {
		i := 0
		if step > 0 {
			i = int(math.Ceil(float64(v-lo) / step))
		}
		if i >= bins {
			i = bins - 1
		}
		buckets[i].Count++
	}
	return buckets
}
