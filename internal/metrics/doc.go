// Package metrics turns request outcomes into statistics.
//
// Two consumers share the same input type, [runner.Outcome]:
//
//   - [Summarize] is the final aggregator. It is a pure function over a slice
//     of outcomes and the elapsed wall time, computing exact percentiles by
//     sorting successful latencies.
//   - [Collector] is the incremental consumer behind the live dashboard and
//     progress line. It records into an HDR histogram, so its percentiles are
//     approximate.
//
// # Percentiles
//
// For n ascending latencies, percentile p (a fraction) selects the element at
// index ceil(p*n)-1, clamped to [0, n-1]. For [10ms 20ms 30ms 40ms], p50 is
// 20ms and p90 is 40ms.
//
// # Errors
//
// Failures are tallied by [NormalizeError]. Every kind of timeout counts as
// "timeout"; a rejected HTTP status counts as "HTTP <code> <text>".
package metrics
