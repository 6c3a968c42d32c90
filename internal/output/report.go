package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/torosent/barrage/internal/metrics"
	"github.com/torosent/barrage/internal/threshold"
)

const histogramBarWidth = 32

// RunInfo identifies a run in rendered reports.
type RunInfo struct {
	ID        string    `json:"id" yaml:"id"`
	Target    string    `json:"target" yaml:"target"`
	Method    string    `json:"method" yaml:"method"`
	Workers   int       `json:"workers" yaml:"workers"`
	QPS       float64   `json:"qps,omitempty" yaml:"qps,omitempty"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}

// NewRunInfo stamps a fresh ULID on the run.
func NewRunInfo(target, method string, workers int, qps float64, startedAt time.Time) RunInfo {
	return RunInfo{
		ID:        ulid.Make().String(),
		Target:    target,
		Method:    method,
		Workers:   workers,
		QPS:       qps,
		StartedAt: startedAt.UTC(),
	}
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, report metrics.Report) {
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Success rate:\t%.2f%%\n", report.SuccessRate()*100)
	fmt.Fprintf(w, "  Total:\t%.4f secs\n", report.Elapsed.Seconds())
	fmt.Fprintf(w, "  Slowest:\t%.4f secs\n", report.Latency.Max.Seconds())
	fmt.Fprintf(w, "  Fastest:\t%.4f secs\n", report.Latency.Min.Seconds())
	fmt.Fprintf(w, "  Average:\t%.4f secs\n", report.Latency.Mean.Seconds())
	fmt.Fprintf(w, "  Requests/sec:\t%.4f\n", report.RequestsPerSec)
	if report.Partial {
		fmt.Fprintln(w, "  Interrupted:\tpartial results")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Total data:\t%s\n", formatBytes(report.TotalBytes))
	fmt.Fprintf(w, "  Size/request:\t%s\n", formatBytes(report.SizePerRequest))
	fmt.Fprintf(w, "  Size/sec:\t%s\n", formatBytes(int64(report.BytesPerSec)))

	if len(report.Histogram) > 0 {
		fmt.Fprintln(w, "\nResponse time histogram:")
		writeHistogram(w, report.Histogram)
	}

	if len(report.Distribution) > 0 {
		fmt.Fprintln(w, "\nResponse time distribution:")
		for _, pv := range report.Distribution {
			fmt.Fprintf(w, "  %s in %.4f secs\n", formatPercentile(pv.Percentile), pv.Latency.Seconds())
		}
	}

	if rows := metrics.SortedStatusCodes(report.StatusCodes); len(rows) > 0 {
		fmt.Fprintln(w, "\nStatus code distribution:")
		for _, row := range rows {
			fmt.Fprintf(w, "  [%d] %d responses\n", row.Code, row.Count)
		}
	}

	if rows := metrics.SortedErrors(report.Errors); len(rows) > 0 {
		fmt.Fprintln(w, "\nError distribution:")
		for _, row := range rows {
			fmt.Fprintf(w, "  [%d] %s\n", row.Count, row.Message)
		}
	}
}

// PrintThresholdResults lists evaluated thresholds after the text report.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	summary := summarizeThresholds(results)
	fmt.Fprintf(w, "\nThresholds (%d/%d passed):\n", summary.Passed, summary.Total)
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
}

func writeHistogram(w io.Writer, buckets []metrics.HistogramBucket) {
	var peak int64
	for _, b := range buckets {
		if b.Count > peak {
			peak = b.Count
		}
	}
	for _, b := range buckets {
		bar := 0
		if peak > 0 {
			bar = int(b.Count * histogramBarWidth / peak)
		}
		fmt.Fprintf(w, "  %.4f [%d]\t|%s\n", b.Mark.Seconds(), b.Count, strings.Repeat("■", bar))
	}
}

func formatPercentile(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// jsonReport is the machine-readable shape shared by the JSON and YAML
// encoders. Durations are reported in milliseconds.
type jsonReport struct {
	Run            RunInfo           `json:"run" yaml:"run"`
	Total          int64             `json:"total" yaml:"total"`
	Successes      int64             `json:"successes" yaml:"successes"`
	Failures       int64             `json:"failures" yaml:"failures"`
	SuccessRate    float64           `json:"success_rate" yaml:"success_rate"`
	Partial        bool              `json:"partial" yaml:"partial"`
	ElapsedMs      float64           `json:"elapsed_ms" yaml:"elapsed_ms"`
	RequestsPerSec float64           `json:"requests_per_sec" yaml:"requests_per_sec"`
	Latency        jsonLatency       `json:"latency" yaml:"latency"`
	Distribution   []jsonPercentile  `json:"distribution,omitempty" yaml:"distribution,omitempty"`
	Histogram      []jsonBucket      `json:"histogram,omitempty" yaml:"histogram,omitempty"`
	TotalBytes     int64             `json:"total_bytes" yaml:"total_bytes"`
	SizePerRequest int64             `json:"size_per_request" yaml:"size_per_request"`
	BytesPerSec    float64           `json:"bytes_per_sec" yaml:"bytes_per_sec"`
	StatusCodes    map[string]int64  `json:"status_codes,omitempty" yaml:"status_codes,omitempty"`
	Errors         map[string]int64  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Thresholds     *ThresholdSummary `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

type jsonLatency struct {
	MinMs  float64 `json:"min_ms" yaml:"min_ms"`
	MaxMs  float64 `json:"max_ms" yaml:"max_ms"`
	MeanMs float64 `json:"mean_ms" yaml:"mean_ms"`
	P50Ms  float64 `json:"p50_ms" yaml:"p50_ms"`
	P90Ms  float64 `json:"p90_ms" yaml:"p90_ms"`
	P95Ms  float64 `json:"p95_ms" yaml:"p95_ms"`
	P99Ms  float64 `json:"p99_ms" yaml:"p99_ms"`
}

type jsonPercentile struct {
	Percentile float64 `json:"percentile" yaml:"percentile"`
	LatencyMs  float64 `json:"latency_ms" yaml:"latency_ms"`
}

type jsonBucket struct {
	MarkMs float64 `json:"mark_ms" yaml:"mark_ms"`
	Count  int64   `json:"count" yaml:"count"`
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ThresholdSummary is the rendered outcome of every configured threshold.
type ThresholdSummary struct {
	Total   int                   `json:"total" yaml:"total"`
	Passed  int                   `json:"passed" yaml:"passed"`
	Failed  int                   `json:"failed" yaml:"failed"`
	Results []ThresholdResultJSON `json:"results" yaml:"results"`
}

// ThresholdResultJSON is one evaluated threshold.
type ThresholdResultJSON struct {
	Threshold string  `json:"threshold" yaml:"threshold"`
	Metric    string  `json:"metric" yaml:"metric"`
	Aggregate string  `json:"aggregate" yaml:"aggregate"`
	Operator  string  `json:"operator" yaml:"operator"`
	Expected  float64 `json:"expected" yaml:"expected"`
	Actual    float64 `json:"actual" yaml:"actual"`
	Pass      bool    `json:"pass" yaml:"pass"`
}

func summarizeThresholds(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	summary := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, tr := range results {
		summary.Results[i] = ThresholdResultJSON{
			Threshold: tr.Threshold.Raw,
			Metric:    tr.Threshold.Metric,
			Aggregate: tr.Threshold.Aggregate,
			Operator:  tr.Threshold.Operator,
			Expected:  tr.Threshold.Value,
			Actual:    tr.Actual,
			Pass:      tr.Pass,
		}
		if tr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}

func newJSONReport(report metrics.Report, run RunInfo, results []threshold.Result) jsonReport {
	out := jsonReport{
		Run:            run,
		Total:          report.Total,
		Successes:      report.Successes,
		Failures:       report.Failures,
		SuccessRate:    report.SuccessRate(),
		Partial:        report.Partial,
		ElapsedMs:      toMs(report.Elapsed),
		RequestsPerSec: report.RequestsPerSec,
		Latency: jsonLatency{
			MinMs:  toMs(report.Latency.Min),
			MaxMs:  toMs(report.Latency.Max),
			MeanMs: toMs(report.Latency.Mean),
			P50Ms:  toMs(report.Latency.P50),
			P90Ms:  toMs(report.Latency.P90),
			P95Ms:  toMs(report.Latency.P95),
			P99Ms:  toMs(report.Latency.P99),
		},
		TotalBytes:     report.TotalBytes,
		SizePerRequest: report.SizePerRequest,
		BytesPerSec:    report.BytesPerSec,
		Errors:         report.Errors,
		Thresholds:     summarizeThresholds(results),
	}
	for _, pv := range report.Distribution {
		out.Distribution = append(out.Distribution, jsonPercentile{Percentile: pv.Percentile, LatencyMs: toMs(pv.Latency)})
	}
	for _, b := range report.Histogram {
		out.Histogram = append(out.Histogram, jsonBucket{MarkMs: toMs(b.Mark), Count: b.Count})
	}
	if len(report.StatusCodes) > 0 {
		out.StatusCodes = make(map[string]int64, len(report.StatusCodes))
		for code, count := range report.StatusCodes {
			out.StatusCodes[fmt.Sprint(code)] = count
		}
	}
	return out
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report metrics.Report, run RunInfo, results []threshold.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newJSONReport(report, run, results))
}

// PrintYAMLReport outputs the same document as PrintJSONReport in YAML.
func PrintYAMLReport(w io.Writer, report metrics.Report, run RunInfo, results []threshold.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newJSONReport(report, run, results)); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}
