package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/torosent/barrage/internal/metrics"
	"github.com/torosent/barrage/internal/threshold"
)

func sampleReport() metrics.Report {
	return metrics.Report{
		Total:     100,
		Successes: 95,
		Failures:  5,
		Elapsed:   2 * time.Second,
		Latency: metrics.LatencyStats{
			Min:  10 * time.Millisecond,
			Max:  110 * time.Millisecond,
			Mean: 40 * time.Millisecond,
			P50:  35 * time.Millisecond,
			P90:  80 * time.Millisecond,
			P95:  90 * time.Millisecond,
			P99:  105 * time.Millisecond,
		},
		Distribution: []metrics.PercentileValue{
			{Percentile: 0.5, Latency: 35 * time.Millisecond},
			{Percentile: 0.999, Latency: 110 * time.Millisecond},
		},
		Histogram: []metrics.HistogramBucket{
			{Mark: 10 * time.Millisecond, Count: 40},
			{Mark: 60 * time.Millisecond, Count: 50},
			{Mark: 110 * time.Millisecond, Count: 5},
		},
		RequestsPerSec: 47.5,
		TotalBytes:     2048,
		SizePerRequest: 21,
		BytesPerSec:    1024,
		StatusCodes:    map[int]int64{200: 90, 201: 5},
		Errors:         map[string]int64{"timeout": 3, "HTTP 500 Internal Server Error": 2},
	}
}

func TestPrintReportBasic(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleReport())

	output := buf.String()
	for _, want := range []string{
		"Summary:",
		"Success rate:\t95.00%",
		"Total:\t2.0000 secs",
		"Slowest:\t0.1100 secs",
		"Fastest:\t0.0100 secs",
		"Requests/sec:\t47.5000",
		"Total data:\t2.00 KiB",
		"Size/request:\t21 B",
		"Response time histogram:",
		"0.0600 [50]\t|" + strings.Repeat("■", 32),
		"0.0100 [40]\t|" + strings.Repeat("■", 25) + "\n",
		"99.90% in 0.1100 secs",
		"[200] 90 responses",
		"[3] timeout",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
	if strings.Contains(output, "Interrupted") {
		t.Error("complete run should not be marked interrupted")
	}
	if strings.Index(output, "[200]") > strings.Index(output, "[201]") {
		t.Error("status codes should be ordered by count")
	}
}

func TestPrintReportPartialAndEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, metrics.Report{Partial: true})

	output := buf.String()
	if !strings.Contains(output, "Interrupted:\tpartial results") {
		t.Errorf("expected partial marker:\n%s", output)
	}
	for _, absent := range []string{"histogram", "distribution"} {
		if strings.Contains(output, absent) {
			t.Errorf("empty report should not print %s section:\n%s", absent, output)
		}
	}
}

func TestPrintThresholdResults(t *testing.T) {
	var buf bytes.Buffer
	PrintThresholdResults(&buf, nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output without thresholds, got %q", buf.String())
	}

	PrintThresholdResults(&buf, []threshold.Result{
		{Pass: true, Message: "✓ http_requests:count > 10: 100.00 > 10.00"},
		{Pass: false, Message: "✗ http_req_failed:rate < 0.01: 0.05 < 0.01"},
	})
	output := buf.String()
	if !strings.Contains(output, "Thresholds (1/2 passed):") {
		t.Errorf("missing header:\n%s", output)
	}
	if !strings.Contains(output, "  ✗ http_req_failed:rate < 0.01") {
		t.Errorf("missing failing threshold:\n%s", output)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KiB"},
		{1536, "1.50 KiB"},
		{5 * 1024 * 1024, "5.00 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintJSONReport(t *testing.T) {
	run := NewRunInfo("http://localhost:8080", "GET", 50, 100, time.Now())
	if _, err := ulid.Parse(run.ID); err != nil {
		t.Fatalf("run ID %q is not a ULID: %v", run.ID, err)
	}

	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, sampleReport(), run, nil); err != nil {
		t.Fatalf("PrintJSONReport failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["total"].(float64) != 100 || decoded["elapsed_ms"].(float64) != 2000 {
		t.Errorf("unexpected totals: %v %v", decoded["total"], decoded["elapsed_ms"])
	}
	latency := decoded["latency"].(map[string]interface{})
	if latency["p95_ms"].(float64) != 90 {
		t.Errorf("p95_ms = %v, want 90", latency["p95_ms"])
	}
	codes := decoded["status_codes"].(map[string]interface{})
	if codes["200"].(float64) != 90 {
		t.Errorf("status_codes = %v", codes)
	}
	if decoded["run"].(map[string]interface{})["id"] != run.ID {
		t.Errorf("run id missing from JSON")
	}
	if _, ok := decoded["thresholds"]; ok {
		t.Error("thresholds should be omitted when none are configured")
	}
}

func TestPrintYAMLReport(t *testing.T) {
	run := RunInfo{ID: "01J0000000000000000000000", Target: "http://example.com", Method: "GET", Workers: 4}
	results := []threshold.Result{
		{Threshold: threshold.Threshold{Raw: "http_req_failed:rate < 0.01", Metric: "http_req_failed", Aggregate: "rate", Operator: "<", Value: 0.01}, Actual: 0.05},
		{Threshold: threshold.Threshold{Raw: "http_requests:count > 10"}, Actual: 100, Pass: true},
	}

	var buf bytes.Buffer
	if err := PrintYAMLReport(&buf, sampleReport(), run, results); err != nil {
		t.Fatalf("PrintYAMLReport failed: %v", err)
	}

	var decoded struct {
		Run struct {
			ID string `yaml:"id"`
		} `yaml:"run"`
		Failures   int64            `yaml:"failures"`
		Errors     map[string]int64 `yaml:"errors"`
		Thresholds struct {
			Passed  int `yaml:"passed"`
			Failed  int `yaml:"failed"`
			Results []struct {
				Threshold string  `yaml:"threshold"`
				Actual    float64 `yaml:"actual"`
			} `yaml:"results"`
		} `yaml:"thresholds"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	if decoded.Run.ID != run.ID || decoded.Failures != 5 || decoded.Errors["timeout"] != 3 {
		t.Errorf("unexpected decoded report: %+v", decoded)
	}
	if decoded.Thresholds.Passed != 1 || decoded.Thresholds.Failed != 1 || len(decoded.Thresholds.Results) != 2 {
		t.Errorf("unexpected threshold summary: %+v", decoded.Thresholds)
	}
	if decoded.Thresholds.Results[0].Threshold != "http_req_failed:rate < 0.01" || decoded.Thresholds.Results[0].Actual != 0.05 {
		t.Errorf("unexpected first threshold: %+v", decoded.Thresholds.Results[0])
	}
}
