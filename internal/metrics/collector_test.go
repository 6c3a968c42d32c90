package metrics_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/torosent/barrage/internal/metrics"
	"github.com/torosent/barrage/internal/runner"
)

func success(latency time.Duration, status int, size int64) runner.Outcome {
	start := time.Unix(1_700_000_000, 0)
	return runner.Succeeded(start, start.Add(latency), status, size)
}

func failure(err error) runner.Outcome {
	start := time.Unix(1_700_000_000, 0)
	return runner.Failed(start, start.Add(time.Millisecond), err)
}

func TestCollectorLatencyStats(t *testing.T) {
	c := metrics.NewCollector()

	// Record deterministic latencies.
	for _, ms := range []int{10, 20, 30, 40, 50} {
		c.Observe(success(time.Duration(ms)*time.Millisecond, 200, 100))
	}

	stats := c.Snapshot(0)

	if stats.Total != 5 {
		t.Errorf("expected total 5, got %d", stats.Total)
	}
	if stats.Successes != 5 {
		t.Errorf("expected successes 5, got %d", stats.Successes)
	}
	if stats.Failures != 0 {
		t.Errorf("expected failures 0, got %d", stats.Failures)
	}
	if stats.MinLatency != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %s", stats.MinLatency)
	}
	if stats.MaxLatency != 50*time.Millisecond {
		t.Errorf("expected max 50ms, got %s", stats.MaxLatency)
	}
	if stats.MeanLatency != 30*time.Millisecond {
		t.Errorf("expected mean 30ms, got %s", stats.MeanLatency)
	}
	if stats.TotalBytes != 500 {
		t.Errorf("expected 500 bytes, got %d", stats.TotalBytes)
	}
	if stats.RequestsPerSec != 0 {
		t.Errorf("expected zero rps for zero elapsed, got %f", stats.RequestsPerSec)
	}
}

func TestCollectorPercentilesApproximate(t *testing.T) {
	c := metrics.NewCollector()

	// 100 samples: 1ms, 2ms, ..., 100ms.
	for i := 1; i <= 100; i++ {
		c.Observe(success(time.Duration(i)*time.Millisecond, 200, 0))
	}

	stats := c.Snapshot(time.Second)

	checks := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"p50", stats.P50Latency, 50 * time.Millisecond},
		{"p90", stats.P90Latency, 90 * time.Millisecond},
		{"p95", stats.P95Latency, 95 * time.Millisecond},
		{"p99", stats.P99Latency, 99 * time.Millisecond},
	}
	for _, tc := range checks {
		if tc.got < tc.want-time.Millisecond || tc.got > tc.want+time.Millisecond {
			t.Errorf("%s = %s, want ~%s", tc.name, tc.got, tc.want)
		}
	}
	if stats.RequestsPerSec != 100 {
		t.Errorf("expected 100 rps, got %f", stats.RequestsPerSec)
	}
}

func TestCollectorTalliesStatusAndErrors(t *testing.T) {
	c := metrics.NewCollector()
	c.Observe(success(time.Millisecond, 200, 0))
	c.Observe(success(time.Millisecond, 201, 0))
	c.Observe(success(time.Millisecond, 200, 0))
	c.Observe(failure(context.DeadlineExceeded))
	c.Observe(failure(errors.New("connection refused")))

	stats := c.Snapshot(time.Second)
	if stats.StatusCodes[200] != 2 || stats.StatusCodes[201] != 1 {
		t.Errorf("unexpected status codes %v", stats.StatusCodes)
	}
	if stats.Errors["timeout"] != 1 || stats.Errors["connection refused"] != 1 {
		t.Errorf("unexpected errors %v", stats.Errors)
	}
	if stats.Failures != 2 || stats.Total != 5 {
		t.Errorf("expected 2 failures of 5, got %d of %d", stats.Failures, stats.Total)
	}

	// Snapshot maps are copies.
	stats.StatusCodes[200] = 99
	if c.Snapshot(time.Second).StatusCodes[200] != 2 {
		t.Error("snapshot shares state with collector")
	}
}

func TestCollectorConcurrentObserve(t *testing.T) {
	c := metrics.NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Observe(success(time.Millisecond, 200, 1))
			}
		}()
	}
	wg.Wait()

	stats := c.Snapshot(time.Second)
	if stats.Total != 2000 || stats.TotalBytes != 2000 {
		t.Fatalf("expected 2000 outcomes and bytes, got %d/%d", stats.Total, stats.TotalBytes)
	}
}

func TestCollectorClampsOutOfRangeLatency(t *testing.T) {
	c := metrics.NewCollector()
	c.Observe(success(0, 200, 0))
	c.Observe(success(2*time.Minute, 200, 0))

	stats := c.Snapshot(time.Second)
	if stats.MaxLatency != 2*time.Minute {
		t.Errorf("max should keep the raw latency, got %s", stats.MaxLatency)
	}
	if stats.P99Latency > 61*time.Second {
		t.Errorf("histogram value should be clamped, got %s", stats.P99Latency)
	}
}
