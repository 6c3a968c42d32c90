package httpclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/barrage/internal/config"
	"github.com/torosent/barrage/internal/httpclient"
	"github.com/torosent/barrage/internal/metrics"
	"github.com/torosent/barrage/internal/runner"
)

func newExecutor(t *testing.T, cfg *config.Config, opts ...httpclient.ExecutorOption) *httpclient.Executor {
	t.Helper()
	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	client := httpclient.NewClient(cfg.Timeout)
	t.Cleanup(client.CloseIdleConnections)
	return httpclient.NewExecutor(client, builder, opts...)
}

func TestExecutorSuccess(t *testing.T) {
	var gotMethod, gotBody, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Test")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello world"))
	}))
	defer server.Close()

	exec := newExecutor(t, &config.Config{
		TargetURL: server.URL,
		Method:    "post",
		Body:      "payload",
		Headers:   map[string]string{"X-Test": "yes"},
	})

	out := exec.Do()
	if !out.OK() {
		t.Fatalf("expected success, got %v", out.Err)
	}
	if out.Response.Status != http.StatusCreated {
		t.Errorf("Status = %d, want 201", out.Response.Status)
	}
	if out.Response.Size != int64(len("hello world")) {
		t.Errorf("Size = %d, want %d", out.Response.Size, len("hello world"))
	}
	if out.End.Before(out.Start) {
		t.Error("End precedes Start")
	}
	if gotMethod != http.MethodPost || gotBody != "payload" || gotHeader != "yes" {
		t.Errorf("server saw %s %q %q", gotMethod, gotBody, gotHeader)
	}
}

func TestExecutorRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("  overloaded  "))
	}))
	defer server.Close()

	out := newExecutor(t, &config.Config{TargetURL: server.URL}).Do()
	if out.OK() {
		t.Fatal("expected failure for 503")
	}
	var httpErr *runner.HTTPError
	if !errors.As(out.Err, &httpErr) {
		t.Fatalf("expected *runner.HTTPError, got %T", out.Err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable || httpErr.Body != "overloaded" {
		t.Errorf("unexpected HTTPError %+v", httpErr)
	}
	if got := metrics.NormalizeError(out.Err); got != "HTTP 503 Service Unavailable" {
		t.Errorf("NormalizeError() = %q", got)
	}
}

func TestExecutorAcceptAnyStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	out := newExecutor(t, &config.Config{TargetURL: server.URL}, httpclient.WithAcceptAnyStatus(true)).Do()
	if !out.OK() {
		t.Fatalf("expected success with accept-any-status, got %v", out.Err)
	}
	if out.Response.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", out.Response.Status)
	}
	if out.Response.Size == 0 {
		t.Error("expected body size to be recorded")
	}
}

func TestExecutorTimeoutIsFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	out := newExecutor(t, &config.Config{TargetURL: server.URL, Timeout: 50 * time.Millisecond}).Do()
	if out.OK() {
		t.Fatal("expected timeout failure")
	}
	if got := metrics.NormalizeError(out.Err); got != "timeout" {
		t.Errorf("NormalizeError() = %q, want timeout", got)
	}
	if out.Latency() < 50*time.Millisecond {
		t.Errorf("latency %s shorter than timeout", out.Latency())
	}
}

func TestExecutorConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	out := newExecutor(t, &config.Config{TargetURL: target}).Do()
	if out.OK() || out.Response != nil {
		t.Fatalf("expected failure against closed server, got %+v", out)
	}
}

func TestExecutorDrivesRunner(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1)%4 == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	exec := newExecutor(t, &config.Config{TargetURL: server.URL})
	r := runner.New(runner.Options{Workers: 4, Total: 40, Executor: exec})

	var outcomes []runner.Outcome
	for o := range r.Run(context.Background()).C() {
		outcomes = append(outcomes, o)
	}
	report := metrics.Summarize(outcomes, time.Second)

	if report.Total != 40 || hits.Load() != 40 {
		t.Fatalf("expected 40 requests, report=%d server=%d", report.Total, hits.Load())
	}
	if report.Failures != 10 || report.Errors["HTTP 500 Internal Server Error"] != 10 {
		t.Errorf("unexpected failures %d %v", report.Failures, report.Errors)
	}
	if report.StatusCodes[200] != 30 || report.TotalBytes != 60 {
		t.Errorf("unexpected successes %v bytes=%d", report.StatusCodes, report.TotalBytes)
	}
}
