package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/torosent/barrage/internal/config"
)

func TestBuildRequestWithHeaders(t *testing.T) {
	cfg := &config.Config{
		Method:    "post",
		TargetURL: "http://example.com/api",
		Headers: map[string]string{
			"content-type": "application/json",
			"X-Trace-Id":   "12345",
		},
		Body: `{"hello":"world"}`,
	}

	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("expected builder, got error: %v", err)
	}

	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("expected request, got error: %v", err)
	}

	if req.Method != http.MethodPost {
		t.Fatalf("expected method POST, got %s", req.Method)
	}

	if req.URL.String() != cfg.TargetURL {
		t.Fatalf("expected URL %s, got %s", cfg.TargetURL, req.URL.String())
	}

	if req.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected canonical Content-Type header, got %q", req.Header.Get("Content-Type"))
	}

	if req.Header.Get("X-Trace-Id") != "12345" {
		t.Fatalf("expected X-Trace-Id header, got %q", req.Header.Get("X-Trace-Id"))
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	if err := req.Body.Close(); err != nil {
		t.Fatalf("close body failed: %v", err)
	}

	expectedBody := cfg.Body
	if string(bodyBytes) != expectedBody {
		t.Fatalf("expected body %q, got %q", expectedBody, string(bodyBytes))
	}

	if req.ContentLength != int64(len(expectedBody)) {
		t.Fatalf("expected content length %d, got %d", len(expectedBody), req.ContentLength)
	}

	if req.GetBody == nil {
		t.Fatalf("expected request to support body replay")
	}

	replayBody, err := req.GetBody()
	if err != nil {
		t.Fatalf("expected replay body, got error: %v", err)
	}
	replayBytes, err := io.ReadAll(replayBody)
	if err != nil {
		t.Fatalf("read replay body failed: %v", err)
	}
	if err := replayBody.Close(); err != nil {
		t.Fatalf("close replay body failed: %v", err)
	}

	if string(replayBytes) != expectedBody {
		t.Fatalf("expected replay body %q, got %q", expectedBody, string(replayBytes))
	}
}

func TestRequestBuilder_InvalidHeaderKey(t *testing.T) {
	cfg := &config.Config{
		Method:    "GET",
		TargetURL: "http://example.com",
		Headers: map[string]string{
			"": "value",
		},
	}
	_, err := NewRequestBuilder(cfg)
	if err == nil {
		t.Fatalf("expected error for empty header key")
	}
}

func TestRequestBuilder_InvalidHeaderKeyWithNewline(t *testing.T) {
	cfg := &config.Config{
		Method:    "GET",
		TargetURL: "http://example.com",
		Headers: map[string]string{
			"Bad\nKey": "value",
		},
	}
	_, err := NewRequestBuilder(cfg)
	if err == nil {
		t.Fatalf("expected error for header key containing newline")
	}
}

func TestRequestBuilder_MethodFallbackAndVerbs(t *testing.T) {
	t.Run("fallback to GET when method empty", func(t *testing.T) {
		cfg := &config.Config{TargetURL: "http://example.com"}
		builder, err := NewRequestBuilder(cfg)
		if err != nil {
			t.Fatalf("NewRequestBuilder error = %v", err)
		}
		req, err := builder.Build(context.Background())
		if err != nil {
			t.Fatalf("Build error = %v", err)
		}
		if req.Method != http.MethodGet {
			t.Fatalf("expected method GET, got %s", req.Method)
		}
	})

	t.Run("supports common verbs including PATCH/PUT/DELETE", func(t *testing.T) {
		verbs := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}
		for _, verb := range verbs {
			t.Run(verb, func(t *testing.T) {
				cfg := &config.Config{Method: verb, TargetURL: "http://example.com"}
				builder, err := NewRequestBuilder(cfg)
				if err != nil {
					t.Fatalf("NewRequestBuilder error = %v", err)
				}
				req, err := builder.Build(context.Background())
				if err != nil {
					t.Fatalf("Build error = %v", err)
				}
				if req.Method != verb {
					t.Fatalf("expected method %s, got %s", verb, req.Method)
				}
			})
		}
	})

	t.Run("normalizes lower-case method to upper-case", func(t *testing.T) {
		cfg := &config.Config{Method: "patch", TargetURL: "http://example.com"}
		builder, err := NewRequestBuilder(cfg)
		if err != nil {
			t.Fatalf("NewRequestBuilder error = %v", err)
		}
		req, err := builder.Build(context.Background())
		if err != nil {
			t.Fatalf("Build error = %v", err)
		}
		if req.Method != http.MethodPatch {
			t.Fatalf("expected method PATCH, got %s", req.Method)
		}
	})
}

func TestRequestBuilder_InvalidHeaderValueWithNewline(t *testing.T) {
	cfg := &config.Config{
		Method:    "GET",
		TargetURL: "http://example.com",
		Headers: map[string]string{
			"X-Test": "bad\rvalue",
		},
	}
	_, err := NewRequestBuilder(cfg)
	if err == nil {
		t.Fatalf("expected error for header value containing CR/LF")
	}
}

func TestRequestBuilder_HostHeaderOverridesHost(t *testing.T) {
	cfg := &config.Config{
		TargetURL: "http://127.0.0.1:8080/",
		Headers:   map[string]string{"host": "api.internal"},
	}
	b, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if req.Host != "api.internal" {
		t.Fatalf("expected Host api.internal, got %q", req.Host)
	}
}

func TestRequestBuilder_RejectsMalformedTarget(t *testing.T) {
	for _, target := range []string{"", "   ", "http://[::1"} {
		if _, err := NewRequestBuilder(&config.Config{TargetURL: target}); err == nil {
			t.Errorf("expected error for target %q", target)
		}
	}
}

func TestRequestBuilder_HeadersAreNotShared(t *testing.T) {
	b, err := NewRequestBuilder(&config.Config{
		TargetURL: "http://example.com",
		Headers:   map[string]string{"X-Run": "1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := b.Build(context.Background())
	first.Header.Set("X-Run", "mutated")
	second, _ := b.Build(context.Background())
	if got := second.Header.Get("X-Run"); got != "1" {
		t.Fatalf("request headers leaked between builds: %q", got)
	}
}

func TestRequestBuilder_EmptyHeaderValueAllowed(t *testing.T) {
	cfg := &config.Config{
		Method:    "GET",
		TargetURL: "http://example.com",
		Headers: map[string]string{
			"X-Empty": "",
		},
	}
	b, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if got := req.Header.Get("X-Empty"); got != "" {
		t.Fatalf("expected empty header value, got %q", got)
	}
}

func TestClientTimeoutApplied(t *testing.T) {
	timeout := 50 * time.Millisecond
	client := NewClient(timeout)
	defer client.CloseIdleConnections()

	if client.Timeout != timeout {
		t.Fatalf("expected client timeout %s, got %s", timeout, client.Timeout)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(timeout * 3)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}

	elapsed := time.Since(start)
	if elapsed < timeout {
		t.Fatalf("request returned too quickly: %s < %s", elapsed, timeout)
	}
	if elapsed > timeout*5 {
		t.Fatalf("request took too long: %s", elapsed)
	}

	if !errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			t.Fatalf("expected timeout error, got %v", err)
		}
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.MaxIdleConns == 0 {
		t.Fatalf("expected transport to allow idle connections")
	}
	if transport.IdleConnTimeout == 0 {
		t.Fatalf("expected transport to set idle connection timeout")
	}
}

