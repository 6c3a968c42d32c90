package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/barrage/internal/runner"
	"github.com/torosent/barrage/internal/tracing"
)

const maxLoggedBodyBytes = 1024

// Executor sends one request per Do call and converts the exchange into a
// runner.Outcome. It is safe for concurrent use by every worker.
type Executor struct {
	client          *http.Client
	builder         *RequestBuilder
	acceptAnyStatus bool
	tracer          trace.Tracer
	propagate       bool
	now             func() time.Time
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithAcceptAnyStatus treats every completed response as a success, whatever
// its status code.
func WithAcceptAnyStatus(accept bool) ExecutorOption {
	return func(e *Executor) { e.acceptAnyStatus = accept }
}

// WithTracing wraps each request in a client span from provider.
func WithTracing(provider *tracing.Provider) ExecutorOption {
	return func(e *Executor) {
		if provider.Enabled() {
			e.tracer = provider.Tracer()
		}
		e.propagate = provider.ShouldPropagate()
	}
}

func NewExecutor(client *http.Client, builder *RequestBuilder, opts ...ExecutorOption) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	e := &Executor{
		client:  client,
		builder: builder,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do performs the request. Transport failures, body read failures and
// rejected statuses all come back as failed outcomes.
func (e *Executor) Do() runner.Outcome {
	ctx := context.Background()
	var span trace.Span
	if e.tracer != nil {
		ctx, span = tracing.StartRequestSpan(ctx, e.tracer, "http", e.builder.Method()+" "+e.builder.Target())
	}

	start := e.now()
	status, size, err := e.exchange(ctx)
	end := e.now()

	if span != nil {
		attrs := []attribute.KeyValue{attribute.Int64("http.response.body.size", size)}
		if status > 0 {
			attrs = append(attrs, attribute.Int("http.response.status_code", status))
		}
		tracing.EndSpan(span, err, attrs...)
	}

	if err != nil {
		return runner.Failed(start, end, err)
	}
	return runner.Succeeded(start, end, status, size)
}

func (e *Executor) exchange(ctx context.Context) (int, int64, error) {
	req, err := e.builder.Build(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("build request: %w", err)
	}
	if e.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	accepted := e.acceptAnyStatus || (resp.StatusCode >= 200 && resp.StatusCode < 300)
	if !accepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
		rest, _ := drain(resp.Body)
		return resp.StatusCode, int64(len(snippet)) + rest, &runner.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	size, err := drain(resp.Body)
	if err != nil {
		return resp.StatusCode, size, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, size, nil
}
