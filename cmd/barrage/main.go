package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/torosent/barrage/internal/config"
	"github.com/torosent/barrage/internal/dashboard"
	"github.com/torosent/barrage/internal/httpclient"
	"github.com/torosent/barrage/internal/metrics"
	"github.com/torosent/barrage/internal/output"
	"github.com/torosent/barrage/internal/profiling"
	"github.com/torosent/barrage/internal/runner"
	"github.com/torosent/barrage/internal/sink"
	"github.com/torosent/barrage/internal/threshold"
	"github.com/torosent/barrage/internal/tracing"
)

const (
	progressInterval = time.Second
	baseRetryDelay   = 100 * time.Millisecond
	maxRetryDelay    = 5 * time.Second
	shutdownTimeout  = 5 * time.Second
)

type logrusFailureLogger struct {
	log *logrus.Logger
}

type jitterSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// liveView is whichever of the dashboard or the progress line is running.
type liveView interface {
	Stop()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}

	log := newLogger(stderr)
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	if cfg.PprofAddr != "" {
		srv, err := profiling.Start(cfg.PprofAddr)
		if err != nil {
			return err
		}
		defer shutdownWithTimeout(srv.Shutdown)
	}

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(tp.Shutdown)

	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		return err
	}
	client := httpclient.NewClient(cfg.Timeout)
	defer client.CloseIdleConnections()

	var exec runner.Executor = httpclient.NewExecutor(client, builder,
		httpclient.WithAcceptAnyStatus(cfg.AcceptAnyStatus),
		httpclient.WithTracing(tp),
	)
	if cfg.LogErrors {
		exec = runner.WithLogging(exec, &logrusFailureLogger{log: log})
	}
	if cfg.Retries > 0 {
		exec = runner.WithRetry(exec, newRetryPolicy(cfg.Retries))
	}

	total, duration := cfg.StopCondition()
	r := runner.New(runner.Options{
		Workers:      cfg.Workers,
		Total:        total,
		Duration:     duration,
		Rate:         cfg.QPS,
		ArrivalModel: toRunnerArrivalModel(cfg.Arrival.Model),
		RandomSeed:   time.Now().UnixNano(),
		Executor:     exec,
	})

	// Cancelling runCtx is the interrupt: it stops new starts and makes the
	// drain return with whatever has completed.
	runCtx, interrupt := context.WithCancel(ctx)
	defer interrupt()

	collector := metrics.NewCollector()
	view := startLiveView(cfg, collector, interrupt, log, stderr)

	stream := r.Run(runCtx)
	result := sink.Drain(runCtx, stream, collector)
	view.Stop()

	report := result.Report()
	results := threshold.NewEvaluator(thresholds).Evaluate(report)
	info := output.NewRunInfo(builder.Target(), builder.Method(), cfg.Workers, cfg.QPS, stream.Started())

	switch {
	case cfg.JSONOutput:
		if err := output.PrintJSONReport(stdout, report, info, results); err != nil {
			return err
		}
	case cfg.YAMLOutput:
		if err := output.PrintYAMLReport(stdout, report, info, results); err != nil {
			return err
		}
	default:
		output.PrintReport(stdout, report)
		output.PrintThresholdResults(stdout, results)
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, report, info, results); err != nil {
			return err
		}
		log.WithField("path", cfg.HTMLOutput).Info("HTML report written")
	}

	if result.Interrupted {
		return nil
	}
	return threshold.Check(results)
}

func newLogger(w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
	// Validation warnings go through the standard logger.
	logrus.SetOutput(w)
	return log
}

func startLiveView(cfg *config.Config, collector *metrics.Collector, interrupt func(), log *logrus.Logger, stderr io.Writer) liveView {
	total, duration := cfg.StopCondition()
	if !cfg.NoTUI {
		dash, err := dashboard.New(collector, dashboard.TestConfig{
			TargetURL:  cfg.TargetURL,
			Method:     cfg.Method,
			Workers:    cfg.Workers,
			Requests:   total,
			Duration:   duration,
			QPS:        cfg.QPS,
			Arrival:    string(cfg.Arrival.Model),
			Timeout:    cfg.Timeout,
			Retries:    cfg.Retries,
			ConfigFile: cfg.ConfigFile,
			FPS:        cfg.FPS,
		}, interrupt)
		if err == nil {
			dash.Start()
			return dash
		}
		log.WithError(err).Warn("dashboard unavailable, falling back to progress output")
	}

	progress := output.NewProgressReporter(collector, metrics.Goal{Requests: int64(total), Duration: duration}, progressInterval, stderr)
	progress.Start()
	return progress
}

func writeHTMLReport(path string, report metrics.Report, info output.RunInfo, results []threshold.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	if err := output.GenerateHTMLReport(f, report, info, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func shutdownWithTimeout(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = shutdown(ctx)
}

func toRunnerArrivalModel(model config.ArrivalModel) runner.ArrivalModel {
	switch strings.ToLower(string(model)) {
	case string(config.ArrivalModelPoisson):
		return runner.ArrivalModelPoisson
	default:
		return runner.ArrivalModelUniform
	}
}

func (l *logrusFailureLogger) LogFailure(err error) {
	if err == nil {
		return
	}
	l.log.WithField("kind", metrics.NormalizeError(err)).Error(err.Error())
}

func newRetryPolicy(retries int) runner.RetryPolicy {
	source := &jitterSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}

	return runner.RetryPolicy{
		MaxAttempts: retries + 1,
		ShouldRetry: shouldRetry,
		DelayFunc: func(attempt int, err error) time.Duration {
			backoff := retryBackoff(attempt)
			return backoff + source.jitter(backoff/2)
		},
	}
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *runner.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return httpErr.StatusCode >= 500
	}

	return true
}

func retryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		return maxRetryDelay
	}
	backoff := time.Duration(1<<uint(attempt-1)) * baseRetryDelay
	if backoff > maxRetryDelay {
		backoff = maxRetryDelay
	}
	return backoff
}

func (j *jitterSource) jitter(max time.Duration) time.Duration {
	if j == nil || max <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.rnd.Int63n(int64(max)))
}
