package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/barrage/internal/metrics"
)

// ProgressReporter writes a one-line status to its writer at a fixed interval
// while a run is in progress. It is the --no-tui live view.
type ProgressReporter struct {
	collector *metrics.Collector
	goal      metrics.Goal
	interval  time.Duration
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	start     time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, goal metrics.Goal, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{
		collector: collector,
		goal:      goal,
		interval:  interval,
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		start:     time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and terminates the status line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	wrote := false
	for {
		select {
		case <-ticker.C:
			stats := p.collector.Snapshot(time.Since(p.start))
			fmt.Fprint(p.writer, "\r"+progressLine(stats, p.goal))
			wrote = true
		case <-p.done:
			if wrote {
				fmt.Fprintln(p.writer)
			}
			return
		}
	}
}

func progressLine(stats metrics.Stats, goal metrics.Goal) string {
	line := fmt.Sprintf("Requests: %d | Successes: %d | Failures: %d | RPS: %.1f | P99: %s",
		stats.Total, stats.Successes, stats.Failures, stats.RequestsPerSec, stats.P99Latency)
	if goal.Requests > 0 || goal.Duration > 0 {
		line += fmt.Sprintf(" | %3.0f%%", goal.Fraction(stats)*100)
	}
	return line
}
