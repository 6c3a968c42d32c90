// Package sink consumes the outcome stream produced by a run.
//
// A live view and the final report are both just observers of the same
// stream; [Drain] feeds every attached [Observer] and stops early when its
// context is cancelled, which is how an interrupt turns into a partial report.
package sink

import (
	"context"
	"sync"
	"time"

	"github.com/torosent/barrage/internal/metrics"
	"github.com/torosent/barrage/internal/runner"
)

// Observer receives outcomes one at a time as they are delivered.
type Observer interface {
	Observe(runner.Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(runner.Outcome)

func (f ObserverFunc) Observe(o runner.Outcome) { f(o) }

// Recorder keeps every observed outcome for bulk summarization.
type Recorder struct {
	mu       sync.Mutex
	outcomes []runner.Outcome
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Observe(o runner.Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
}

// Outcomes returns a copy of everything recorded so far.
func (r *Recorder) Outcomes() []runner.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]runner.Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

// Result is what Drain saw before it returned.
type Result struct {
	Outcomes    []runner.Outcome
	Elapsed     time.Duration
	Interrupted bool
}

// Report summarizes the drained outcomes, marking it partial when the drain
// was interrupted.
func (r Result) Report() metrics.Report {
	report := metrics.Summarize(r.Outcomes, r.Elapsed)
	report.Partial = r.Interrupted
	return report
}

// Drain reads the stream until it closes or ctx is done. On cancellation it
// returns at once with the outcomes delivered so far and the elapsed time up
// to that instant; outcomes still in flight are abandoned.
func Drain(ctx context.Context, stream *runner.Stream, observers ...Observer) Result {
	rec := NewRecorder()
	observers = append([]Observer{rec}, observers...)

	for {
		select {
		case <-ctx.Done():
			return Result{
				Outcomes:    rec.Outcomes(),
				Elapsed:     time.Since(stream.Started()),
				Interrupted: true,
			}
		case o, ok := <-stream.C():
			if !ok {
				return Result{
					Outcomes: rec.Outcomes(),
					Elapsed:  time.Since(stream.Started()),
				}
			}
			for _, obs := range observers {
				obs.Observe(o)
			}
		}
	}
}
