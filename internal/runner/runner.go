package runner

import (
	"context"
	"sync"
	"time"
)

// Runner drives a fixed pool of workers against an Executor.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Options returns the normalized options.
func (r *Runner) Options() Options {
	return r.opt
}

// Run starts the workers and returns immediately. The returned stream closes
// once every worker has exited. Cancelling ctx suppresses new starts; it never
// interrupts a request already handed to the executor.
func (r *Runner) Run(ctx context.Context) *Stream {
	start := time.Now()
	stream := newStream(start)
	policy := r.policy(start)

	// Pacer waits never outlive the deadline: a wait that would end past it
	// fails at once and the worker exits.
	paceCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.opt.Duration > 0 {
		paceCtx, cancel = context.WithDeadline(ctx, start.Add(r.opt.Duration))
	}

	var wg sync.WaitGroup
	wg.Add(r.opt.Workers)
	for i := 0; i < r.opt.Workers; i++ {
		pacer := newPacer(r.opt, i)
		go func() {
			defer wg.Done()
			r.work(ctx, paceCtx, policy, pacer, stream)
		}()
	}

	go func() {
		wg.Wait()
		cancel()
		stream.close()
	}()

	return stream
}

func (r *Runner) policy(start time.Time) Policy {
	var policies []Policy
	// Deadline goes first: it has no side effects, so a late worker never
	// consumes a count slot it cannot use.
	if r.opt.Duration > 0 {
		policies = append(policies, NewDeadlinePolicy(start, r.opt.Duration))
	}
	if r.opt.Total > 0 {
		policies = append(policies, NewCountPolicy(r.opt.Total))
	}
	if len(policies) == 0 {
		return unbounded{}
	}
	return AllOf(policies...)
}

func (r *Runner) work(ctx, paceCtx context.Context, policy Policy, pacer Pacer, stream *Stream) {
	for {
		if ctx.Err() != nil || !policy.Allows() {
			return
		}
		if pacer != nil {
			if err := pacer.Wait(paceCtx); err != nil {
				return
			}
		}
		dispatched := time.Now()
		if !policy.Reserve() {
			return
		}
		var outcome Outcome
		if r.opt.Executor != nil {
			outcome = r.opt.Executor.Do()
		} else {
			outcome = Failed(dispatched, time.Now(), errNoExecutor)
		}
		// The reservation admitted dispatched, so the outcome starts there.
		if outcome.Start.After(dispatched) {
			outcome.Start = dispatched
		}
		stream.publish(outcome)
	}
}
