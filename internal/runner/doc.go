// Package runner provides the workload scheduling engine for barrage.
//
// A [Runner] owns a fixed pool of workers. Each worker repeats:
//
//  1. peek at the termination [Policy]; exit if it forbids new starts
//  2. wait on its own [Pacer] when a rate is configured
//  3. reserve a slot from the policy; exit if the reservation fails
//  4. call the [Executor] and publish the [Outcome] on the [Stream]
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Workers:  50,
//		Total:    200,
//		Rate:     100,
//		Executor: exec,
//	})
//	stream := r.Run(ctx)
//	for outcome := range stream.C() {
//		...
//	}
//
// # Termination
//
// [CountPolicy] hands out exactly N slots with an atomic check-and-decrement,
// so a count-bounded run produces exactly N outcomes. [DeadlinePolicy] permits
// a start only while the elapsed time since the run start is below the
// configured duration. An outcome's Start is the instant its slot was
// reserved, so it always falls before the deadline. Requests already started
// are never aborted; an outcome may finish after the deadline. [AllOf]
// combines both.
//
// # Pacing
//
// With a target rate R and W workers, each worker keeps at least W/R between
// its own dispatch starts. Pacing only delays work, and a pacer wait that
// would end past the run deadline ends the worker instead. Concurrency stays capped at
// W, so when request latency exceeds W/R the achieved rate falls below R; the
// runner does not add workers to compensate.
//
// # Cancellation
//
// Cancelling the context passed to [Runner.Run] stops new starts. There is no
// signal delivered to in-flight requests: the executor boundary takes no
// context, and callers that want to stop waiting simply stop reading the
// stream.
//
// # Middleware
//
// Enhance executors with middleware:
//   - [WithLogging]: Log request failures
//   - [WithRetry]: Retry failed attempts with backoff, folded into one Outcome
package runner
