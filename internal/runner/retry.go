package runner

import (
	"errors"
	"time"
)

var errNoExecutor = errors.New("executor is not configured")

// FailureLogger logs failed requests.
type FailureLogger interface {
	LogFailure(err error)
}

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	MaxAttempts int                                        // total attempts including initial try
	Delay       time.Duration                              // fixed delay between retries (used if DelayFunc nil)
	ShouldRetry func(error) bool                           // predicate; if nil, all errors retried
	DelayFunc   func(attempt int, err error) time.Duration // dynamic backoff; attempt is 1-based
	Sleep       func(time.Duration)                        // optional injection for tests
}

// retryExecutor wraps an Executor with retry logic. All attempts fold into a
// single Outcome so one reserved slot still yields exactly one Outcome.
type retryExecutor struct {
	inner  Executor
	policy RetryPolicy
}

// WithRetry wraps an Executor with retry capability.
func WithRetry(exec Executor, policy RetryPolicy) Executor {
	if policy.MaxAttempts <= 1 {
		return exec // no retries needed
	}
	if policy.Sleep == nil {
		policy.Sleep = time.Sleep
	}
	return &retryExecutor{
		inner:  exec,
		policy: policy,
	}
}

func (r *retryExecutor) Do() Outcome {
	var first time.Time
	var last Outcome
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		last = r.inner.Do()
		if attempt == 1 {
			first = last.Start
		}
		if last.OK() {
			break
		}

		// Don't delay after the last attempt.
		if attempt < r.policy.MaxAttempts {
			if r.policy.ShouldRetry != nil && !r.policy.ShouldRetry(last.Err) {
				break
			}
			var delay time.Duration
			if r.policy.DelayFunc != nil {
				delay = r.policy.DelayFunc(attempt, last.Err)
			} else {
				delay = r.policy.Delay
			}
			if delay > 0 {
				r.policy.Sleep(delay)
			}
		}
	}
	last.Start = first
	return last
}

// loggingExecutor wraps an Executor with failure logging.
type loggingExecutor struct {
	inner  Executor
	logger FailureLogger
}

// WithLogging wraps an Executor to log failures.
func WithLogging(exec Executor, logger FailureLogger) Executor {
	if logger == nil {
		return exec
	}
	return &loggingExecutor{
		inner:  exec,
		logger: logger,
	}
}

func (l *loggingExecutor) Do() Outcome {
	outcome := l.inner.Do()
	if outcome.Err != nil {
		l.logger.LogFailure(outcome.Err)
	}
	return outcome
}
