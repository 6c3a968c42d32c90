package runner

import (
	"time"

	"golang.org/x/time/rate"
)

// Executor performs one request and reports its outcome. Ordinary request
// failures belong in Outcome.Err; Do must not panic for them. The runner
// moves Outcome.Start back to the instant the slot was reserved when the
// executor stamped a later one.
type Executor interface {
	Do() Outcome
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func() Outcome

func (f ExecutorFunc) Do() Outcome { return f() }

// ArrivalModel selects how a configured rate is turned into dispatch gaps.
type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// Options configure the Runner. At least one of Total or Duration should be
// set; with neither, the run ends only when the context is cancelled.
type Options struct {
	Workers        int                                   // concurrent workers, >= 1
	Total          int                                   // request budget (0 means no count limit)
	Duration       time.Duration                         // start deadline relative to run start (0 means none)
	Rate           float64                               // aggregate requests per second ceiling (0 means unlimited)
	ArrivalModel   ArrivalModel                          // pacing shape when Rate > 0
	RandomSeed     int64                                 // seeds poisson sampling
	PoissonSampler func() float64                        // optional injection for tests
	LimiterFactory func(perWorker float64) *rate.Limiter // optional injection for tests
	Executor       Executor                              // request executor (required)
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Total < 0 {
		o.Total = 0
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	if o.Rate < 0 {
		o.Rate = 0
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(perWorker float64) *rate.Limiter {
			if perWorker <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst 1 keeps each worker's dispatches at least one interval apart.
			return rate.NewLimiter(rate.Limit(perWorker), 1)
		}
	}
}
