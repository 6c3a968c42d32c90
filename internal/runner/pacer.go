package runner

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer delays a single worker's dispatches. Each worker owns its own pacer,
// so waiting never blocks siblings.
type Pacer interface {
	Wait(ctx context.Context) error
}

// PerWorkerInterval is the minimum gap between two dispatch starts of one
// worker: workers / targetRate.
func PerWorkerInterval(targetRate float64, workers int) time.Duration {
	if targetRate <= 0 || workers <= 0 {
		return 0
	}
	return time.Duration(float64(workers) / targetRate * float64(time.Second))
}

// newPacer builds the pacer for one worker. It returns nil when no rate is
// configured; workers then dispatch back-to-back.
func newPacer(opt Options, worker int) Pacer {
	if opt.Rate <= 0 {
		return nil
	}
	perWorker := opt.Rate / float64(opt.Workers)

	switch opt.ArrivalModel {
	case ArrivalModelPoisson:
		var sampler func() float64
		if opt.PoissonSampler != nil {
			sampler = opt.PoissonSampler
		} else {
			seeded := rand.New(rand.NewSource(opt.RandomSeed + int64(worker)))
			sampler = seeded.ExpFloat64
		}
		return &poissonPacer{rate: perWorker, sample: sampler}
	default:
		return &uniformPacer{limiter: opt.LimiterFactory(perWorker)}
	}
}

// uniformPacer spaces dispatches evenly using a burst-1 limiter.
type uniformPacer struct {
	limiter *rate.Limiter
}

func (u *uniformPacer) Wait(ctx context.Context) error {
	if u == nil || u.limiter == nil {
		return nil
	}
	return u.limiter.Wait(ctx)
}

// poissonPacer samples exponential gaps with the same mean as the uniform
// interval, approximating a Poisson arrival process per worker.
type poissonPacer struct {
	mu     sync.Mutex
	rate   float64
	sample func() float64
	last   time.Time
}

func (p *poissonPacer) Wait(ctx context.Context) error {
	delay := p.nextDelay(time.Now())
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// nextDelay returns how long to wait from now so that the gap since the
// previous dispatch matches the sampled inter-arrival time.
func (p *poissonPacer) nextDelay(now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rate <= 0 || p.sample == nil {
		return 0
	}
	if p.last.IsZero() {
		p.last = now
		return 0
	}

	gap := float64(time.Second) * p.sample() / p.rate
	if gap > math.MaxInt64 {
		gap = math.MaxInt64
	}
	next := p.last.Add(time.Duration(gap))
	if next.Before(now) {
		next = now
	}
	p.last = next
	return next.Sub(now)
}
