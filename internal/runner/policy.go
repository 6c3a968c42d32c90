package runner

import (
	"sync/atomic"
	"time"
)

// Policy decides whether a worker may start another request.
//
// Allows is a side-effect free peek used before pacing; Reserve is the
// authoritative check made immediately before dispatch.
type Policy interface {
	Allows() bool
	Reserve() bool
}

// CountPolicy hands out a fixed budget of request slots.
type CountPolicy struct {
	remaining atomic.Int64
}

// NewCountPolicy returns a policy that permits exactly n reservations.
func NewCountPolicy(n int) *CountPolicy {
	p := &CountPolicy{}
	if n > 0 {
		p.remaining.Store(int64(n))
	}
	return p
}

func (p *CountPolicy) Allows() bool {
	return p.remaining.Load() > 0
}

// Reserve takes one slot. It never drives the budget below zero.
func (p *CountPolicy) Reserve() bool {
	for {
		cur := p.remaining.Load()
		if cur <= 0 {
			return false
		}
		if p.remaining.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Remaining returns the number of unreserved slots.
func (p *CountPolicy) Remaining() int64 {
	return p.remaining.Load()
}

// DeadlinePolicy permits starts while now - start < duration.
type DeadlinePolicy struct {
	start    time.Time
	duration time.Duration
	now      func() time.Time
}

// NewDeadlinePolicy captures the run start instant once; every worker checks
// against the same reference.
func NewDeadlinePolicy(start time.Time, d time.Duration) *DeadlinePolicy {
	return &DeadlinePolicy{start: start, duration: d, now: time.Now}
}

func (p *DeadlinePolicy) Allows() bool {
	return p.now().Sub(p.start) < p.duration
}

func (p *DeadlinePolicy) Reserve() bool {
	return p.Allows()
}

// Deadline returns the instant after which no request may start.
func (p *DeadlinePolicy) Deadline() time.Time {
	return p.start.Add(p.duration)
}

type allOf []Policy

// AllOf composes policies; a start is permitted only when every policy agrees.
// Reservations are attempted in order, so put side-effect free policies first.
func AllOf(policies ...Policy) Policy {
	flat := make(allOf, 0, len(policies))
	for _, p := range policies {
		if p != nil {
			flat = append(flat, p)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return flat
}

func (a allOf) Allows() bool {
	for _, p := range a {
		if !p.Allows() {
			return false
		}
	}
	return true
}

func (a allOf) Reserve() bool {
	for _, p := range a {
		if !p.Reserve() {
			return false
		}
	}
	return true
}

// unbounded permits every start; the run only ends through context cancellation.
type unbounded struct{}

func (unbounded) Allows() bool  { return true }
func (unbounded) Reserve() bool { return true }
