package runner

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCountPolicyFailsClosedAtZero(t *testing.T) {
	p := NewCountPolicy(2)
	if !p.Reserve() || !p.Reserve() {
		t.Fatal("expected two successful reservations")
	}
	if p.Reserve() {
		t.Fatal("expected reservation to fail once the budget is spent")
	}
	if p.Allows() {
		t.Fatal("Allows() = true with empty budget")
	}
	if got := p.Remaining(); got != 0 {
		t.Fatalf("Remaining() = %d, want 0", got)
	}
}

func TestCountPolicyConcurrentReservationsAreExact(t *testing.T) {
	const budget = 1000
	p := NewCountPolicy(budget)

	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p.Reserve() {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if granted.Load() != budget {
		t.Fatalf("granted %d reservations, want %d", granted.Load(), budget)
	}
	if p.Remaining() != 0 {
		t.Fatalf("budget went to %d, want 0", p.Remaining())
	}
}

func TestCountPolicyNonPositiveBudget(t *testing.T) {
	for _, n := range []int{0, -3} {
		if NewCountPolicy(n).Reserve() {
			t.Errorf("NewCountPolicy(%d).Reserve() = true", n)
		}
	}
}

func TestDeadlinePolicyUsesSharedStart(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	now := start
	p := NewDeadlinePolicy(start, 10*time.Second)
	p.now = func() time.Time { return now }

	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"at start", 0, true},
		{"just before", 10*time.Second - time.Nanosecond, true},
		{"at deadline", 10 * time.Second, false},
		{"after deadline", 11 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = start.Add(tt.elapsed)
			if got := p.Reserve(); got != tt.want {
				t.Errorf("Reserve() = %v, want %v", got, tt.want)
			}
			if got := p.Allows(); got != tt.want {
				t.Errorf("Allows() = %v, want %v", got, tt.want)
			}
		})
	}

	if !p.Deadline().Equal(start.Add(10 * time.Second)) {
		t.Errorf("Deadline() = %s", p.Deadline())
	}
}

func TestAllOfRequiresEveryPolicy(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	now := start
	deadline := NewDeadlinePolicy(start, time.Second)
	deadline.now = func() time.Time { return now }
	count := NewCountPolicy(3)

	p := AllOf(deadline, count)
	if !p.Reserve() {
		t.Fatal("expected first reservation to pass")
	}

	now = start.Add(2 * time.Second)
	if p.Reserve() {
		t.Fatal("expected expired deadline to block reservation")
	}
	if count.Remaining() != 2 {
		t.Fatalf("expired deadline must not consume count budget, remaining=%d", count.Remaining())
	}
}

func TestAllOfSinglePolicyUnwraps(t *testing.T) {
	count := NewCountPolicy(1)
	if got := AllOf(nil, count); got != Policy(count) {
		t.Fatalf("AllOf with one policy should return it unchanged")
	}
}
