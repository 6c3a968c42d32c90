package metrics

import (
	"testing"
	"time"
)

func TestGoalFraction(t *testing.T) {
	tests := []struct {
		name  string
		goal  Goal
		stats Stats
		want  float64
	}{
		{"count", Goal{Requests: 200}, Stats{Total: 50}, 0.25},
		{"count done", Goal{Requests: 200}, Stats{Total: 200}, 1},
		{"duration", Goal{Duration: 10 * time.Second}, Stats{Elapsed: 5 * time.Second, Total: 3}, 0.5},
		{"duration wins over count", Goal{Requests: 10, Duration: 4 * time.Second}, Stats{Elapsed: time.Second, Total: 10}, 0.25},
		{"overshoot clamps", Goal{Duration: time.Second}, Stats{Elapsed: 2 * time.Second}, 1},
		{"no goal", Goal{}, Stats{Total: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.goal.Fraction(tt.stats); got != tt.want {
				t.Errorf("Fraction() = %v, want %v", got, tt.want)
			}
		})
	}
}
