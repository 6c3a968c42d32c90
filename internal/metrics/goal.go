package metrics

import "time"

// Goal is the stop condition a live view measures progress against. When
// Duration is set it takes priority over Requests.
type Goal struct {
	Requests int64
	Duration time.Duration
}

// Fraction returns how far stats are toward the goal, clamped to [0, 1].
// A goal with neither field set reports 0.
func (g Goal) Fraction(stats Stats) float64 {
	var f float64
	switch {
	case g.Duration > 0:
		f = float64(stats.Elapsed) / float64(g.Duration)
	case g.Requests > 0:
		f = float64(stats.Total) / float64(g.Requests)
	default:
		return 0
	}
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}
