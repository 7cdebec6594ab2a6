package quiz

import (
	"time"
)

// Policy is the spaced-repetition review policy: a fixed ladder of review
// intervals in days. An "understood" answer climbs one rung (capped at the
// top); "not understood" resets to the first rung. Simpler than full
// SM-2, there is no ease factor, just the ladder.
type Policy struct {
	intervalDays []int
}

// NewPolicy creates a policy from the interval ladder. The ladder must be
// non-empty and strictly increasing; config validation enforces that.
func NewPolicy(intervalDays []int) *Policy {
	ladder := make([]int, len(intervalDays))
	copy(ladder, intervalDays)
	return &Policy{intervalDays: ladder}
}

// DefaultPolicy returns the standard ladder: 1, 3, 7, 14, 30, 60 days.
func DefaultPolicy() *Policy {
	return NewPolicy([]int{1, 3, 7, 14, 30, 60})
}

// Review applies one review result to progress in place. The repetition
// counter always increments; the rung climbs or resets; the next review is
// scheduled at now + the new rung's interval.
func (p *Policy) Review(prog *Progress, understood bool, now time.Time) {
	prog.Repetition++
	prog.Answered++
	prog.Understood = understood

	if understood {
		prog.Correct++
		if prog.Rung < len(p.intervalDays)-1 {
			prog.Rung++
		}
	} else {
		prog.Rung = 0
	}

	last := now
	next := now.AddDate(0, 0, p.intervalDays[prog.Rung])
	prog.LastReview = &last
	prog.NextReview = &next
}

// Mastered reports whether progress sits at the top rung with the last
// review understood.
func (p *Policy) Mastered(prog *Progress) bool {
	return prog.Understood && prog.Rung == len(p.intervalDays)-1
}

// FirstInterval returns the first rung's interval. New questions are due
// immediately, so this only matters after the first review.
func (p *Policy) FirstInterval() time.Duration {
	return time.Duration(p.intervalDays[0]) * 24 * time.Hour
}
