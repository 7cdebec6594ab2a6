// Package big3 implements the lift-level calculator: it grades squat,
// bench press, and deadlift maxes against bodyweight-ratio thresholds.
package big3

import (
	"fmt"
)

// Lift identifies one of the three lifts.
type Lift string

const (
	Squat    Lift = "squat"
	Bench    Lift = "bench"
	Deadlift Lift = "deadlift"
)

// Sex selects the threshold table.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// Level is a graded strength standard.
type Level string

const (
	Untrained    Level = "untrained"
	Beginner     Level = "beginner"
	Novice       Level = "novice"
	Intermediate Level = "intermediate"
	Advanced     Level = "advanced"
	Elite        Level = "elite"
)

// levelOrder is ascending.
var levelOrder = []Level{Untrained, Beginner, Novice, Intermediate, Advanced, Elite}

// ratioThresholds maps each lift to the minimum lift/bodyweight ratio per
// level, from Beginner upward (anything below Beginner is Untrained).
// Values follow common strength-standard tables.
var ratioThresholds = map[Sex]map[Lift][]float64{
	Male: {
		Squat:    {0.75, 1.00, 1.25, 1.75, 2.25},
		Bench:    {0.60, 0.80, 1.00, 1.40, 1.75},
		Deadlift: {1.00, 1.25, 1.50, 2.00, 2.50},
	},
	Female: {
		Squat:    {0.50, 0.75, 1.00, 1.40, 1.75},
		Bench:    {0.35, 0.50, 0.70, 1.00, 1.25},
		Deadlift: {0.60, 0.90, 1.10, 1.60, 2.00},
	},
}

// Input is one lifter's maxes in kilograms.
type Input struct {
	Sex        Sex     `json:"sex"`
	Bodyweight float64 `json:"bodyweight"`
	Squat      float64 `json:"squat"`
	Bench      float64 `json:"bench"`
	Deadlift   float64 `json:"deadlift"`
}

// Validate checks the input ranges.
func (in *Input) Validate() error {
	if in.Sex != Male && in.Sex != Female {
		return fmt.Errorf("sex must be %q or %q, got %q", Male, Female, in.Sex)
	}
	if in.Bodyweight <= 0 {
		return fmt.Errorf("bodyweight must be > 0, got %g", in.Bodyweight)
	}
	for lift, v := range map[Lift]float64{Squat: in.Squat, Bench: in.Bench, Deadlift: in.Deadlift} {
		if v < 0 {
			return fmt.Errorf("%s must be >= 0, got %g", lift, v)
		}
	}
	return nil
}

// Result grades each lift and the total.
type Result struct {
	Squat    LiftResult `json:"squat"`
	Bench    LiftResult `json:"bench"`
	Deadlift LiftResult `json:"deadlift"`
	Total    float64    `json:"total"`
	Overall  Level      `json:"overall"`
}

// LiftResult is one lift's grade.
type LiftResult struct {
	Weight float64 `json:"weight"`
	Ratio  float64 `json:"ratio"`
	Level  Level   `json:"level"`
	// NextLevelAt is the weight needed for the next level, 0 at Elite.
	NextLevelAt float64 `json:"next_level_at,omitempty"`
}

// Calculate grades the input against the threshold tables.
func Calculate(in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("validating input: %w", err)
	}

	res := &Result{
		Squat:    gradeLift(in.Sex, Squat, in.Squat, in.Bodyweight),
		Bench:    gradeLift(in.Sex, Bench, in.Bench, in.Bodyweight),
		Deadlift: gradeLift(in.Sex, Deadlift, in.Deadlift, in.Bodyweight),
		Total:    in.Squat + in.Bench + in.Deadlift,
	}
	res.Overall = gradeTotal(in.Sex, res.Total, in.Bodyweight)
	return res, nil
}

func gradeLift(sex Sex, lift Lift, weight, bodyweight float64) LiftResult {
	thresholds := ratioThresholds[sex][lift]
	ratio := weight / bodyweight

	level := Untrained
	for i, min := range thresholds {
		if ratio >= min {
			level = levelOrder[i+1]
		}
	}

	result := LiftResult{Weight: weight, Ratio: ratio, Level: level}
	if level != Elite {
		next := levelIndex(level) // next threshold index equals current level's index
		result.NextLevelAt = thresholds[next] * bodyweight
	}
	return result
}

// gradeTotal grades the combined total against per-level total ratios.
// Each level's total threshold is the sum of that level's three lift
// thresholds, keeping the total grade consistent with the lift tables.
func gradeTotal(sex Sex, total, bodyweight float64) Level {
	table := ratioThresholds[sex]
	ratio := total / bodyweight

	level := Untrained
	for i := range table[Squat] {
		min := table[Squat][i] + table[Bench][i] + table[Deadlift][i]
		if ratio >= min {
			level = levelOrder[i+1]
		}
	}
	return level
}

func levelIndex(l Level) int {
	for i, candidate := range levelOrder {
		if candidate == l {
			return i
		}
	}
	return 0
}
