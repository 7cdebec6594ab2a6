package big3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateLevels(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		squat   Level
		bench   Level
		dead    Level
		overall Level
	}{
		{
			name:    "untrained",
			in:      Input{Sex: Male, Bodyweight: 70, Squat: 40, Bench: 30, Deadlift: 50},
			squat:   Untrained,
			bench:   Untrained,
			dead:    Untrained,
			overall: Untrained,
		},
		{
			name:    "intermediate male",
			in:      Input{Sex: Male, Bodyweight: 70, Squat: 90, Bench: 70, Deadlift: 110},
			squat:   Intermediate,
			bench:   Intermediate,
			dead:    Intermediate,
			overall: Intermediate,
		},
		{
			// Total 385 at 70 kg is a 5.5 ratio, past the 5.15
			// advanced total threshold despite the weak bench.
			name:    "overall graded on total not weakest lift",
			in:      Input{Sex: Male, Bodyweight: 70, Squat: 160, Bench: 45, Deadlift: 180},
			squat:   Elite,
			bench:   Beginner,
			dead:    Elite,
			overall: Advanced,
		},
		{
			name:    "female thresholds",
			in:      Input{Sex: Female, Bodyweight: 55, Squat: 50, Bench: 28, Deadlift: 55},
			squat:   Novice,
			bench:   Novice,
			dead:    Novice,
			overall: Novice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Calculate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.squat, res.Squat.Level, "squat")
			assert.Equal(t, tt.bench, res.Bench.Level, "bench")
			assert.Equal(t, tt.dead, res.Deadlift.Level, "deadlift")
			assert.Equal(t, tt.overall, res.Overall, "overall")
			assert.InDelta(t, tt.in.Squat+tt.in.Bench+tt.in.Deadlift, res.Total, 0.001)
		})
	}
}

func TestOverallFollowsTotal(t *testing.T) {
	// Two elite lifts and a zero bench still carry a 4.75 total ratio.
	strong, err := Calculate(Input{Sex: Male, Bodyweight: 80, Squat: 180, Bench: 0, Deadlift: 200})
	require.NoError(t, err)
	assert.Equal(t, Elite, strong.Squat.Level)
	assert.Equal(t, Untrained, strong.Bench.Level)
	assert.Equal(t, Intermediate, strong.Overall, "total 380 at 80 kg clears the 3.75 intermediate total ratio")

	weak, err := Calculate(Input{Sex: Male, Bodyweight: 80, Squat: 60, Bench: 40, Deadlift: 60})
	require.NoError(t, err)
	assert.Equal(t, Untrained, weak.Overall, "total 160 at 80 kg is below the 2.35 beginner total ratio")

	assert.NotEqual(t, strong.Overall, weak.Overall)
}

func TestCalculateExactThreshold(t *testing.T) {
	// Exactly at a threshold grades into the level.
	res, err := Calculate(Input{Sex: Male, Bodyweight: 80, Squat: 60, Bench: 0, Deadlift: 0})
	require.NoError(t, err)
	assert.Equal(t, Beginner, res.Squat.Level, "0.75 ratio exactly")
}

func TestNextLevelAt(t *testing.T) {
	res, err := Calculate(Input{Sex: Male, Bodyweight: 100, Squat: 80, Bench: 0, Deadlift: 0})
	require.NoError(t, err)
	assert.Equal(t, Beginner, res.Squat.Level)
	assert.InDelta(t, 100.0, res.Squat.NextLevelAt, 0.001, "novice at 1.00 ratio")

	res, err = Calculate(Input{Sex: Male, Bodyweight: 100, Squat: 240, Bench: 0, Deadlift: 0})
	require.NoError(t, err)
	assert.Equal(t, Elite, res.Squat.Level)
	assert.Equal(t, 0.0, res.Squat.NextLevelAt, "no next level at elite")
}

func TestValidate(t *testing.T) {
	_, err := Calculate(Input{Sex: "other", Bodyweight: 70})
	assert.ErrorContains(t, err, "sex must be")

	_, err = Calculate(Input{Sex: Male, Bodyweight: 0})
	assert.ErrorContains(t, err, "bodyweight")

	_, err = Calculate(Input{Sex: Male, Bodyweight: 70, Squat: -1})
	assert.ErrorContains(t, err, "squat")
}
