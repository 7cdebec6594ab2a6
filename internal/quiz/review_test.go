package quiz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewClimbsLadder(t *testing.T) {
	p := DefaultPolicy()
	prog := &Progress{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	wantIntervals := []int{3, 7, 14, 30, 60, 60, 60} // first understood climbs to rung 1
	for i, days := range wantIntervals {
		p.Review(prog, true, now)
		require.NotNil(t, prog.NextReview)
		assert.Equal(t, now.AddDate(0, 0, days), *prog.NextReview, "review %d", i+1)
		assert.Equal(t, i+1, prog.Repetition)
	}
	assert.Equal(t, 5, prog.Rung, "capped at top rung")
	assert.True(t, p.Mastered(prog))
}

func TestReviewResetOnNotUnderstood(t *testing.T) {
	p := DefaultPolicy()
	prog := &Progress{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	p.Review(prog, true, now)
	p.Review(prog, true, now)
	assert.Equal(t, 2, prog.Rung)

	p.Review(prog, false, now)
	assert.Equal(t, 0, prog.Rung, "reset is total")
	assert.Equal(t, 3, prog.Repetition, "repetition still increments")
	assert.Equal(t, 3, prog.Answered)
	assert.Equal(t, 2, prog.Correct)
	assert.False(t, prog.Understood)
	assert.False(t, p.Mastered(prog))
	require.NotNil(t, prog.NextReview)
	assert.Equal(t, now.AddDate(0, 0, 1), *prog.NextReview, "back to the first rung's interval")
}

func TestCustomLadder(t *testing.T) {
	p := NewPolicy([]int{2, 5})
	prog := &Progress{}
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	p.Review(prog, true, now)
	assert.Equal(t, now.AddDate(0, 0, 5), *prog.NextReview)

	p.Review(prog, true, now)
	assert.Equal(t, 1, prog.Rung, "two-rung ladder caps at 1")
	assert.True(t, p.Mastered(prog))
}

func TestFirstInterval(t *testing.T) {
	assert.Equal(t, 24*time.Hour, DefaultPolicy().FirstInterval())
}
