package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "75.0%", FormatPercentage(75))
	assert.Equal(t, "0.0%", FormatPercentage(0))
	assert.Equal(t, "33.3%", FormatPercentage(33.333))
}

func TestFormatStreak(t *testing.T) {
	assert.Equal(t, "0d", FormatStreak(0))
	assert.Equal(t, "14d", FormatStreak(14))
}

func TestFormatFraction(t *testing.T) {
	assert.Equal(t, "9/12", FormatFraction(9, 12))
	assert.Equal(t, "0/0", FormatFraction(0, 0))
}

func TestFormatAccuracy(t *testing.T) {
	assert.Equal(t, "83.3% (25 answered)", FormatAccuracy(83.3, 25))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "3 of 10 left", FormatRemaining(3, 10))
}
