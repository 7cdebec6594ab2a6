package todo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkTodo(day int, done bool, categoryID string) *Todo {
	return &Todo{
		Title:      "t",
		DueOn:      date(2025, 3, day),
		Done:       done,
		CategoryID: categoryID,
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil, date(2025, 3, 10), 7, nil)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.CompletionPct)
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 0, stats.LongestStreak)
	assert.Len(t, stats.Daily, 7)
	assert.Empty(t, stats.ByCategory)
}

func TestCompletionPct(t *testing.T) {
	todos := []*Todo{
		mkTodo(1, true, ""),
		mkTodo(1, true, ""),
		mkTodo(2, false, ""),
		mkTodo(3, true, ""),
	}
	stats := ComputeStats(todos, date(2025, 3, 3), 3, nil)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Done)
	assert.InDelta(t, 75.0, stats.CompletionPct, 0.001)
}

func TestDailySeries(t *testing.T) {
	todos := []*Todo{
		mkTodo(8, true, ""),
		mkTodo(8, false, ""),
		mkTodo(10, true, ""),
		// Outside the window; ignored.
		mkTodo(1, true, ""),
	}
	series := DailySeries(todos, date(2025, 3, 10), 3, nil)
	require.Len(t, series, 3)

	assert.Equal(t, "2025-03-08", series[0].Date)
	assert.Equal(t, 2, series[0].Scheduled)
	assert.Equal(t, 1, series[0].Done)
	assert.InDelta(t, 50.0, series[0].Pct, 0.001)

	assert.Equal(t, "2025-03-09", series[1].Date)
	assert.Equal(t, 0, series[1].Scheduled)
	assert.Equal(t, 0.0, series[1].Pct)

	assert.Equal(t, "2025-03-10", series[2].Date)
	assert.Equal(t, 1, series[2].Scheduled)
	assert.Equal(t, 1, series[2].Done)
}

func TestDailySeriesZeroDays(t *testing.T) {
	assert.Nil(t, DailySeries(nil, date(2025, 3, 10), 0, nil))
}

func TestStreaks(t *testing.T) {
	// Day 1: complete. Day 2: complete. Day 3: nothing scheduled (skipped).
	// Day 4: incomplete. Day 5: complete. Day 6 (today): complete.
	todos := []*Todo{
		mkTodo(1, true, ""),
		mkTodo(2, true, ""),
		mkTodo(2, true, ""),
		mkTodo(4, false, ""),
		mkTodo(5, true, ""),
		mkTodo(6, true, ""),
	}
	current, longest := Streaks(todos, date(2025, 3, 6), nil)
	assert.Equal(t, 2, current, "days 5 and 6, broken by day 4")
	assert.Equal(t, 2, longest, "days 1-2 (day 3 skipped, day 4 breaks)")
}

func TestStreaksGapDaysDoNotBreak(t *testing.T) {
	todos := []*Todo{
		mkTodo(1, true, ""),
		mkTodo(3, true, ""), // day 2 has nothing scheduled
		mkTodo(5, true, ""),
	}
	current, longest := Streaks(todos, date(2025, 3, 5), nil)
	assert.Equal(t, 3, current)
	assert.Equal(t, 3, longest)
}

func TestStreaksEmpty(t *testing.T) {
	current, longest := Streaks(nil, date(2025, 3, 5), nil)
	assert.Equal(t, 0, current)
	assert.Equal(t, 0, longest)
}

func TestCategoryBreakdown(t *testing.T) {
	todos := []*Todo{
		mkTodo(1, true, "work"),
		mkTodo(2, false, "work"),
		mkTodo(3, true, ""),
	}
	counts := CategoryBreakdown(todos)
	require.Len(t, counts, 2)

	assert.Equal(t, "work", counts[0].CategoryID)
	assert.Equal(t, 2, counts[0].Scheduled)
	assert.Equal(t, 1, counts[0].Done)
	assert.InDelta(t, 50.0, counts[0].Pct, 0.001)

	assert.Equal(t, "", counts[1].CategoryID)
	assert.InDelta(t, 100.0, counts[1].Pct, 0.001)
}

func TestStreaksTimezoneBucketing(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	// Due on 2025-03-01 UTC midnight, which is 09:00 the same day in JST.
	todos := []*Todo{mkTodo(1, true, "")}
	current, _ := Streaks(todos, time.Date(2025, 3, 1, 23, 0, 0, 0, jst), jst)
	assert.Equal(t, 1, current)
}
