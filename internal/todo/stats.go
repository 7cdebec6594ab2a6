package todo

import (
	"time"
)

// Stats is the aggregate view rendered by the tracker dashboards. All
// fields are derived from in-memory todo slices; nothing here touches the
// store.
type Stats struct {
	Total         int             `json:"total"`
	Done          int             `json:"done"`
	CompletionPct float64         `json:"completion_pct"`
	CurrentStreak int             `json:"current_streak"`
	LongestStreak int             `json:"longest_streak"`
	Daily         []DailyCount    `json:"daily"`
	ByCategory    []CategoryCount `json:"by_category"`
}

// DailyCount is one day's scheduled/done counts, for chart series.
type DailyCount struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	Scheduled int     `json:"scheduled"`
	Done      int     `json:"done"`
	Pct       float64 `json:"pct"`
}

// CategoryCount is per-category completion.
type CategoryCount struct {
	CategoryID string  `json:"category_id"`
	Scheduled  int     `json:"scheduled"`
	Done       int     `json:"done"`
	Pct        float64 `json:"pct"`
}

// ComputeStats derives the full aggregate view from todos. The daily
// series covers the `days` calendar days ending at `now`, bucketed in loc
// (nil means UTC). Empty input yields zero-valued stats.
func ComputeStats(todos []*Todo, now time.Time, days int, loc *time.Location) Stats {
	if loc == nil {
		loc = time.UTC
	}

	stats := Stats{
		Total: len(todos),
		Done:  countDone(todos),
	}
	stats.CompletionPct = pct(stats.Done, stats.Total)
	stats.Daily = DailySeries(todos, now, days, loc)
	stats.CurrentStreak, stats.LongestStreak = Streaks(todos, now, loc)
	stats.ByCategory = CategoryBreakdown(todos)
	return stats
}

// DailySeries returns scheduled/done counts for the `days` calendar days
// ending at now, oldest first.
func DailySeries(todos []*Todo, now time.Time, days int, loc *time.Location) []DailyCount {
	if days <= 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	type bucket struct{ scheduled, done int }
	buckets := make(map[string]*bucket, days)

	series := make([]DailyCount, 0, days)
	day := now.In(loc).AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		key := dayKey(day, loc)
		buckets[key] = &bucket{}
		series = append(series, DailyCount{Date: key})
		day = day.AddDate(0, 0, 1)
	}

	for _, t := range todos {
		key := dayKey(t.DueOn, loc)
		b, ok := buckets[key]
		if !ok {
			continue
		}
		b.scheduled++
		if t.Done {
			b.done++
		}
	}

	for i := range series {
		b := buckets[series[i].Date]
		series[i].Scheduled = b.scheduled
		series[i].Done = b.done
		series[i].Pct = pct(b.done, b.scheduled)
	}
	return series
}

// Streaks returns the current and longest streak of fully-completed days.
// A day counts toward a streak when everything scheduled on it is done;
// days with nothing scheduled are skipped (they neither extend nor break a
// streak). The current streak is counted backwards from now.
func Streaks(todos []*Todo, now time.Time, loc *time.Location) (current, longest int) {
	if loc == nil {
		loc = time.UTC
	}
	if len(todos) == 0 {
		return 0, 0
	}

	type bucket struct{ scheduled, done int }
	buckets := make(map[string]*bucket)
	var firstDay, lastDay time.Time
	for _, t := range todos {
		key := dayKey(t.DueOn, loc)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.scheduled++
		if t.Done {
			b.done++
		}
		d := t.DueOn
		if firstDay.IsZero() || d.Before(firstDay) {
			firstDay = d
		}
		if d.After(lastDay) {
			lastDay = d
		}
	}

	// Longest: walk every day from first to last scheduled day.
	run := 0
	for day := firstDay.In(loc); !day.After(lastDay.In(loc).AddDate(0, 0, 1)); day = day.AddDate(0, 0, 1) {
		b, ok := buckets[dayKey(day, loc)]
		if !ok {
			continue // nothing scheduled, streak unaffected
		}
		if b.done == b.scheduled {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}

	// Current: walk backwards from today until a broken day.
	for day := now.In(loc); !day.Before(firstDay.In(loc).AddDate(0, 0, -1)); day = day.AddDate(0, 0, -1) {
		b, ok := buckets[dayKey(day, loc)]
		if !ok {
			continue
		}
		if b.done == b.scheduled {
			current++
		} else {
			break
		}
	}
	return current, longest
}

// CategoryBreakdown returns per-category scheduled/done counts. Todos
// without a category are grouped under an empty category ID.
func CategoryBreakdown(todos []*Todo) []CategoryCount {
	type bucket struct{ scheduled, done int }
	buckets := make(map[string]*bucket)
	var order []string

	for _, t := range todos {
		b, ok := buckets[t.CategoryID]
		if !ok {
			b = &bucket{}
			buckets[t.CategoryID] = b
			order = append(order, t.CategoryID)
		}
		b.scheduled++
		if t.Done {
			b.done++
		}
	}

	out := make([]CategoryCount, 0, len(order))
	for _, id := range order {
		b := buckets[id]
		out = append(out, CategoryCount{
			CategoryID: id,
			Scheduled:  b.scheduled,
			Done:       b.done,
			Pct:        pct(b.done, b.scheduled),
		})
	}
	return out
}

func countDone(todos []*Todo) int {
	n := 0
	for _, t := range todos {
		if t.Done {
			n++
		}
	}
	return n
}

func pct(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
