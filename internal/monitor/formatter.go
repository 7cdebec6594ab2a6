package monitor

import "fmt"

// FormatPercentage formats a 0-100 value as "X.X%"
func FormatPercentage(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatStreak formats a day count as "Xd"
func FormatStreak(days int) string {
	return fmt.Sprintf("%dd", days)
}

// FormatFraction formats "done/total"
func FormatFraction(done, total int) string {
	return fmt.Sprintf("%d/%d", done, total)
}

// FormatAccuracy formats quiz accuracy with the sample size, e.g.
// "83.3% (25 answered)"
func FormatAccuracy(pct float64, answered int) string {
	return fmt.Sprintf("%.1f%% (%d answered)", pct, answered)
}

// FormatRemaining formats ticket remaining uses as "X of Y left"
func FormatRemaining(remaining, total int) string {
	return fmt.Sprintf("%d of %d left", remaining, total)
}
