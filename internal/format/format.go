// Package format renders dates, scores and percentages for terminal output.
package format

import (
	"fmt"
	"math"
	"time"
)

const (
	LongDateLayout = "Monday, January 2, 2006"
	ClockLayout    = "03:04 PM"
	ShortDayLayout = "Jan 2"

	// Unavailable is shown in place of a missing score.
	Unavailable = "N/A"
)

// RelativeDate labels t relative to now in whole calendar days: "Today",
// "Yesterday", then days, weeks, months and years ago.
func RelativeDate(t, now time.Time) string {
	days := calendarDays(t, now)

	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return plural(days/7, "week")
	case days < 365:
		return plural(days/30, "month")
	default:
		return plural(days/365, "year")
	}
}

// calendarDays counts midnights between t and now in now's location.
func calendarDays(t, now time.Time) int {
	t = t.In(now.Location())
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	from := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	to := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// LongDate formats t like "Monday, January 2, 2006".
func LongDate(t time.Time) string {
	return t.Format(LongDateLayout)
}

// Clock formats t like "03:04 PM".
func Clock(t time.Time) string {
	return t.Format(ClockLayout)
}

// Ago is the compact age used in listings: minutes, hours and days up to a
// week, then the short date.
func Ago(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", max(int(d.Minutes()), 0))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format(ShortDayLayout)
	}
}

// Score renders a score with one decimal, or "N/A" when missing.
func Score(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Unavailable
	}
	return fmt.Sprintf("%.1f", *v)
}

// Improvement renders a signed whole percentage, or "0%" when missing.
func Improvement(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "0%"
	}
	return Percent(*v)
}

// Percent renders v as a signed whole percentage.
func Percent(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.0f%%", v)
	}
	return fmt.Sprintf("%.0f%%", v)
}
