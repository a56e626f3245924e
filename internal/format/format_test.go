package format

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelativeDate(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"same day", now.Add(-8 * time.Hour), "Today"},
		{"future", now.Add(time.Hour), "Today"},
		{"previous calendar day", time.Date(2024, 6, 14, 23, 59, 0, 0, time.UTC), "Yesterday"},
		{"three days", now.AddDate(0, 0, -3), "3 days ago"},
		{"six days", now.AddDate(0, 0, -6), "6 days ago"},
		{"one week", now.AddDate(0, 0, -7), "1 week ago"},
		{"two weeks", now.AddDate(0, 0, -15), "2 weeks ago"},
		{"one month", now.AddDate(0, 0, -30), "1 month ago"},
		{"five months", now.AddDate(0, 0, -160), "5 months ago"},
		{"one year", now.AddDate(0, 0, -365), "1 year ago"},
		{"three years", now.AddDate(-3, 0, -2), "3 years ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeDate(tt.t, now))
		})
	}
}

func TestRelativeDate_UsesNowLocation(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)
	now := time.Date(2024, 6, 15, 1, 0, 0, 0, berlin)
	// 22:30 UTC on the 14th is 00:30 on the 15th in Berlin.
	commit := time.Date(2024, 6, 14, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, "Today", RelativeDate(commit, now))
}

func TestLongDateAndClock(t *testing.T) {
	ts := time.Date(2024, 6, 1, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, "Saturday, June 1, 2024", LongDate(ts))
	assert.Equal(t, "02:05 PM", Clock(ts))
}

func TestAgo(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "0m ago"},
		{now.Add(-45 * time.Minute), "45m ago"},
		{now.Add(-5 * time.Hour), "5h ago"},
		{now.Add(-50 * time.Hour), "2d ago"},
		{now.Add(-8 * 24 * time.Hour), "Jun 7"},
		{now.Add(time.Minute), "0m ago"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Ago(tt.t, now))
		})
	}
}

func TestScore(t *testing.T) {
	v := 72.46
	nan := math.NaN()
	assert.Equal(t, "72.5", Score(&v))
	assert.Equal(t, Unavailable, Score(nil))
	assert.Equal(t, Unavailable, Score(&nan))
}

func TestImprovement(t *testing.T) {
	up, down, zero := 50.0, -12.4, 0.0
	assert.Equal(t, "+50%", Improvement(&up))
	assert.Equal(t, "-12%", Improvement(&down))
	assert.Equal(t, "0%", Improvement(&zero))
	assert.Equal(t, "0%", Improvement(nil))
}
