package analytics_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/limbo/habitsync/internal/analytics"
	"github.com/limbo/habitsync/pkg/datekey"
	"github.com/limbo/habitsync/pkg/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = datekey.UTC()

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func habitDoneOn(id entity.HabitID, days ...string) entity.Habit {
	h := entity.Habit{ID: id, Name: "habit " + string(id), Goal: 100, Completions: map[datekey.Key]bool{}}
	for _, d := range days {
		h.Completions[datekey.Key(d)] = true
	}
	return h
}

func TestRate(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		Desc     string
		Part     int
		Total    int
		Expected int
	}{
		{Desc: "three of five", Part: 3, Total: 5, Expected: 60},
		{Desc: "no habits", Part: 0, Total: 0, Expected: 0},
		{Desc: "no habits ignores part", Part: 4, Total: 0, Expected: 0},
		{Desc: "24 of 30 days", Part: 24, Total: 30, Expected: 80},
		{Desc: "half rounds up", Part: 1, Total: 8, Expected: 13},
		{Desc: "one third rounds down", Part: 1, Total: 3, Expected: 33},
		{Desc: "two thirds rounds up", Part: 2, Total: 3, Expected: 67},
		{Desc: "all", Part: 7, Total: 7, Expected: 100},
	}
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			assert.Equal(t, tc.Expected, analytics.Rate(tc.Part, tc.Total))
		})
	}
}

func TestTierFor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, analytics.TierHigh, analytics.TierFor(80))
	assert.Equal(t, analytics.TierHigh, analytics.TierFor(100))
	assert.Equal(t, analytics.TierMedium, analytics.TierFor(50))
	assert.Equal(t, analytics.TierMedium, analytics.TierFor(79))
	assert.Equal(t, analytics.TierLow, analytics.TierFor(49))
	assert.Equal(t, analytics.TierLow, analytics.TierFor(0))
}

func TestDailyStats(t *testing.T) {
	t.Parallel()
	habits := []entity.Habit{
		habitDoneOn("1", "2025-10-01", "2025-10-02"),
		habitDoneOn("2", "2025-10-01"),
		habitDoneOn("3", "2025-10-01", "2025-09-30"),
		habitDoneOn("4"),
		habitDoneOn("5"),
	}
	dates := keys.EnumerateMonth(2025, time.October)
	stats := analytics.DailyStats(habits, dates, keys)
	require.Len(t, stats, 31)

	assert.Equal(t, analytics.DayStat{Date: "2025-10-01", Day: 1, Completed: 3, NotDone: 2, Rate: 60}, stats[0])
	assert.Equal(t, analytics.DayStat{Date: "2025-10-02", Day: 2, Completed: 1, NotDone: 4, Rate: 20}, stats[1])
	assert.Equal(t, analytics.DayStat{Date: "2025-10-31", Day: 31, Completed: 0, NotDone: 5, Rate: 0}, stats[30])

	t.Run("no habits", func(t *testing.T) {
		empty := analytics.DailyStats(nil, dates, keys)
		require.Len(t, empty, 31)
		for _, d := range empty {
			assert.Equal(t, 0, d.Rate)
			assert.Equal(t, 0, d.NotDone)
		}
	})
	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, stats, analytics.DailyStats(habits, dates, keys))
	})
}

func TestHabitMonthlyStats(t *testing.T) {
	t.Parallel()
	dates := keys.EnumerateMonth(2025, time.September)
	days := make([]string, 0, 24)
	for d := 1; d <= 24; d++ {
		days = append(days, fmt.Sprintf("2025-09-%02d", d))
	}
	h := habitDoneOn("x", append(days, "2025-10-01", "2025-08-31")...)
	stat := analytics.HabitMonthlyStats(h, dates, keys)
	assert.Equal(t, 30, stat.DaysInWindow)
	assert.Equal(t, 24, stat.Done)
	assert.Equal(t, 80, stat.Percentage)
	assert.Equal(t, analytics.TierHigh, stat.Tier)

	empty := analytics.HabitMonthlyStats(h, nil, keys)
	assert.Equal(t, 0, empty.DaysInWindow)
	assert.Equal(t, 0, empty.Percentage)
	assert.Equal(t, analytics.TierLow, empty.Tier)
}

func TestDeletedHabitDropsOut(t *testing.T) {
	t.Parallel()
	dates := keys.EnumerateMonth(2025, time.October)
	habits := []entity.Habit{habitDoneOn("1", "2025-10-05"), habitDoneOn("2", "2025-10-05")}
	before := analytics.DailyStats(habits, dates, keys)
	assert.Equal(t, 2, before[4].Completed)

	after := analytics.DailyStats(habits[1:], dates, keys)
	assert.Equal(t, 1, after[4].Completed)
	assert.Equal(t, 100, after[4].Rate)
	stats := analytics.AllHabitStats(habits[1:], dates, keys)
	require.Len(t, stats, 1)
	assert.Equal(t, entity.HabitID("2"), stats[0].HabitID)
}

func TestMetricStats(t *testing.T) {
	t.Parallel()
	dates := []time.Time{
		keys.Date(2025, time.October, 1),
		keys.Date(2025, time.October, 2),
		keys.Date(2025, time.October, 3),
		keys.Date(2025, time.October, 4),
		keys.Date(2025, time.October, 5),
	}
	metrics := map[datekey.Key]entity.DailyMetrics{
		"2025-10-01": {SleepHours: floatPtr(6)},
		"2025-10-03": {SleepHours: floatPtr(8)},
		"2025-11-01": {SleepHours: floatPtr(12), Mood: intPtr(5)},
	}
	sleep := analytics.SleepStats(metrics, dates, keys)
	assert.Equal(t, 7.0, sleep.AverageHours)
	assert.Equal(t, 2, sleep.LoggedDays)
	assert.Equal(t, 0, analytics.MoodStats(metrics, dates, keys).LoggedDays)

	t.Run("rounded to one decimal", func(t *testing.T) {
		m := map[datekey.Key]entity.DailyMetrics{
			"2025-10-01": {SleepHours: floatPtr(7)},
			"2025-10-02": {SleepHours: floatPtr(7)},
			"2025-10-03": {SleepHours: floatPtr(8)},
		}
		assert.Equal(t, 7.3, analytics.SleepStats(m, dates, keys).AverageHours)
	})
	t.Run("no sleep logged", func(t *testing.T) {
		s := analytics.SleepStats(nil, dates, keys)
		assert.Equal(t, 0.0, s.AverageHours)
		assert.Equal(t, 0, s.LoggedDays)
	})
	t.Run("zero hours counts as logged", func(t *testing.T) {
		m := map[datekey.Key]entity.DailyMetrics{
			"2025-10-01": {SleepHours: floatPtr(0)},
			"2025-10-02": {SleepHours: floatPtr(8)},
		}
		s := analytics.SleepStats(m, dates, keys)
		assert.Equal(t, 4.0, s.AverageHours)
		assert.Equal(t, 2, s.LoggedDays)
	})
	t.Run("mood logged days", func(t *testing.T) {
		m := map[datekey.Key]entity.DailyMetrics{
			"2025-10-01": {Mood: intPtr(1)},
			"2025-10-04": {Mood: intPtr(5), SleepHours: floatPtr(6)},
		}
		assert.Equal(t, 2, analytics.MoodStats(m, dates, keys).LoggedDays)
		mood := analytics.MetricStats(analytics.MetricMood, m, dates, keys)
		assert.Equal(t, "Logged", mood.Label)
		assert.Equal(t, 2.0, mood.Value)
		sleep := analytics.MetricStats(analytics.MetricSleep, m, dates, keys)
		assert.Equal(t, "Avg Hrs", sleep.Label)
		assert.Equal(t, 6.0, sleep.Value)
		other := analytics.MetricStats("steps", m, dates, keys)
		assert.Equal(t, "-", other.Label)
		assert.Equal(t, 0.0, other.Value)
	})
}

func TestTodaySnapshot(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, time.October, 18, 15, 0, 0, 0, time.UTC)
	snap := entity.Snapshot{
		Habits: []entity.Habit{
			habitDoneOn("1", "2025-10-18"),
			habitDoneOn("2", "2025-10-17"),
			habitDoneOn("3", "2025-10-18"),
		},
		Metrics: map[datekey.Key]entity.DailyMetrics{
			"2025-10-18": {Mood: intPtr(4)},
		},
	}
	today := analytics.TodaySnapshot(snap, now, keys)
	assert.Equal(t, datekey.Key("2025-10-18"), today.Date)
	assert.Equal(t, 2, today.Completed)
	assert.Equal(t, 1, today.Left)
	assert.Equal(t, 67, today.Rate)
	assert.Equal(t, 4, today.Mood)
	assert.Equal(t, 0.0, today.SleepHours)

	empty := analytics.TodaySnapshot(entity.Snapshot{}, now, keys)
	assert.Equal(t, 0, empty.Rate)
	assert.Equal(t, 0, empty.Total)
}
