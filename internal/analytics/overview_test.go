package analytics_test

import (
	"testing"
	"time"

	"github.com/limbo/habitsync/internal/analytics"
	errorvalues "github.com/limbo/habitsync/internal/error_values"
	"github.com/limbo/habitsync/pkg/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthWindow(t *testing.T) {
	t.Parallel()
	w, err := analytics.MonthWindow(keys, 2024, time.February)
	require.NoError(t, err)
	assert.Len(t, w.Dates, 29)

	prev := w.Prev(keys)
	assert.Equal(t, 2024, prev.Year)
	assert.Equal(t, time.January, prev.Month)
	assert.Len(t, prev.Dates, 31)

	next := analytics.Window{Year: 2024, Month: time.December}.Next(keys)
	assert.Equal(t, 2025, next.Year)
	assert.Equal(t, time.January, next.Month)

	_, err = analytics.MonthWindow(keys, 2024, 13)
	assert.ErrorIs(t, err, errorvalues.ErrInvalidMonth)
	_, err = analytics.MonthWindow(keys, 0, time.May)
	assert.ErrorIs(t, err, errorvalues.ErrInvalidMonth)
}

func TestCurrentWindow(t *testing.T) {
	t.Parallel()
	w := analytics.CurrentWindow(keys, time.Date(2025, time.October, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, 2025, w.Year)
	assert.Equal(t, time.October, w.Month)
	assert.Len(t, w.Dates, 31)
}

func TestBuildOverview(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, time.October, 2, 10, 0, 0, 0, time.UTC)
	snap := entity.Snapshot{
		Habits: []entity.Habit{
			habitDoneOn("1", "2025-10-01", "2025-10-02"),
			habitDoneOn("2", "2025-10-01"),
		},
	}
	w, err := analytics.MonthWindow(keys, 2025, time.October)
	require.NoError(t, err)
	o := analytics.BuildOverview(snap, w, now, keys)

	assert.Equal(t, "October", o.MonthName)
	assert.Equal(t, 10, o.Month)
	assert.Equal(t, analytics.GoalLine, o.GoalLine)
	assert.Len(t, o.Daily, 31)
	require.Len(t, o.Habits, 2)
	assert.Equal(t, 2, o.Habits[0].Done)
	assert.Equal(t, 1, o.Today.Completed)
	assert.Equal(t, 50, o.Today.Rate)
	// (100 + 50) / 31 days
	assert.Equal(t, 5, o.AverageRate)
	require.Len(t, o.Metrics, 2)
	assert.Equal(t, analytics.MetricMood, o.Metrics[0].Type)
	assert.Equal(t, analytics.MetricSleep, o.Metrics[1].Type)

	assert.Equal(t, o, analytics.BuildOverview(snap, w, now, keys))
}
