package service_test

import (
	"context"
	"testing"
	"time"

	errorvalues "github.com/limbo/habitsync/internal/error_values"
	"github.com/limbo/habitsync/internal/service"
	"github.com/limbo/habitsync/internal/session"
	"github.com/limbo/habitsync/pkg/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answers struct {
	name    string
	ok      bool
	confirm bool
}

func (a answers) PromptText(ctx context.Context, message string) (string, bool, error) {
	return a.name, a.ok, nil
}

func (a answers) Confirm(ctx context.Context, message string) (bool, error) {
	return a.confirm, nil
}

var now = time.Date(2025, time.October, 18, 12, 0, 0, 0, time.UTC)

func newHabitsService(t *testing.T) *service.HabitsService {
	t.Helper()
	reg := session.NewRegistry(nil)
	t.Cleanup(reg.Close)
	return service.NewHabitsService(reg).WithClock(func() time.Time { return now })
}

func TestHabitsServiceFlow(t *testing.T) {
	t.Parallel()
	hs := newHabitsService(t)
	ctx := context.Background()
	const uid = "user-1"

	view, err := hs.Snapshot(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, view.Snapshot.Habits, 5)
	assert.False(t, view.Loading)

	h, err := hs.AddHabit(ctx, uid, answers{name: "Journal", ok: true})
	require.NoError(t, err)
	require.NotNil(t, h)

	cancelled, err := hs.AddHabit(ctx, uid, answers{name: "Journal", ok: false})
	require.NoError(t, err)
	assert.Nil(t, cancelled)

	toggled, err := hs.ToggleCompletion(ctx, uid, h.ID, now)
	require.NoError(t, err)
	assert.True(t, toggled.Done("2025-10-18"))

	_, err = hs.ToggleCompletion(ctx, uid, "missing", now)
	assert.ErrorIs(t, err, errorvalues.ErrHabitNotFound)

	m, err := hs.SetMood(ctx, uid, now, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, *m.Mood)
	_, err = hs.SetMood(ctx, uid, now, 9)
	assert.ErrorIs(t, err, errorvalues.ErrMoodOutOfRange)

	m, err = hs.SetSleep(ctx, uid, now, 7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, *m.SleepHours)
	assert.Equal(t, 4, *m.Mood)

	hours, err := hs.StepSleep(ctx, uid, now, 1)
	require.NoError(t, err)
	assert.Equal(t, 8.0, hours)

	today, err := hs.Today(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, today.Completed)
	assert.Equal(t, 6, today.Total)
	assert.Equal(t, 17, today.Rate)
	assert.Equal(t, 8.0, today.SleepHours)

	o, err := hs.Overview(ctx, uid, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, o.Month)
	assert.Len(t, o.Daily, 31)
	assert.Equal(t, 8.0, o.Sleep.AverageHours)

	sept, err := hs.Overview(ctx, uid, 2025, 9)
	require.NoError(t, err)
	assert.Len(t, sept.Daily, 30)
	assert.Equal(t, 0, sept.Sleep.LoggedDays)

	_, err = hs.Overview(ctx, uid, 2025, 13)
	assert.ErrorIs(t, err, errorvalues.ErrInvalidMonth)

	body, err := hs.Export(ctx, uid)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Journal")
}

func TestHabitsServiceDelete(t *testing.T) {
	t.Parallel()
	hs := newHabitsService(t)
	ctx := context.Background()
	const uid = "user-2"

	deleted, err := hs.DeleteHabit(ctx, uid, "1", answers{confirm: false})
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = hs.DeleteHabit(ctx, uid, "1", answers{confirm: true})
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = hs.DeleteHabit(ctx, uid, "1", answers{confirm: true})
	assert.ErrorIs(t, err, errorvalues.ErrHabitNotFound)

	view, err := hs.Snapshot(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, -1, view.Snapshot.HabitIndex("1"))
}

func TestHabitsServiceSignOutResets(t *testing.T) {
	t.Parallel()
	hs := newHabitsService(t)
	ctx := context.Background()
	const uid = "user-3"

	_, err := hs.AddHabit(ctx, uid, answers{name: "Temporary", ok: true})
	require.NoError(t, err)
	assert.True(t, hs.SignOut(uid))

	view, err := hs.Snapshot(ctx, uid)
	require.NoError(t, err)
	assert.True(t, entity.EqualContent(entity.DefaultSnapshot(), view.Snapshot))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	long := string(make([]byte, 101))
	name := "Journal"
	testCases := []struct {
		Desc  string
		Req   any
		Valid bool
	}{
		{Desc: "mood in range", Req: &service.MoodRequest{Value: 3}, Valid: true},
		{Desc: "mood too high", Req: &service.MoodRequest{Value: 6}},
		{Desc: "mood zero", Req: &service.MoodRequest{Value: 0}},
		{Desc: "sleep", Req: &service.SleepRequest{Hours: 7.5}, Valid: true},
		{Desc: "sleep zero", Req: &service.SleepRequest{Hours: 0}, Valid: true},
		{Desc: "negative sleep", Req: &service.SleepRequest{Hours: -1}},
		{Desc: "step up", Req: &service.SleepStepRequest{Delta: 1}, Valid: true},
		{Desc: "step down", Req: &service.SleepStepRequest{Delta: -1}, Valid: true},
		{Desc: "step too far", Req: &service.SleepStepRequest{Delta: 2}},
		{Desc: "habit name", Req: &service.AddHabitRequest{Name: &name}, Valid: true},
		{Desc: "cancelled habit prompt", Req: &service.AddHabitRequest{}, Valid: true},
		{Desc: "habit name too long", Req: &service.AddHabitRequest{Name: &long}},
	}
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			err := service.Validate(tc.Req)
			if tc.Valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
