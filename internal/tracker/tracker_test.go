package tracker_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	errorvalues "github.com/limbo/habitsync/internal/error_values"
	"github.com/limbo/habitsync/internal/tracker"
	"github.com/limbo/habitsync/pkg/datekey"
	"github.com/limbo/habitsync/pkg/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type persistRecorder struct {
	mu    sync.Mutex
	snaps []entity.Snapshot
}

func (r *persistRecorder) Persist(s entity.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *persistRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *persistRecorder) Last() entity.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

var day = time.Date(2025, time.October, 18, 9, 0, 0, 0, time.UTC)

func newTracker(t *testing.T) (*tracker.Tracker, *persistRecorder) {
	t.Helper()
	rec := &persistRecorder{}
	tr := tracker.New(datekey.UTC(), entity.DefaultSnapshot(), tracker.WithPersist(rec.Persist))
	return tr, rec
}

func TestAddHabit(t *testing.T) {
	t.Parallel()
	tr, rec := newTracker(t)
	a := tr.AddHabit("Meditate")
	b := tr.AddHabit("Meditate")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, entity.DefaultGoal, a.Goal)
	assert.Empty(t, a.Completions)
	assert.Equal(t, 2, rec.Count())

	snap := tr.Snapshot()
	require.Len(t, snap.Habits, 7)
	assert.Equal(t, a.ID, snap.Habits[5].ID)
	assert.Equal(t, b.ID, snap.Habits[6].ID)
	assert.True(t, entity.EqualContent(snap, rec.Last()))
}

func TestAddHabitRetriesCollidingID(t *testing.T) {
	t.Parallel()
	ids := []entity.HabitID{"1", "1", "fresh"}
	next := 0
	tr := tracker.New(datekey.UTC(), entity.DefaultSnapshot(), tracker.WithIDGenerator(func() entity.HabitID {
		id := ids[next]
		next++
		return id
	}))
	h := tr.AddHabit("Stretch")
	assert.Equal(t, entity.HabitID("fresh"), h.ID)
}

func TestToggleCompletion(t *testing.T) {
	t.Parallel()
	tr, rec := newTracker(t)
	key := datekey.Key("2025-10-18")

	assert.True(t, tr.ToggleCompletion("2", day))
	h, ok := tr.Habit("2")
	require.True(t, ok)
	assert.True(t, h.Done(key))
	assert.Equal(t, 1, rec.Count())

	t.Run("toggling twice restores previous state", func(t *testing.T) {
		before, _ := tr.Habit("3")
		assert.True(t, tr.ToggleCompletion("3", day))
		assert.True(t, tr.ToggleCompletion("3", day.Add(3*time.Hour)))
		after, _ := tr.Habit("3")
		assert.Equal(t, before.Completions, after.Completions)
	})
	t.Run("unknown habit is a no-op", func(t *testing.T) {
		count := rec.Count()
		assert.False(t, tr.ToggleCompletion("stale", day))
		assert.Equal(t, count, rec.Count())
	})
	t.Run("earlier snapshots are not affected", func(t *testing.T) {
		snap := tr.Snapshot()
		tr.ToggleCompletion("2", day)
		assert.True(t, snap.Habits[1].Done(key))
	})
}

func TestDeleteHabit(t *testing.T) {
	t.Parallel()
	tr, rec := newTracker(t)
	assert.True(t, tr.DeleteHabit("3"))
	assert.Equal(t, 1, rec.Count())
	snap := tr.Snapshot()
	assert.Len(t, snap.Habits, 4)
	assert.Equal(t, -1, snap.HabitIndex("3"))
	assert.Equal(t, []entity.HabitID{"1", "2", "4", "5"}, []entity.HabitID{
		snap.Habits[0].ID, snap.Habits[1].ID, snap.Habits[2].ID, snap.Habits[3].ID,
	})

	assert.False(t, tr.DeleteHabit("3"))
	assert.Equal(t, 1, rec.Count())
}

func TestSetMood(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		Desc  string
		Value int
		Error error
	}{
		{Desc: "lowest", Value: 1, Error: nil},
		{Desc: "highest", Value: 5, Error: nil},
		{Desc: "zero", Value: 0, Error: errorvalues.ErrMoodOutOfRange},
		{Desc: "above scale", Value: 6, Error: errorvalues.ErrMoodOutOfRange},
		{Desc: "negative", Value: -2, Error: errorvalues.ErrMoodOutOfRange},
	}
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			tr, rec := newTracker(t)
			err := tr.SetMood(day, tc.Value)
			assert.ErrorIs(t, err, tc.Error)
			m, ok := tr.Metrics(day)
			if tc.Error != nil {
				assert.False(t, ok)
				assert.Equal(t, 0, rec.Count())
				return
			}
			require.True(t, ok)
			require.NotNil(t, m.Mood)
			assert.Equal(t, tc.Value, *m.Mood)
			assert.Equal(t, 1, rec.Count())
		})
	}
}

func TestMetricFieldsArePreserved(t *testing.T) {
	t.Parallel()
	tr, rec := newTracker(t)
	require.NoError(t, tr.SetSleepHours(day, 7.5))
	require.NoError(t, tr.SetMood(day, 4))
	require.NoError(t, tr.SetSleepHours(day, 8))
	m, ok := tr.Metrics(day)
	require.True(t, ok)
	assert.Equal(t, 4, *m.Mood)
	assert.Equal(t, 8.0, *m.SleepHours)
	assert.Equal(t, 3, rec.Count())
	assert.Len(t, rec.Last().Metrics, 1)
}

func TestSetSleepHoursRejectsInvalid(t *testing.T) {
	t.Parallel()
	tr, rec := newTracker(t)
	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, tr.SetSleepHours(day, v), errorvalues.ErrInvalidSleepHours)
	}
	assert.NoError(t, tr.SetSleepHours(day, 0))
	assert.Equal(t, 1, rec.Count())
}

func TestAdjustSleepHours(t *testing.T) {
	t.Parallel()
	tr, _ := newTracker(t)
	v, err := tr.AdjustSleepHours(day, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	v, err = tr.AdjustSleepHours(day, -1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	v, err = tr.AdjustSleepHours(day, -1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	_, err = tr.AdjustSleepHours(day, math.NaN())
	assert.ErrorIs(t, err, errorvalues.ErrInvalidSleepHours)
}

func TestReplaceDoesNotPersist(t *testing.T) {
	t.Parallel()
	tr, rec := newTracker(t)
	remote := entity.Snapshot{
		Habits: []entity.Habit{{ID: "r1", Name: "Remote", Goal: 60, Completions: map[datekey.Key]bool{"2025-10-01": true}}},
	}
	tr.Replace(remote)
	assert.Equal(t, 0, rec.Count())
	snap := tr.Snapshot()
	require.Len(t, snap.Habits, 1)
	assert.Equal(t, entity.HabitID("r1"), snap.Habits[0].ID)
	assert.NotNil(t, snap.Metrics)

	remote.Habits[0].Completions["2025-10-02"] = true
	h, _ := tr.Habit("r1")
	assert.False(t, h.Done("2025-10-02"))
}

func TestSetPersistNilDisablesHook(t *testing.T) {
	t.Parallel()
	tr, rec := newTracker(t)
	tr.SetPersist(nil)
	tr.AddHabit("Quiet")
	assert.Equal(t, 0, rec.Count())
}

type scriptedUI struct {
	text    string
	ok      bool
	confirm bool
	err     error
}

func (s *scriptedUI) PromptText(ctx context.Context, message string) (string, bool, error) {
	return s.text, s.ok, s.err
}

func (s *scriptedUI) Confirm(ctx context.Context, message string) (bool, error) {
	return s.confirm, s.err
}

func TestPromptAddHabit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	testCases := []struct {
		Desc  string
		UI    *scriptedUI
		Added bool
		Error bool
	}{
		{Desc: "named", UI: &scriptedUI{text: "  Journal ", ok: true}, Added: true},
		{Desc: "cancelled", UI: &scriptedUI{text: "Journal", ok: false}},
		{Desc: "blank", UI: &scriptedUI{text: "   ", ok: true}},
		{Desc: "ui failure", UI: &scriptedUI{err: errors.New("closed")}, Error: true},
	}
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			tr, rec := newTracker(t)
			h, err := tr.PromptAddHabit(ctx, tc.UI)
			if tc.Error {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if !tc.Added {
				assert.Nil(t, h)
				assert.Equal(t, 0, rec.Count())
				return
			}
			require.NotNil(t, h)
			assert.Equal(t, "Journal", h.Name)
			assert.Equal(t, 1, rec.Count())
		})
	}
}

func TestConfirmDeleteHabit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, rec := newTracker(t)
	deleted, err := tr.ConfirmDeleteHabit(ctx, &scriptedUI{confirm: false}, "1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, 0, rec.Count())

	deleted, err = tr.ConfirmDeleteHabit(ctx, &scriptedUI{confirm: true}, "1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 1, rec.Count())
}
