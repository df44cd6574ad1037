package service

import (
	"context"
	"log"
	"time"

	"github.com/limbo/habitsync/internal/analytics"
	errorvalues "github.com/limbo/habitsync/internal/error_values"
	"github.com/limbo/habitsync/internal/session"
	"github.com/limbo/habitsync/internal/tracker"
	"github.com/limbo/habitsync/pkg/entity"
)

type HabitsService struct {
	sessions Sessions
	now      func() time.Time
}

func NewHabitsService(sessions Sessions) *HabitsService {
	if sessions == nil {
		log.Fatal("provided nil sessions")
	}
	return &HabitsService{
		sessions: sessions,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for "today" and the current month.
func (hs *HabitsService) WithClock(now func() time.Time) *HabitsService {
	hs.now = now
	return hs
}

func (hs *HabitsService) session(ctx context.Context, identity string) (*session.Session, error) {
	return hs.sessions.Get(ctx, identity)
}

func (hs *HabitsService) Snapshot(ctx context.Context, identity string) (*SnapshotView, error) {
	s, err := hs.session(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &SnapshotView{
		Snapshot: s.Tracker().Snapshot(),
		Loading:  s.Loading(),
		Notice:   s.Notice(),
	}, nil
}

func (hs *HabitsService) AddHabit(ctx context.Context, identity string, ui tracker.Interactor) (*entity.Habit, error) {
	s, err := hs.session(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.Tracker().PromptAddHabit(ctx, ui)
}

func (hs *HabitsService) ToggleCompletion(ctx context.Context, identity string, habitID entity.HabitID, date time.Time) (*entity.Habit, error) {
	s, err := hs.session(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !s.Tracker().ToggleCompletion(habitID, date) {
		return nil, errorvalues.ErrHabitNotFound
	}
	h, ok := s.Tracker().Habit(habitID)
	if !ok {
		// deleted right after the toggle
		return nil, errorvalues.ErrHabitNotFound
	}
	return &h, nil
}

func (hs *HabitsService) DeleteHabit(ctx context.Context, identity string, habitID entity.HabitID, ui tracker.Interactor) (bool, error) {
	s, err := hs.session(ctx, identity)
	if err != nil {
		return false, err
	}
	if _, ok := s.Tracker().Habit(habitID); !ok {
		return false, errorvalues.ErrHabitNotFound
	}
	return s.Tracker().ConfirmDeleteHabit(ctx, ui, habitID)
}

func (hs *HabitsService) SetMood(ctx context.Context, identity string, date time.Time, value int) (entity.DailyMetrics, error) {
	s, err := hs.session(ctx, identity)
	if err != nil {
		return entity.DailyMetrics{}, err
	}
	if err = s.Tracker().SetMood(date, value); err != nil {
		return entity.DailyMetrics{}, err
	}
	m, _ := s.Tracker().Metrics(date)
	return m, nil
}

func (hs *HabitsService) SetSleep(ctx context.Context, identity string, date time.Time, hours float64) (entity.DailyMetrics, error) {
	s, err := hs.session(ctx, identity)
	if err != nil {
		return entity.DailyMetrics{}, err
	}
	if err = s.Tracker().SetSleepHours(date, hours); err != nil {
		return entity.DailyMetrics{}, err
	}
	m, _ := s.Tracker().Metrics(date)
	return m, nil
}

func (hs *HabitsService) StepSleep(ctx context.Context, identity string, date time.Time, delta int) (float64, error) {
	s, err := hs.session(ctx, identity)
	if err != nil {
		return 0, err
	}
	return s.Tracker().AdjustSleepHours(date, float64(delta))
}

func (hs *HabitsService) Overview(ctx context.Context, identity string, year, month int) (*analytics.Overview, error) {
	s, err := hs.session(ctx, identity)
	if err != nil {
		return nil, err
	}
	keys := s.Keys()
	now := hs.now()
	w := analytics.CurrentWindow(keys, now)
	if year != 0 || month != 0 {
		w, err = analytics.MonthWindow(keys, year, time.Month(month))
		if err != nil {
			return nil, err
		}
	}
	o := analytics.BuildOverview(s.Tracker().Snapshot(), w, now, keys)
	return &o, nil
}

func (hs *HabitsService) Today(ctx context.Context, identity string) (*analytics.TodayStat, error) {
	s, err := hs.session(ctx, identity)
	if err != nil {
		return nil, err
	}
	today := analytics.TodaySnapshot(s.Tracker().Snapshot(), hs.now(), s.Keys())
	return &today, nil
}

func (hs *HabitsService) Export(ctx context.Context, identity string) ([]byte, error) {
	s, err := hs.session(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.Export()
}

func (hs *HabitsService) SignOut(identity string) bool {
	return hs.sessions.SignOut(identity)
}
