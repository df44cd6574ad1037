// Package tracker holds one identity's habits and daily metrics in memory.
//
// Every mutation that changes state hands a copy of the whole snapshot to the
// persist hook. No-ops never reach the hook.
package tracker

import (
	"fmt"
	"math"
	"sync"
	"time"

	errorvalues "github.com/limbo/habitsync/internal/error_values"
	"github.com/limbo/habitsync/pkg/datekey"
	"github.com/limbo/habitsync/pkg/entity"
)

// PersistFunc receives the full snapshot after each effective mutation.
// It must not block, the tracker calls it while holding its lock so that
// snapshots arrive in mutation order.
type PersistFunc func(entity.Snapshot)

type Option func(*Tracker)

func WithPersist(f PersistFunc) Option {
	return func(t *Tracker) {
		t.persist = f
	}
}

func WithIDGenerator(f func() entity.HabitID) Option {
	return func(t *Tracker) {
		t.newID = f
	}
}

type Tracker struct {
	mu      sync.RWMutex
	habits  []entity.Habit
	metrics map[datekey.Key]entity.DailyMetrics
	keys    *datekey.Normalizer
	persist PersistFunc
	newID   func() entity.HabitID
}

func New(keys *datekey.Normalizer, initial entity.Snapshot, opts ...Option) *Tracker {
	if keys == nil {
		keys = datekey.UTC()
	}
	t := &Tracker{
		keys:  keys,
		newID: entity.NewHabitID,
	}
	for _, o := range opts {
		o(t)
	}
	t.load(initial)
	return t
}

// SetPersist swaps the persist hook, nil disables persistence.
func (t *Tracker) SetPersist(f PersistFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.persist = f
}

func (t *Tracker) Keys() *datekey.Normalizer {
	return t.keys
}

// AddHabit appends a habit with a fresh id and goal 100. Name validation is up
// to the caller.
func (t *Tracker) AddHabit(name string) entity.Habit {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.newID()
	for t.indexOf(id) >= 0 {
		id = t.newID()
	}
	h := entity.Habit{
		ID:          id,
		Name:        name,
		Goal:        entity.DefaultGoal,
		Completions: map[datekey.Key]bool{},
	}
	t.habits = append(t.habits, h)
	t.notify()
	return h.Clone()
}

// ToggleCompletion flips the mark of the habit on the day of date.
// Unknown ids are ignored. Reports whether anything changed.
func (t *Tracker) ToggleCompletion(id entity.HabitID, date time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	key := t.keys.Normalize(date)
	// replace the map instead of mutating it, snapshots handed out earlier share nothing
	h := t.habits[i].Clone()
	if h.Completions[key] {
		delete(h.Completions, key)
	} else {
		h.Completions[key] = true
	}
	t.habits[i] = h
	t.notify()
	return true
}

func (t *Tracker) DeleteHabit(id entity.HabitID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	habits := make([]entity.Habit, 0, len(t.habits)-1)
	habits = append(habits, t.habits[:i]...)
	habits = append(habits, t.habits[i+1:]...)
	t.habits = habits
	t.notify()
	return true
}

// SetMood records mood for the day of date. Values outside 1..5 are rejected.
func (t *Tracker) SetMood(date time.Time, value int) error {
	if value < entity.MinMood || value > entity.MaxMood {
		return fmt.Errorf("%w: got %d", errorvalues.ErrMoodOutOfRange, value)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := t.keys.Normalize(date)
	m := t.metrics[key].Clone()
	m.Mood = &value
	t.metrics[key] = m
	t.notify()
	return nil
}

// SetSleepHours records sleep for the day of date. Negative, NaN and infinite
// values are rejected.
func (t *Tracker) SetSleepHours(date time.Time, hours float64) error {
	if hours < 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return fmt.Errorf("%w: got %v", errorvalues.ErrInvalidSleepHours, hours)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setSleep(t.keys.Normalize(date), hours)
	return nil
}

// AdjustSleepHours moves the day's sleep value by delta, clamped at zero.
// A day without a value starts from zero.
func (t *Tracker) AdjustSleepHours(date time.Time, delta float64) (float64, error) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return 0, fmt.Errorf("%w: step %v", errorvalues.ErrInvalidSleepHours, delta)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := t.keys.Normalize(date)
	current := 0.0
	if v := t.metrics[key].SleepHours; v != nil {
		current = *v
	}
	next := math.Max(0, current+delta)
	t.setSleep(key, next)
	return next, nil
}

func (t *Tracker) setSleep(key datekey.Key, hours float64) {
	m := t.metrics[key].Clone()
	m.SleepHours = &hours
	t.metrics[key] = m
	t.notify()
}

// Replace overwrites everything with the given snapshot. It never persists:
// replacements come from the remote side.
func (t *Tracker) Replace(s entity.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.load(s)
}

func (t *Tracker) Snapshot() entity.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) Habit(id entity.HabitID) (entity.Habit, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := t.indexOf(id)
	if i < 0 {
		return entity.Habit{}, false
	}
	return t.habits[i].Clone(), true
}

func (t *Tracker) Metrics(date time.Time) (entity.DailyMetrics, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.metrics[t.keys.Normalize(date)]
	return m.Clone(), ok
}

func (t *Tracker) load(s entity.Snapshot) {
	c := s.Clone()
	t.habits = c.Habits
	t.metrics = c.Metrics
}

func (t *Tracker) snapshotLocked() entity.Snapshot {
	return entity.Snapshot{Habits: t.habits, Metrics: t.metrics}.Clone()
}

func (t *Tracker) indexOf(id entity.HabitID) int {
	for i := range t.habits {
		if t.habits[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Tracker) notify() {
	if t.persist == nil {
		return
	}
	t.persist(t.snapshotLocked())
}
