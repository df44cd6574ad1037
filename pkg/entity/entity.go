package entity

import (
	"bytes"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/limbo/habitsync/pkg/datekey"
)

const (
	DefaultGoal = 100
	MinMood     = 1
	MaxMood     = 5
)

type User struct {
	ID           uuid.UUID
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// HabitID is opaque. Documents written by older clients carry numeric ids,
// they are kept as their decimal text.
type HabitID string

func NewHabitID() HabitID {
	return HabitID(uuid.NewString())
}

func (id *HabitID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return fmt.Errorf("habit id: %w", err)
		}
		*id = HabitID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("habit id must be a string or a number, got %s", b)
	}
	*id = HabitID(b)
	return nil
}

type Habit struct {
	ID   HabitID `json:"id"`
	Name string  `json:"name"`
	// Goal is a target percentage shown next to the stats, nothing enforces it.
	Goal        int                  `json:"goal"`
	Completions map[datekey.Key]bool `json:"data"`
}

func (h *Habit) Done(key datekey.Key) bool {
	return h.Completions[key]
}

func (h Habit) Clone() Habit {
	c := h
	c.Completions = make(map[datekey.Key]bool, len(h.Completions))
	for k, v := range h.Completions {
		if v {
			c.Completions[k] = true
		}
	}
	return c
}

type DailyMetrics struct {
	Mood       *int     `json:"mood,omitempty"`
	SleepHours *float64 `json:"sleep,omitempty"`
}

func (m DailyMetrics) Clone() DailyMetrics {
	c := DailyMetrics{}
	if m.Mood != nil {
		v := *m.Mood
		c.Mood = &v
	}
	if m.SleepHours != nil {
		v := *m.SleepHours
		c.SleepHours = &v
	}
	return c
}

type Snapshot struct {
	Habits      []Habit                      `json:"habits"`
	Metrics     map[datekey.Key]DailyMetrics `json:"metrics"`
	LastUpdated time.Time                    `json:"last_updated"`
}

// Clone deep-copies the snapshot so the copy can cross goroutines.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{
		Habits:      make([]Habit, 0, len(s.Habits)),
		Metrics:     make(map[datekey.Key]DailyMetrics, len(s.Metrics)),
		LastUpdated: s.LastUpdated,
	}
	for _, h := range s.Habits {
		c.Habits = append(c.Habits, h.Clone())
	}
	for k, m := range s.Metrics {
		c.Metrics[k] = m.Clone()
	}
	return c
}

func (s Snapshot) HabitIndex(id HabitID) int {
	for i := range s.Habits {
		if s.Habits[i].ID == id {
			return i
		}
	}
	return -1
}

func DefaultHabits() []Habit {
	seed := []struct {
		id   HabitID
		name string
		goal int
	}{
		{"1", "Wake up at 5:00 AM", 100},
		{"2", "Deep Work (2 hrs)", 80},
		{"3", "No Sugar", 90},
		{"4", "Read 10 Pages", 100},
		{"5", "Workout / Gym", 75},
	}
	habits := make([]Habit, 0, len(seed))
	for _, s := range seed {
		habits = append(habits, Habit{
			ID:          s.id,
			Name:        s.name,
			Goal:        s.goal,
			Completions: map[datekey.Key]bool{},
		})
	}
	return habits
}

// DefaultSnapshot is the seed used for new identities and for local-only mode.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Habits:  DefaultHabits(),
		Metrics: map[datekey.Key]DailyMetrics{},
	}
}

// EqualContent compares habits and metrics by value, ignoring LastUpdated.
func EqualContent(a, b Snapshot) bool {
	if len(a.Habits) != len(b.Habits) || len(a.Metrics) != len(b.Metrics) {
		return false
	}
	for i := range a.Habits {
		ha, hb := a.Habits[i].Clone(), b.Habits[i].Clone()
		if ha.ID != hb.ID || ha.Name != hb.Name || ha.Goal != hb.Goal || !maps.Equal(ha.Completions, hb.Completions) {
			return false
		}
	}
	for k, ma := range a.Metrics {
		mb, ok := b.Metrics[k]
		if !ok || !equalIntPtr(ma.Mood, mb.Mood) || !equalFloatPtr(ma.SleepHours, mb.SleepHours) {
			return false
		}
	}
	return true
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
