package entity

import (
	"fmt"
	"math"
	"time"

	"github.com/bytedance/sonic"
	errorvalues "github.com/limbo/habitsync/internal/error_values"
	"github.com/limbo/habitsync/pkg/datekey"
)

const ExportFilename = "habit_tracker_backup.json"

// Document is the wire shape of the remote per-identity document.
type Document struct {
	Habits      []Habit                      `json:"habits"`
	Metrics     map[datekey.Key]DailyMetrics `json:"metrics"`
	LastUpdated string                       `json:"lastUpdated,omitempty"`
}

// ExportDocument is Document without the timestamp.
type ExportDocument struct {
	Habits  []Habit                      `json:"habits"`
	Metrics map[datekey.Key]DailyMetrics `json:"metrics"`
}

var codec = sonic.ConfigStd

func EncodeDocument(s Snapshot) ([]byte, error) {
	doc := Document{
		Habits:  nonNilHabits(s.Habits),
		Metrics: nonNilMetrics(s.Metrics),
	}
	if !s.LastUpdated.IsZero() {
		doc.LastUpdated = s.LastUpdated.UTC().Format(time.RFC3339Nano)
	}
	b, err := codec.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding habits document: %w", err)
	}
	return b, nil
}

// DecodeDocument parses a stored document. A document without habits gets the
// seed habits, one without metrics gets an empty mapping. Entries no client
// could have produced are repaired instead of failing the whole document:
// missing or repeated habit ids get fresh ids, malformed day keys are dropped,
// moods outside MinMood..MaxMood and negative sleep are cleared.
func DecodeDocument(b []byte) (Snapshot, error) {
	var doc Document
	if err := codec.Unmarshal(b, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s", errorvalues.ErrInvalidDocument, err.Error())
	}
	s := Snapshot{
		Habits:  doc.Habits,
		Metrics: doc.Metrics,
	}
	if s.Habits == nil {
		s.Habits = DefaultHabits()
	}
	s.Habits = cleanHabits(s.Habits)
	s.Metrics = cleanMetrics(s.Metrics)
	if doc.LastUpdated != "" {
		ts, err := time.Parse(time.RFC3339Nano, doc.LastUpdated)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: lastUpdated %q", errorvalues.ErrInvalidDocument, doc.LastUpdated)
		}
		s.LastUpdated = ts
	}
	return s, nil
}

// EncodeExport serializes habits and metrics for a one-shot download.
func EncodeExport(s Snapshot) ([]byte, error) {
	b, err := sonic.ConfigStd.MarshalIndent(ExportDocument{
		Habits:  nonNilHabits(s.Habits),
		Metrics: nonNilMetrics(s.Metrics),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return b, nil
}

func nonNilHabits(h []Habit) []Habit {
	out := make([]Habit, 0, len(h))
	for _, habit := range h {
		out = append(out, habit.Clone())
	}
	return out
}

func nonNilMetrics(m map[datekey.Key]DailyMetrics) map[datekey.Key]DailyMetrics {
	if m == nil {
		return map[datekey.Key]DailyMetrics{}
	}
	return m
}

func cleanHabits(habits []Habit) []Habit {
	out := make([]Habit, 0, len(habits))
	seen := make(map[HabitID]struct{}, len(habits))
	for _, h := range habits {
		h = h.Clone()
		if _, dup := seen[h.ID]; dup || h.ID == "" {
			h.ID = NewHabitID()
		}
		seen[h.ID] = struct{}{}
		for key := range h.Completions {
			if _, err := datekey.Parse(string(key)); err != nil {
				delete(h.Completions, key)
			}
		}
		out = append(out, h)
	}
	return out
}

func cleanMetrics(metrics map[datekey.Key]DailyMetrics) map[datekey.Key]DailyMetrics {
	out := make(map[datekey.Key]DailyMetrics, len(metrics))
	for key, m := range metrics {
		if _, err := datekey.Parse(string(key)); err != nil {
			continue
		}
		m = m.Clone()
		if m.Mood != nil && (*m.Mood < MinMood || *m.Mood > MaxMood) {
			m.Mood = nil
		}
		if m.SleepHours != nil && (*m.SleepHours < 0 || math.IsNaN(*m.SleepHours) || math.IsInf(*m.SleepHours, 0)) {
			m.SleepHours = nil
		}
		if m.Mood == nil && m.SleepHours == nil {
			continue
		}
		out[key] = m
	}
	return out
}
