// Package analytics derives completion and wellness statistics from habits and
// daily metrics. Everything here is a pure function of its arguments.
package analytics

import (
	"math"
	"time"

	"github.com/limbo/habitsync/pkg/datekey"
	"github.com/limbo/habitsync/pkg/entity"
)

// GoalLine is the reference completion rate drawn on the consistency chart.
const GoalLine = 80

type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

type MetricType string

const (
	MetricMood  MetricType = "mood"
	MetricSleep MetricType = "sleep"
)

type DayStat struct {
	Date      datekey.Key `json:"date"`
	Day       int         `json:"day"`
	Completed int         `json:"completed"`
	NotDone   int         `json:"not_done"`
	Rate      int         `json:"rate"`
}

type HabitStat struct {
	HabitID      entity.HabitID `json:"habit_id"`
	Name         string         `json:"name"`
	Goal         int            `json:"goal"`
	DaysInWindow int            `json:"days_in_window"`
	Done         int            `json:"done"`
	Percentage   int            `json:"percentage"`
	Tier         Tier           `json:"tier"`
}

type MoodStat struct {
	LoggedDays int `json:"logged_days"`
}

// SleepStat.AverageHours is 0 both for "no data" and for a true zero average,
// LoggedDays tells them apart.
type SleepStat struct {
	AverageHours float64 `json:"average_hours"`
	LoggedDays   int     `json:"logged_days"`
}

type MetricStat struct {
	Type  MetricType `json:"type"`
	Label string     `json:"label"`
	Value float64    `json:"value"`
}

type TodayStat struct {
	Date       datekey.Key `json:"date"`
	Completed  int         `json:"completed"`
	Left       int         `json:"left"`
	Total      int         `json:"total"`
	Rate       int         `json:"rate"`
	Mood       int         `json:"mood"`
	SleepHours float64     `json:"sleep_hours"`
}

// Rate is round(part/total*100) with halves rounded up, 0 when total is 0.
func Rate(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

func TierFor(percentage int) Tier {
	switch {
	case percentage >= 80:
		return TierHigh
	case percentage >= 50:
		return TierMedium
	default:
		return TierLow
	}
}

// DailyStats reports, per day of the window, how many habits were done.
func DailyStats(habits []entity.Habit, dates []time.Time, keys *datekey.Normalizer) []DayStat {
	total := len(habits)
	stats := make([]DayStat, 0, len(dates))
	for _, d := range dates {
		key := keys.Normalize(d)
		completed := countDone(habits, key)
		stats = append(stats, DayStat{
			Date:      key,
			Day:       d.In(keys.Location()).Day(),
			Completed: completed,
			NotDone:   total - completed,
			Rate:      Rate(completed, total),
		})
	}
	return stats
}

func HabitMonthlyStats(habit entity.Habit, dates []time.Time, keys *datekey.Normalizer) HabitStat {
	done := 0
	for _, d := range dates {
		if habit.Completions[keys.Normalize(d)] {
			done++
		}
	}
	pct := Rate(done, len(dates))
	return HabitStat{
		HabitID:      habit.ID,
		Name:         habit.Name,
		Goal:         habit.Goal,
		DaysInWindow: len(dates),
		Done:         done,
		Percentage:   pct,
		Tier:         TierFor(pct),
	}
}

func AllHabitStats(habits []entity.Habit, dates []time.Time, keys *datekey.Normalizer) []HabitStat {
	stats := make([]HabitStat, 0, len(habits))
	for _, h := range habits {
		stats = append(stats, HabitMonthlyStats(h, dates, keys))
	}
	return stats
}

func MoodStats(metrics map[datekey.Key]entity.DailyMetrics, dates []time.Time, keys *datekey.Normalizer) MoodStat {
	logged := 0
	for _, d := range dates {
		if metrics[keys.Normalize(d)].Mood != nil {
			logged++
		}
	}
	return MoodStat{LoggedDays: logged}
}

// SleepStats averages logged sleep over the window, rounded to one decimal.
func SleepStats(metrics map[datekey.Key]entity.DailyMetrics, dates []time.Time, keys *datekey.Normalizer) SleepStat {
	var sum float64
	logged := 0
	for _, d := range dates {
		if v := metrics[keys.Normalize(d)].SleepHours; v != nil {
			sum += *v
			logged++
		}
	}
	if logged == 0 {
		return SleepStat{}
	}
	return SleepStat{
		AverageHours: math.Round(sum/float64(logged)*10) / 10,
		LoggedDays:   logged,
	}
}

// MetricStats is the row summary shown next to a metric: logged day count for
// mood, average hours for sleep.
func MetricStats(t MetricType, metrics map[datekey.Key]entity.DailyMetrics, dates []time.Time, keys *datekey.Normalizer) MetricStat {
	switch t {
	case MetricMood:
		return MetricStat{Type: t, Label: "Logged", Value: float64(MoodStats(metrics, dates, keys).LoggedDays)}
	case MetricSleep:
		return MetricStat{Type: t, Label: "Avg Hrs", Value: SleepStats(metrics, dates, keys).AverageHours}
	default:
		return MetricStat{Type: t, Label: "-"}
	}
}

// TodaySnapshot computes the "today" figure, independent of any month window.
func TodaySnapshot(s entity.Snapshot, now time.Time, keys *datekey.Normalizer) TodayStat {
	key := keys.Today(now)
	total := len(s.Habits)
	completed := countDone(s.Habits, key)
	today := TodayStat{
		Date:      key,
		Completed: completed,
		Left:      total - completed,
		Total:     total,
		Rate:      Rate(completed, total),
	}
	m := s.Metrics[key]
	if m.Mood != nil {
		today.Mood = *m.Mood
	}
	if m.SleepHours != nil {
		today.SleepHours = *m.SleepHours
	}
	return today
}

func countDone(habits []entity.Habit, key datekey.Key) int {
	n := 0
	for i := range habits {
		if habits[i].Completions[key] {
			n++
		}
	}
	return n
}
