package analytics

import (
	"fmt"
	"time"

	errorvalues "github.com/limbo/habitsync/internal/error_values"
	"github.com/limbo/habitsync/pkg/datekey"
	"github.com/limbo/habitsync/pkg/entity"
)

// Window is one displayed calendar month.
type Window struct {
	Year  int
	Month time.Month
	Dates []time.Time
}

func MonthWindow(keys *datekey.Normalizer, year int, month time.Month) (Window, error) {
	if month < time.January || month > time.December || year < 1 || year > 9999 {
		return Window{}, fmt.Errorf("%w: %d-%d", errorvalues.ErrInvalidMonth, year, month)
	}
	return Window{
		Year:  year,
		Month: month,
		Dates: keys.EnumerateMonth(year, month),
	}, nil
}

func CurrentWindow(keys *datekey.Normalizer, now time.Time) Window {
	local := now.In(keys.Location())
	w, _ := MonthWindow(keys, local.Year(), local.Month())
	return w
}

func (w Window) Prev(keys *datekey.Normalizer) Window {
	y, m := datekey.Shift(w.Year, w.Month, -1)
	return Window{Year: y, Month: m, Dates: keys.EnumerateMonth(y, m)}
}

func (w Window) Next(keys *datekey.Normalizer) Window {
	y, m := datekey.Shift(w.Year, w.Month, 1)
	return Window{Year: y, Month: m, Dates: keys.EnumerateMonth(y, m)}
}

type Overview struct {
	Year        int          `json:"year"`
	Month       int          `json:"month"`
	MonthName   string       `json:"month_name"`
	GoalLine    int          `json:"goal_line"`
	AverageRate int          `json:"average_rate"`
	Today       TodayStat    `json:"today"`
	Daily       []DayStat    `json:"daily"`
	Habits      []HabitStat  `json:"habits"`
	Metrics     []MetricStat `json:"metrics"`
	Mood        MoodStat     `json:"mood"`
	Sleep       SleepStat    `json:"sleep"`
}

// BuildOverview assembles the whole dashboard for one window.
func BuildOverview(s entity.Snapshot, w Window, now time.Time, keys *datekey.Normalizer) Overview {
	daily := DailyStats(s.Habits, w.Dates, keys)
	return Overview{
		Year:        w.Year,
		Month:       int(w.Month),
		MonthName:   w.Month.String(),
		GoalLine:    GoalLine,
		AverageRate: averageRate(daily),
		Today:       TodaySnapshot(s, now, keys),
		Daily:       daily,
		Habits:      AllHabitStats(s.Habits, w.Dates, keys),
		Metrics: []MetricStat{
			MetricStats(MetricMood, s.Metrics, w.Dates, keys),
			MetricStats(MetricSleep, s.Metrics, w.Dates, keys),
		},
		Mood:  MoodStats(s.Metrics, w.Dates, keys),
		Sleep: SleepStats(s.Metrics, w.Dates, keys),
	}
}

func averageRate(daily []DayStat) int {
	if len(daily) == 0 {
		return 0
	}
	sum := 0
	for _, d := range daily {
		sum += d.Rate
	}
	return Rate(sum, len(daily)*100)
}
