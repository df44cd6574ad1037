// Package datekey turns calendar dates into canonical day keys.
//
// A Key is the civil day of an instant in one reference location, formatted as
// YYYY-MM-DD. Keys of distinct days sort chronologically as plain strings.
package datekey

import (
	"fmt"
	"time"

	errorvalues "github.com/limbo/habitsync/internal/error_values"
)

const Layout = "2006-01-02"

type Key string

func (k Key) String() string {
	return string(k)
}

// Normalizer maps instants onto day keys using a fixed reference location.
// The zero value is not usable, use New or UTC.
type Normalizer struct {
	loc *time.Location
}

func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

func UTC() *Normalizer {
	return New(time.UTC)
}

// NewFromName loads the location by IANA name ("UTC", "Europe/Moscow", "Local").
func NewFromName(name string) (*Normalizer, error) {
	if name == "" {
		return UTC(), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading datekey timezone %q: %w", name, err)
	}
	return New(loc), nil
}

func (n *Normalizer) Location() *time.Location {
	return n.loc
}

func (n *Normalizer) Normalize(t time.Time) Key {
	return Key(t.In(n.loc).Format(Layout))
}

// Date returns midnight of the civil day in the reference location.
// Out-of-range values are normalized the way time.Date does (Jan 32 is Feb 1).
func (n *Normalizer) Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, n.loc)
}

func (n *Normalizer) Today(now time.Time) Key {
	return n.Normalize(now)
}

// EnumerateMonth lists every day of the month in ascending order.
func (n *Normalizer) EnumerateMonth(year int, month time.Month) []time.Time {
	count := DaysIn(year, month)
	dates := make([]time.Time, 0, count)
	for d := 1; d <= count; d++ {
		dates = append(dates, n.Date(year, month, d))
	}
	return dates
}

// DaysIn reports the length of the month (28..31).
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Parse validates s as a day key. It accepts only the canonical form.
func Parse(s string) (Key, error) {
	t, err := time.Parse(Layout, s)
	if err != nil || t.Format(Layout) != s {
		return "", fmt.Errorf("%w: %q", errorvalues.ErrInvalidDateKey, s)
	}
	return Key(s), nil
}

// ParseDate parses s as a civil day and returns its midnight in the reference location.
func (n *Normalizer) ParseDate(s string) (time.Time, error) {
	if _, err := Parse(s); err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(Layout, s, n.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", errorvalues.ErrInvalidDateKey, s)
	}
	return t, nil
}

// Shift moves a (year, month) pair by delta months.
func Shift(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}
