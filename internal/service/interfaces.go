package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/limbo/habitsync/internal/analytics"
	"github.com/limbo/habitsync/internal/session"
	"github.com/limbo/habitsync/internal/tracker"
	"github.com/limbo/habitsync/pkg/entity"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/service_mocks.go -package=mocks

type RegisterRequest struct {
	Name     string `validate:"required,alphanum_underscore,min=3,max=100"`
	Password string `validate:"required,min=8,max=72"`
}

// AddHabitRequest carries the answer to the "new habit name" prompt. A nil
// Name means the prompt was cancelled.
type AddHabitRequest struct {
	Name *string `json:"name" validate:"omitempty,max=100"`
}

type MoodRequest struct {
	Value int `json:"value" validate:"min=1,max=5"`
}

type SleepRequest struct {
	Hours float64 `json:"hours" validate:"gte=0,lte=24"`
}

type SleepStepRequest struct {
	Delta int `json:"delta" validate:"oneof=-1 1"`
}

type UserServiceI interface {
	// Validates user's credentials, creates new row in database. Returns user's data with ID
	Register(ctx context.Context, req *RegisterRequest) (*entity.User, error)
	// Compares given credentials. If ok, give back user's data with ID.
	Login(ctx context.Context, name, password string) (*entity.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

// SnapshotView is the current state of one identity plus its sync status.
type SnapshotView struct {
	Snapshot entity.Snapshot
	Loading  bool
	Notice   string
}

type HabitsServiceI interface {
	Snapshot(ctx context.Context, identity string) (*SnapshotView, error)
	// Asks ui for a name and appends the habit. Returns nil when the prompt was cancelled or blank
	AddHabit(ctx context.Context, identity string, ui tracker.Interactor) (*entity.Habit, error)
	ToggleCompletion(ctx context.Context, identity string, habitID entity.HabitID, date time.Time) (*entity.Habit, error)
	// Asks ui to confirm, then removes the habit with its history
	DeleteHabit(ctx context.Context, identity string, habitID entity.HabitID, ui tracker.Interactor) (bool, error)
	SetMood(ctx context.Context, identity string, date time.Time, value int) (entity.DailyMetrics, error)
	SetSleep(ctx context.Context, identity string, date time.Time, hours float64) (entity.DailyMetrics, error)
	StepSleep(ctx context.Context, identity string, date time.Time, delta int) (float64, error)
	// Month dashboard. Zero year and month mean the current month
	Overview(ctx context.Context, identity string, year, month int) (*analytics.Overview, error)
	Today(ctx context.Context, identity string) (*analytics.TodayStat, error)
	Export(ctx context.Context, identity string) ([]byte, error)
	SignOut(identity string) bool
}

// Sessions hands out live sessions per identity. session.Registry implements it.
type Sessions interface {
	Get(ctx context.Context, identity string) (*session.Session, error)
	SignOut(identity string) bool
}
