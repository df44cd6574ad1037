package errorvalues

import "errors"

var (
	ErrUserExists       = errors.New("such user already exists")
	ErrUserNotFound     = errors.New("user doesn't exists")
	ErrWrongCredentials = errors.New("wrong name or password")
	ErrInvalidToken     = errors.New("invalid token")
	ErrValidation       = errors.New("validation error")
)

var (
	ErrHabitNotFound     = errors.New("habit doesn't exists")
	ErrEmptyHabitName    = errors.New("habit name is empty")
	ErrMoodOutOfRange    = errors.New("mood must be in range 1..5")
	ErrInvalidSleepHours = errors.New("sleep hours must be a non-negative number")
	ErrInvalidDateKey    = errors.New("invalid date key, expected YYYY-MM-DD")
	ErrInvalidMonth      = errors.New("invalid month window")
)

var (
	ErrDocumentNotFound = errors.New("habits document doesn't exists")
	ErrInvalidDocument  = errors.New("habits document is malformed")
	ErrNoIdentity       = errors.New("no identity: local-only mode")
	ErrGatewayClosed    = errors.New("sync gateway is closed")
)
