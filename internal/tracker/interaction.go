package tracker

import (
	"context"
	"strings"

	"github.com/limbo/habitsync/pkg/entity"
)

// Interactor is whatever asks the user things: a terminal, an HTTP request, a test.
type Interactor interface {
	// PromptText asks for a line of text. ok is false when the user cancelled.
	PromptText(ctx context.Context, message string) (text string, ok bool, err error)
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, message string) (bool, error)
}

const (
	addHabitPrompt    = "Enter new habit name:"
	deleteHabitPrompt = "Delete this habit row?"
)

// PromptAddHabit asks for a name and adds the habit. A cancelled prompt or a
// blank name adds nothing and returns nil.
func (t *Tracker) PromptAddHabit(ctx context.Context, ui Interactor) (*entity.Habit, error) {
	name, ok, err := ui.PromptText(ctx, addHabitPrompt)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil, nil
	}
	h := t.AddHabit(name)
	return &h, nil
}

// ConfirmDeleteHabit deletes the habit once the user agrees.
func (t *Tracker) ConfirmDeleteHabit(ctx context.Context, ui Interactor, id entity.HabitID) (bool, error) {
	yes, err := ui.Confirm(ctx, deleteHabitPrompt)
	if err != nil || !yes {
		return false, err
	}
	return t.DeleteHabit(id), nil
}
