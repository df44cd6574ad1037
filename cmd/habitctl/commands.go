package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/limbo/habitsync/internal/analytics"
	errorvalues "github.com/limbo/habitsync/internal/error_values"
	"github.com/limbo/habitsync/internal/repository"
	"github.com/limbo/habitsync/pkg/entity"
)

type IdentityArg struct {
	Identity string `arg:"" help:"User id the document belongs to."`
}

type SeedCmd struct {
	IdentityArg
}

func (c *SeedCmd) Run(a *appContext) error {
	snap, err := a.gateway.InitializeIfAbsent(a.ctx, c.Identity)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "document ready: %d habits, %d days with metrics\n", len(snap.Habits), len(snap.Metrics))
	return nil
}

type ShowCmd struct {
	IdentityArg
}

func (c *ShowCmd) Run(a *appContext) error {
	raw, err := a.docs.Get(a.ctx, repository.DocumentPath(a.appID, c.Identity))
	if err != nil {
		if errors.Is(err, errorvalues.ErrDocumentNotFound) {
			fmt.Fprintln(a.out, "no document, run seed first")
			return nil
		}
		return err
	}
	snap, err := entity.DecodeDocument(raw)
	if err != nil {
		return err
	}
	printSnapshot(a.out, snap)
	return nil
}

type StatsCmd struct {
	IdentityArg
	Year  int `help:"Year of the month to show, current when zero."`
	Month int `help:"Month to show (1-12), current when zero."`
}

func (c *StatsCmd) Run(a *appContext) error {
	s, err := a.registry.Get(a.ctx, c.Identity)
	if err != nil {
		return err
	}
	now := a.now()
	w := analytics.CurrentWindow(a.keys, now)
	if c.Year != 0 || c.Month != 0 {
		if w, err = analytics.MonthWindow(a.keys, c.Year, time.Month(c.Month)); err != nil {
			return err
		}
	}
	printOverview(a.out, analytics.BuildOverview(s.Tracker().Snapshot(), w, now, a.keys))
	return nil
}

type AddCmd struct {
	IdentityArg
}

func (c *AddCmd) Run(a *appContext) error {
	s, err := a.registry.Get(a.ctx, c.Identity)
	if err != nil {
		return err
	}
	h, err := s.Tracker().PromptAddHabit(a.ctx, a.ui)
	if err != nil {
		return err
	}
	if h == nil {
		fmt.Fprintln(a.out, "nothing added")
		return nil
	}
	fmt.Fprintf(a.out, "added %q (%s)\n", h.Name, h.ID)
	return nil
}

type ToggleCmd struct {
	IdentityArg
	HabitID string `arg:"" help:"Habit id."`
	Date    string `help:"Day as YYYY-MM-DD, today when empty."`
}

func (c *ToggleCmd) Run(a *appContext) error {
	date := a.keys.Date(a.now().In(a.keys.Location()).Date())
	if c.Date != "" {
		var err error
		if date, err = a.keys.ParseDate(c.Date); err != nil {
			return err
		}
	}
	s, err := a.registry.Get(a.ctx, c.Identity)
	if err != nil {
		return err
	}
	id := entity.HabitID(c.HabitID)
	if !s.Tracker().ToggleCompletion(id, date) {
		return errorvalues.ErrHabitNotFound
	}
	h, _ := s.Tracker().Habit(id)
	key := a.keys.Normalize(date)
	fmt.Fprintf(a.out, "%s on %s: done=%t\n", h.Name, key, h.Done(key))
	return nil
}

type DeleteCmd struct {
	IdentityArg
	HabitID string `arg:"" help:"Habit id."`
}

func (c *DeleteCmd) Run(a *appContext) error {
	s, err := a.registry.Get(a.ctx, c.Identity)
	if err != nil {
		return err
	}
	id := entity.HabitID(c.HabitID)
	if _, ok := s.Tracker().Habit(id); !ok {
		return errorvalues.ErrHabitNotFound
	}
	deleted, err := s.Tracker().ConfirmDeleteHabit(a.ctx, a.ui, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted=%t\n", deleted)
	return nil
}

type ExportCmd struct {
	IdentityArg
	Out string `help:"Output file." default:"habit_tracker_backup.json" type:"path"`
}

func (c *ExportCmd) Run(a *appContext) error {
	s, err := a.registry.Get(a.ctx, c.Identity)
	if err != nil {
		return err
	}
	body, err := s.Export()
	if err != nil {
		return err
	}
	if err = os.WriteFile(c.Out, body, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "wrote %s (%d bytes)\n", c.Out, len(body))
	return nil
}

func printSnapshot(out io.Writer, snap entity.Snapshot) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tGOAL\tDAYS DONE")
	for _, h := range snap.Habits {
		done := 0
		for _, v := range h.Completions {
			if v {
				done++
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d%%\t%d\n", h.ID, h.Name, h.Goal, done)
	}
	tw.Flush()
	fmt.Fprintf(out, "days with metrics: %d\n", len(snap.Metrics))
	if !snap.LastUpdated.IsZero() {
		fmt.Fprintf(out, "last updated: %s\n", snap.LastUpdated.Format(time.RFC3339))
	}
}

func printOverview(out io.Writer, o analytics.Overview) {
	fmt.Fprintf(out, "%s %d  average %d%%  goal line %d%%\n", o.MonthName, o.Year, o.AverageRate, o.GoalLine)
	fmt.Fprintf(out, "today %s: %d done, %d left (%d%%)\n", o.Today.Date, o.Today.Completed, o.Today.Left, o.Today.Rate)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HABIT\tDONE\tRATE\tTIER")
	for _, h := range o.Habits {
		fmt.Fprintf(tw, "%s\t%d/%d\t%d%%\t%s\n", h.Name, h.Done, h.DaysInWindow, h.Percentage, h.Tier)
	}
	tw.Flush()
	for _, m := range o.Metrics {
		fmt.Fprintf(out, "%s: %s %.1f\n", m.Type, m.Label, m.Value)
	}
}
