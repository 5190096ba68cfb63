package habits

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/models"
)

type DoneCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)."`
}

func (c *DoneCmd) Run(ctx *cli.Context) error {
	return setCompletion(ctx, c.Habit, c.Date, true)
}

type UndoneCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)."`
}

func (c *UndoneCmd) Run(ctx *cli.Context) error {
	return setCompletion(ctx, c.Habit, c.Date, false)
}

func setCompletion(ctx *cli.Context, ref, date string, done bool) error {
	bg := context.Background()

	day, err := cli.ResolveDate(date)
	if err != nil {
		return err
	}
	h, err := findHabit(bg, ctx.Store, ref)
	if err != nil {
		return err
	}
	if err := ctx.Tracker.SetCompletion(bg, h.ID, day, done); err != nil {
		return err
	}

	if done {
		fmt.Printf("%s Marked %s for %s\n", cli.OKStyle.Render("✓"), h.Name, day)
	} else {
		fmt.Printf("Unmarked %s for %s\n", h.Name, day)
	}
	ctx.AutoSync(bg)
	return nil
}

type MoodCmd struct {
	Score int    `arg:"" help:"Mood from 1 (low) to 5 (high)."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)."`
	Note  string `help:"Optional note."`
}

func (c *MoodCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	day, err := cli.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	if c.Score < models.MinMood || c.Score > models.MaxMood {
		return fmt.Errorf("mood must be between %d and %d", models.MinMood, models.MaxMood)
	}
	var notes *string
	if c.Note != "" {
		notes = &c.Note
	}
	if err := ctx.Tracker.SetMood(bg, day, c.Score, notes); err != nil {
		return err
	}

	fmt.Printf("Recorded mood %d for %s\n", c.Score, day)
	ctx.AutoSync(bg)
	return nil
}
