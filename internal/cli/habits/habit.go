package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/habitsync/internal/analytics"
	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/storage"
	"github.com/julianstephens/habitsync/internal/utils"
)

type HabitCmd struct {
	Add       HabitAddCmd       `cmd:"" help:"Add a new habit."`
	List      HabitListCmd      `cmd:"" help:"List habits with today's status."`
	Update    HabitUpdateCmd    `cmd:"" help:"Rename or recolor a habit."`
	Archive   HabitArchiveCmd   `cmd:"" help:"Archive a habit."`
	Unarchive HabitUnarchiveCmd `cmd:"" help:"Restore an archived habit."`
}

// findHabit resolves a habit by id or case-insensitive name.
func findHabit(ctx context.Context, store *storage.Store, ref string) (models.Habit, error) {
	h, err := store.FindHabit(ctx, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Habit{}, fmt.Errorf("habit %q not found", ref)
	}
	return h, err
}

func optionalColor(color string) *string {
	if color == "" {
		return nil
	}
	return &color
}

type HabitAddCmd struct {
	Name  string `arg:"" help:"Habit name."`
	Color string `help:"Display color (hex like #ff8800 or an ANSI color number)."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	if _, err := ctx.Store.FindHabit(bg, strings.TrimSpace(c.Name)); err == nil {
		return fmt.Errorf("habit with name %q already exists", c.Name)
	}

	habit, err := ctx.Tracker.CreateHabit(bg, c.Name, optionalColor(c.Color))
	if err != nil {
		return err
	}

	fmt.Printf("Added habit: %s %s\n", habit.Name, cli.DimStyle.Render(habit.ID))
	ctx.AutoSync(bg)
	return nil
}

type HabitListCmd struct {
	Archived bool `help:"Include archived habits."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	habits, err := ctx.Store.ListHabits(bg, c.Archived)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	today := utils.Today()
	done, err := ctx.Store.CompletedHabitIDs(bg, today)
	if err != nil {
		return err
	}
	engine := analytics.NewEngine(ctx.Store)

	fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("Habits for %s", today)))
	for _, h := range habits {
		mark := "[ ]"
		if done[h.ID] {
			mark = cli.OKStyle.Render("[x]")
		}
		streak, err := engine.CurrentStreak(bg, h.ID, today)
		if err != nil {
			return err
		}
		status := ""
		if h.IsArchived {
			status = cli.DimStyle.Render(" [ARCHIVED]")
		}
		fmt.Printf("%s %s %-24s %s%s\n", mark, cli.Swatch(h.Color), h.Name,
			cli.DimStyle.Render(fmt.Sprintf("streak %d", streak)), status)
	}
	return nil
}

type HabitUpdateCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Name  string `help:"New name."`
	Color string `help:"New display color."`
}

func (c *HabitUpdateCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	h, err := findHabit(bg, ctx.Store, c.Habit)
	if err != nil {
		return err
	}
	patch := models.HabitPatch{Color: optionalColor(c.Color)}
	if c.Name != "" {
		patch.Name = &c.Name
	}
	if patch.Empty() {
		return errors.New("nothing to update, pass --name or --color")
	}

	updated, err := ctx.Tracker.UpdateHabit(bg, h.ID, patch)
	if err != nil {
		return err
	}
	fmt.Printf("Updated habit: %s\n", updated.Name)
	ctx.AutoSync(bg)
	return nil
}

type HabitArchiveCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	return setArchived(ctx, c.Habit, true)
}

type HabitUnarchiveCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitUnarchiveCmd) Run(ctx *cli.Context) error {
	return setArchived(ctx, c.Habit, false)
}

func setArchived(ctx *cli.Context, ref string, archived bool) error {
	bg := context.Background()

	h, err := findHabit(bg, ctx.Store, ref)
	if err != nil {
		return err
	}
	if h.IsArchived == archived {
		fmt.Printf("Habit %s is unchanged\n", h.Name)
		return nil
	}
	if _, err := ctx.Tracker.ArchiveHabit(bg, h.ID, archived); err != nil {
		return err
	}
	if archived {
		fmt.Printf("Archived habit: %s\n", h.Name)
	} else {
		fmt.Printf("Unarchived habit: %s\n", h.Name)
	}
	ctx.AutoSync(bg)
	return nil
}
