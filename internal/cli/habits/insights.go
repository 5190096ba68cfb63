package habits

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/habitsync/internal/analytics"
	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/constants"
	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/utils"
)

type StreakCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Reference date in YYYY-MM-DD format (default: today)."`
}

func (c *StreakCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	day, err := cli.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	h, err := findHabit(bg, ctx.Store, c.Habit)
	if err != nil {
		return err
	}
	streak, err := analytics.NewEngine(ctx.Store).CurrentStreak(bg, h.ID, day)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d day streak as of %s\n", h.Name, streak, day)
	return nil
}

type LogCmd struct {
	Days  int    `help:"Number of days to show (default: 14)."`
	Habit string `help:"Show log for specific habit only."`
}

const logNameWidth = 20

func (c *LogCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	if c.Days == 0 {
		c.Days = constants.DefaultLogViewDays
	}
	if c.Days < 1 || c.Days > 366 {
		return fmt.Errorf("days must be between 1 and 366")
	}

	var selected []models.Habit
	if c.Habit != "" {
		h, err := findHabit(bg, ctx.Store, c.Habit)
		if err != nil {
			return err
		}
		selected = []models.Habit{h}
	} else {
		habits, err := ctx.Store.ListHabits(bg, false)
		if err != nil {
			return err
		}
		selected = habits
	}
	if len(selected) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	today := utils.Today()
	start, err := utils.AddDays(today, -(c.Days - 1))
	if err != nil {
		return err
	}
	days, err := utils.DateRange(start, today)
	if err != nil {
		return err
	}

	fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("Habit log (last %d days)", c.Days)))
	fmt.Println()

	var header strings.Builder
	header.WriteString(strings.Repeat(" ", logNameWidth))
	for _, d := range days {
		header.WriteString(" " + d[5:]) // MM-DD
	}
	fmt.Println(header.String())
	fmt.Println(strings.Repeat("-", logNameWidth+6*len(days)))

	engine := analytics.NewEngine(ctx.Store)
	for _, h := range selected {
		marks, err := engine.LastNDays(bg, h.ID, c.Days, today)
		if err != nil {
			return err
		}
		var row strings.Builder
		row.WriteString(padName(h.Name))
		for _, done := range marks {
			if done {
				row.WriteString("   " + cli.OKStyle.Render("x") + "  ")
			} else {
				row.WriteString("   " + cli.DimStyle.Render(".") + "  ")
			}
		}
		fmt.Println(row.String())
	}
	return nil
}

func padName(name string) string {
	r := []rune(name)
	if len(r) > logNameWidth {
		return string(r[:logNameWidth-3]) + "..."
	}
	return name + strings.Repeat(" ", logNameWidth-len(r))
}

type StatsCmd struct {
	From  string `help:"First day in YYYY-MM-DD format (default: six days before --to)."`
	To    string `help:"Last day in YYYY-MM-DD format (default: today)."`
	Moods bool   `help:"Also print the day-by-day mood series."`
}

func (c *StatsCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	to, err := cli.ResolveDate(c.To)
	if err != nil {
		return err
	}
	from := c.From
	if from == "" {
		if from, err = utils.AddDays(to, -(constants.DefaultStatsDays - 1)); err != nil {
			return err
		}
	} else if !utils.ValidateDate(from) {
		return fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", from)
	}

	engine := analytics.NewEngine(ctx.Store)
	summary, err := engine.RangeStats(bg, from, to)
	if err != nil {
		return err
	}

	fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("Stats %s to %s (%d days)", summary.From, summary.To, summary.Days)))
	fmt.Println()
	fmt.Printf("Completion:   %.2f%%\n", summary.CompletionPercent)
	if summary.AvgMood != nil {
		fmt.Printf("Average mood: %.2f\n", *summary.AvgMood)
	} else {
		fmt.Printf("Average mood: %s\n", cli.DimStyle.Render("no entries"))
	}
	fmt.Printf("Best streak:  %d\n", summary.BestStreak)

	if len(summary.Habits) > 0 {
		fmt.Println()
		for _, h := range summary.Habits {
			fmt.Printf("%s %s %3d done  %5.1f%%  streak %d\n", cli.Swatch(h.Color), padName(h.Name),
				h.CompletionCount, h.CompletionRate*100, h.CurrentStreak)
		}
	}

	if c.Moods {
		series, err := engine.MoodSeries(bg, from, to)
		if err != nil {
			return err
		}
		fmt.Println()
		for _, p := range series {
			bar := cli.DimStyle.Render("-")
			if p.Mood > 0 {
				bar = strings.Repeat("█", p.Mood)
			}
			fmt.Printf("%s %s\n", p.Date, bar)
		}
	}
	return nil
}
