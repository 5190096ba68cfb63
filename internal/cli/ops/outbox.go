package ops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/storage"
)

type OutboxCmd struct {
	List    OutboxListCmd    `cmd:"" help:"List queued operations." default:"1"`
	Dead    OutboxDeadCmd    `cmd:"" help:"List operations that exhausted their retries."`
	Requeue OutboxRequeueCmd `cmd:"" help:"Reset a dead or backing-off operation so it is sent on the next sync."`
	Discard OutboxDiscardCmd `cmd:"" help:"Permanently drop a queued operation."`
}

type OutboxListCmd struct{}

func (c *OutboxListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	stats, err := ctx.Queue.Stats(bg)
	if err != nil {
		return err
	}
	fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("Outbox: %d due, %d waiting, %d dead", stats.Due, stats.Waiting, stats.Dead)))

	pending, err := ctx.Queue.All(bg)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No queued operations.")
		return nil
	}
	fmt.Println()
	for _, op := range pending {
		printOp(op)
	}
	return nil
}

type OutboxDeadCmd struct{}

func (c *OutboxDeadCmd) Run(ctx *cli.Context) error {
	dead, err := ctx.Queue.DeadLetters(context.Background())
	if err != nil {
		return err
	}
	if len(dead) == 0 {
		fmt.Println("No dead operations.")
		return nil
	}
	for _, op := range dead {
		printOp(op)
	}
	return nil
}

func printOp(op models.Operation) {
	state := cli.OKStyle.Render("due")
	switch {
	case op.DeadAt != nil:
		state = cli.ErrorStyle.Render("dead")
	case op.NextAttemptAt != nil && op.NextAttemptAt.After(time.Now()):
		state = cli.WarnStyle.Render("retry " + op.NextAttemptAt.Local().Format("15:04:05"))
	}
	fmt.Printf("%s  %-15s attempts=%d  %s  %s\n", op.ID, op.Type, op.Attempts,
		cli.DimStyle.Render(op.CreatedAt.Local().Format("2006-01-02 15:04")), state)
	if op.LastError != nil {
		fmt.Printf("    %s\n", cli.DimStyle.Render(*op.LastError))
	}
}

type OutboxRequeueCmd struct {
	ID string `arg:"" help:"Operation id."`
}

func (c *OutboxRequeueCmd) Run(ctx *cli.Context) error {
	err := ctx.Queue.Requeue(context.Background(), c.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("operation %s not found", c.ID)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Requeued operation %s\n", c.ID)
	return nil
}

type OutboxDiscardCmd struct {
	ID  string `arg:"" help:"Operation id."`
	Yes bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *OutboxDiscardCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	op, err := ctx.Store.GetOp(bg, c.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("operation %s not found", c.ID)
	}
	if err != nil {
		return err
	}

	if !c.Yes {
		confirmed := false
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Discard %s operation %s?", op.Type, op.ID)).
					Description("The change it carries will never reach the server.").
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive form error: %w", err)
		}
		if !confirmed {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	ctx.PerformAutomaticBackup()
	if err := ctx.Queue.Discard(bg, c.ID); err != nil {
		return err
	}
	fmt.Printf("Discarded operation %s\n", c.ID)
	return nil
}
