package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/syncclient"
	"github.com/julianstephens/habitsync/internal/utils"
)

// maxSyncRounds bounds how many batches one 'habitsync sync' sends.
const maxSyncRounds = 50

type SyncCmd struct {
	Once bool `help:"Send a single batch instead of draining the outbox."`
}

func (c *SyncCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	engine, err := ctx.SyncEngine()
	if err != nil {
		return err
	}
	credential, err := ctx.Credential()
	if err != nil {
		return err
	}

	var total syncclient.Result
	for round := 0; round < maxSyncRounds; round++ {
		result, err := engine.SyncNow(bg, credential)
		if errors.Is(err, syncclient.ErrSyncInProgress) {
			fmt.Println(cli.WarnStyle.Render(result.Error))
			return nil
		}
		if err != nil {
			return err
		}
		total.Applied += result.Applied
		total.Skipped += result.Skipped
		total.Failed += result.Failed
		if result.Error != "" {
			total.Error = result.Error
			break
		}
		if c.Once || result.Applied+result.Skipped == 0 {
			break
		}
	}

	summary := syncclient.Summary(total)
	switch {
	case total.Error != "":
		return fmt.Errorf("sync failed: %s", summary)
	case total.Failed > 0:
		fmt.Println(cli.WarnStyle.Render(summary))
		fmt.Println(cli.DimStyle.Render("Failed operations are retried with backoff. See 'habitsync outbox list'."))
	default:
		fmt.Println(cli.OKStyle.Render(summary))
	}
	return nil
}

type PullCmd struct {
	Checkins int `help:"Also pull check-ins for this many days ending today." default:"0"`
}

func (c *PullCmd) Run(ctx *cli.Context) error {
	engine, err := ctx.SyncEngine()
	if err != nil {
		return err
	}
	credential, err := ctx.Credential()
	if err != nil {
		return err
	}

	report, err := engine.Pull(context.Background(), credential)
	if err != nil {
		return err
	}
	fmt.Printf("Pulled habits: %d new, %d updated, %d kept\n", report.Inserted, report.Updated, report.Kept)

	today := time.Now()
	for i := c.Checkins - 1; i >= 0; i-- {
		date := utils.FormatDate(today.AddDate(0, 0, -i))
		if _, err := engine.PullCheckin(context.Background(), credential, date); err != nil {
			return err
		}
	}
	if c.Checkins > 0 {
		fmt.Printf("Pulled check-ins for %d day(s)\n", c.Checkins)
	}
	return nil
}
