// Package system holds the setup and maintenance commands: init, doctor,
// serve and hash-token.
package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/habitsync/internal/cli"
)

type InitCmd struct {
	Force bool `help:"Back up and replace an existing database with an empty one."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	path := ctx.Store.GetConfigPath()

	if c.Force {
		if _, err := os.Stat(path); err == nil {
			if err := ctx.Store.Load(); err == nil {
				ctx.PerformAutomaticBackup()
			}
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close database: %w", err)
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove existing database: %w", err)
			}
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized habitsync storage at: %s\n", path)
	return nil
}
