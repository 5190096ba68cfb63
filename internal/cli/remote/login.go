package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/keyring"
)

// LoginCmd stores the bearer credential for the sync server in the OS keyring.
type LoginCmd struct {
	Token    string `help:"Bearer token. Prompted for when omitted."`
	NoVerify bool   `help:"Store the token without checking it against the server."`
}

func (c *LoginCmd) Run(ctx *cli.Context) error {
	engine, err := ctx.SyncEngine()
	if err != nil {
		return err
	}

	token := strings.TrimSpace(c.Token)
	if token == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title(fmt.Sprintf("Token for %s", ctx.Server)).
					EchoMode(huh.EchoModePassword).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return errors.New("token cannot be empty")
						}
						return nil
					}).
					Value(&token),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive form error: %w", err)
		}
		token = strings.TrimSpace(token)
	}

	if !c.NoVerify {
		if err := engine.CheckCredential(context.Background(), token); err != nil {
			return fmt.Errorf("server rejected the token: %w", err)
		}
	}

	if err := keyring.SetCredential(ctx.Server, token); err != nil {
		return err
	}
	fmt.Printf("%s Credential for %s stored in OS keyring\n", cli.OKStyle.Render("✓"), ctx.Server)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cli.Context) error {
	if ctx.Server == "" {
		return cli.ErrNoServer
	}
	err := keyring.DeleteCredential(ctx.Server)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("no credential stored for %s", ctx.Server)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s Credential for %s removed from OS keyring\n", cli.OKStyle.Render("✓"), ctx.Server)
	return nil
}
