package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitsync/internal/auth"
	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/config"
	"github.com/julianstephens/habitsync/internal/logger"
	"github.com/julianstephens/habitsync/internal/server"
	"github.com/julianstephens/habitsync/internal/serverstore"
)

// ServeCmd runs the sync server in the foreground until interrupted.
type ServeCmd struct {
	Config string `help:"Server config file (TOML)." type:"path"`
	Addr   string `help:"Listen address, overrides the config file."`
	Driver string `help:"Database driver (sqlite or postgres), overrides the config file."`
	DSN    string `name:"dsn" help:"Database DSN, overrides the config file."`
	Debug  bool   `help:"Enable debug logging."`
}

func (c *ServeCmd) Run(_ *cli.Context) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.Driver != "" {
		cfg.Driver = c.Driver
	}
	if c.DSN != "" {
		cfg.DSN = c.DSN
	}
	if c.Debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Debug:     cfg.Debug,
		ConfigDir: cfg.LogDir,
		Name:      "habitsync-server",
		Stderr:    true,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := serverstore.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting sync server", "addr", cfg.Addr, "driver", cfg.Driver, "users", len(cfg.Users))
	return server.New(cfg, store).Run(ctx)
}

// HashTokenCmd prints the bcrypt hash of a token for the server config's
// token_hash field.
type HashTokenCmd struct {
	Token string `arg:"" optional:"" help:"Token to hash. Prompted for when omitted."`
}

func (c *HashTokenCmd) Run(_ *cli.Context) error {
	token := strings.TrimSpace(c.Token)
	if token == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Token").
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
	}

	hash, err := auth.HashToken(strings.TrimSpace(token))
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
