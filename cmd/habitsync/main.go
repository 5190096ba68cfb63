package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/cli/backups"
	"github.com/julianstephens/habitsync/internal/cli/habits"
	"github.com/julianstephens/habitsync/internal/cli/ops"
	"github.com/julianstephens/habitsync/internal/cli/remote"
	"github.com/julianstephens/habitsync/internal/cli/system"
	"github.com/julianstephens/habitsync/internal/constants"
	"github.com/julianstephens/habitsync/internal/errors"
	"github.com/julianstephens/habitsync/internal/logger"
	"github.com/julianstephens/habitsync/internal/storage"
)

var CLI struct {
	Version kong.VersionFlag
	DB      string `help:"Local database path." type:"path" default:"${db}" env:"HABITSYNC_DB"`
	Server  string `help:"Sync server base URL." env:"HABITSYNC_SERVER"`
	Token   string `help:"Bearer token, overrides the one stored by 'habitsync login'." env:"HABITSYNC_TOKEN"`
	NoSync  bool   `help:"Do not sync after local changes."`
	Debug   bool   `help:"Enable debug logging."`

	Init   system.InitCmd   `cmd:"" help:"Initialize habitsync storage."`
	Doctor system.DoctorCmd `cmd:"" help:"Run health checks on the local database and sync setup."`

	Habit  habits.HabitCmd  `cmd:"" help:"Manage habits."`
	Done   habits.DoneCmd   `cmd:"" help:"Mark a habit done for a day."`
	Undone habits.UndoneCmd `cmd:"" help:"Clear a habit's completion for a day."`
	Mood   habits.MoodCmd   `cmd:"" help:"Record the mood for a day (1-5)."`
	Streak habits.StreakCmd `cmd:"" help:"Show current streaks."`
	Log    habits.LogCmd    `cmd:"" help:"Show a completion grid for recent days."`
	Stats  habits.StatsCmd  `cmd:"" help:"Show completion rates and mood for a date range."`

	Sync   remote.SyncCmd   `cmd:"" help:"Push queued changes to the sync server."`
	Pull   remote.PullCmd   `cmd:"" help:"Fetch habits from the sync server."`
	Login  remote.LoginCmd  `cmd:"" help:"Store a sync credential in the OS keyring."`
	Logout remote.LogoutCmd `cmd:"" help:"Remove the stored sync credential."`
	Outbox ops.OutboxCmd    `cmd:"" help:"Inspect and repair the sync outbox."`

	Backup backups.BackupCmd `cmd:"" help:"Manage local database backups."`

	Serve     system.ServeCmd     `cmd:"" help:"Run the sync server."`
	HashToken system.HashTokenCmd `cmd:"" name:"hash-token" help:"Print the bcrypt hash of a token for the server config."`
}

// storeless lists the commands that manage the database themselves or never
// touch it.
var storeless = map[string]bool{
	"init":       true,
	"doctor":     true,
	"serve":      true,
	"hash-token": true,
	"login":      true,
	"logout":     true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Offline-first habit and mood tracker with server sync"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{
			"version": constants.Version,
			"db":      constants.DefaultConfigPath,
		},
	)

	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: filepath.Dir(CLI.DB),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	store := storage.NewStore(CLI.DB)
	defer store.Close()

	appCtx := cli.NewContext(store)
	appCtx.Server = strings.TrimSpace(CLI.Server)
	appCtx.Token = strings.TrimSpace(CLI.Token)
	appCtx.NoSync = CLI.NoSync

	command := strings.Fields(ctx.Command())[0]
	if !storeless[command] {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
	}

	errors.Fatal(ctx.Run(appCtx))
}
