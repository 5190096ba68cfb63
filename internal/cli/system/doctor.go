package system

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/habitsync/internal/backup"
	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/keyring"
	"github.com/julianstephens/habitsync/internal/models"
)

type DoctorCmd struct{}

// checkResult is the outcome of one diagnostic. A warning is reported but
// does not fail the run.
type checkResult struct {
	err  error
	warn bool
	skip string
}

type check struct {
	name string
	run  func(ctx context.Context, c *cli.Context) checkResult
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	failed := runChecks(context.Background(), ctx, doctorChecks())

	fmt.Println()
	if failed {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

func doctorChecks() []check {
	return []check{
		{"Database reachable", checkDBReachable},
		{"Schema version", checkSchemaVersion},
		{"Outbox", checkOutbox},
		{"Completion references", checkOrphanCompletions},
		{"Backups present", checkBackupsPresent},
		{"Clock/timezone", checkClockTimezone},
		{"Keyring", checkKeyring},
		{"Sync server", checkServer},
	}
}

// runChecks prints every result and reports whether any check failed. Once
// the database is unreachable the checks that need it are skipped.
func runChecks(bg context.Context, ctx *cli.Context, checks []check) bool {
	failed := false
	dbReachable := true
	for i, chk := range checks {
		var res checkResult
		if i > 0 && !dbReachable && chk.needsDB() {
			res = checkResult{skip: "database not reachable"}
		} else {
			res = chk.run(bg, ctx)
		}
		if i == 0 && res.err != nil {
			dbReachable = false
		}

		switch {
		case res.skip != "":
			fmt.Printf("⊘ %s: SKIPPED (%s)\n", chk.name, res.skip)
		case res.err != nil && res.warn:
			fmt.Printf("%s %s: WARNING\n", cli.WarnStyle.Render("⚠"), chk.name)
			fmt.Printf("   %v\n", res.err)
		case res.err != nil:
			fmt.Printf("%s %s: FAIL\n", cli.ErrorStyle.Render("❌"), chk.name)
			fmt.Printf("   Error: %v\n", res.err)
			failed = true
		default:
			fmt.Printf("%s %s: OK\n", cli.OKStyle.Render("✓"), chk.name)
		}
	}
	return failed
}

func (c check) needsDB() bool {
	switch c.name {
	case "Clock/timezone", "Keyring", "Sync server":
		return false
	}
	return true
}

func fail(err error) checkResult { return checkResult{err: err} }
func warn(err error) checkResult { return checkResult{err: err, warn: true} }

func checkDBReachable(_ context.Context, ctx *cli.Context) checkResult {
	if err := ctx.Store.Load(); err != nil {
		return fail(fmt.Errorf("failed to load database: %w", err))
	}
	db := ctx.Store.GetDB()
	if db == nil {
		return fail(fmt.Errorf("database connection is nil"))
	}
	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		return fail(fmt.Errorf("failed to query database: %w", err))
	}
	return checkResult{}
}

func checkSchemaVersion(_ context.Context, ctx *cli.Context) checkResult {
	current, latest, err := ctx.Store.SchemaStatus()
	if err != nil {
		return fail(fmt.Errorf("failed to get schema version: %w", err))
	}
	if current > latest {
		return fail(fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest))
	}
	if current < latest {
		return fail(fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest))
	}
	return checkResult{}
}

// checkOutbox fails on queued operations whose payload no longer decodes
// and warns on dead letters.
func checkOutbox(bg context.Context, ctx *cli.Context) checkResult {
	ops, err := ctx.Queue.All(bg)
	if err != nil {
		return fail(fmt.Errorf("failed to read outbox: %w", err))
	}
	for _, op := range ops {
		if _, err := models.DecodePayload(op.Type, op.Payload); err != nil {
			return fail(fmt.Errorf("operation %s: %w", op.ID, err))
		}
	}

	stats, err := ctx.Queue.Stats(bg)
	if err != nil {
		return fail(fmt.Errorf("failed to count outbox: %w", err))
	}
	if stats.Dead > 0 {
		return warn(fmt.Errorf("%d dead operation(s), see 'habitsync outbox dead'", stats.Dead))
	}
	return checkResult{}
}

func checkOrphanCompletions(bg context.Context, ctx *cli.Context) checkResult {
	n, err := ctx.Store.CountOrphanCompletions(bg)
	if err != nil {
		return fail(err)
	}
	if n > 0 {
		return warn(fmt.Errorf("%d completion(s) reference habits missing locally, run 'habitsync pull'", n))
	}
	return checkResult{}
}

func checkBackupsPresent(_ context.Context, ctx *cli.Context) checkResult {
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		return warn(fmt.Errorf("failed to list backups: %w", err))
	}
	if len(backups) == 0 {
		return warn(fmt.Errorf("no backups found, consider creating one with 'habitsync backup create'"))
	}
	return checkResult{}
}

func checkClockTimezone(_ context.Context, _ *cli.Context) checkResult {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fail(fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339)))
	}
	return checkResult{}
}

func checkKeyring(_ context.Context, ctx *cli.Context) checkResult {
	if ctx.Server == "" || ctx.Token != "" {
		return checkResult{skip: "not needed"}
	}
	if !keyring.IsAvailable() {
		return warn(fmt.Errorf("OS keyring unavailable, set the token through the environment instead"))
	}
	return checkResult{}
}

func checkServer(bg context.Context, ctx *cli.Context) checkResult {
	engine, err := ctx.SyncEngine()
	if err != nil {
		return checkResult{skip: "no server configured"}
	}
	if err := engine.Ping(bg); err != nil {
		return warn(fmt.Errorf("server %s unreachable: %w", ctx.Server, err))
	}
	credential, err := ctx.Credential()
	if err != nil {
		return warn(err)
	}
	if err := engine.CheckCredential(bg, credential); err != nil {
		return fail(fmt.Errorf("credential rejected: %w", err))
	}
	return checkResult{}
}
