// Package cli holds the shared context and helpers for habitsync commands.
// Command implementations live in the subpackages.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/julianstephens/habitsync/internal/backup"
	"github.com/julianstephens/habitsync/internal/constants"
	"github.com/julianstephens/habitsync/internal/keyring"
	"github.com/julianstephens/habitsync/internal/logger"
	"github.com/julianstephens/habitsync/internal/outbox"
	"github.com/julianstephens/habitsync/internal/storage"
	"github.com/julianstephens/habitsync/internal/syncclient"
	"github.com/julianstephens/habitsync/internal/tracker"
	"github.com/julianstephens/habitsync/internal/utils"
)

// autoSyncTimeout bounds the opportunistic sync after a mutation.
const autoSyncTimeout = 10 * time.Second

// ErrNoServer is returned by sync commands when no server URL is configured.
var ErrNoServer = fmt.Errorf("no sync server configured, set --server or %s", constants.EnvServer)

type Context struct {
	Store   *storage.Store
	Queue   *outbox.Queue
	Tracker *tracker.Tracker

	// Server is the sync server base URL, empty when syncing is disabled.
	Server string
	// Token overrides the credential stored in the keyring.
	Token string
	// NoSync disables the sync that follows local mutations.
	NoSync bool
}

// NewContext wires the local services around store.
func NewContext(store *storage.Store) *Context {
	queue := outbox.NewQueue(store, outbox.DefaultPolicy())
	return &Context{
		Store:   store,
		Queue:   queue,
		Tracker: tracker.New(store, queue),
	}
}

// Credential returns the bearer credential for the configured server.
func (c *Context) Credential() (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	token, err := keyring.GetCredential(c.Server)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("no credential for %s, run 'habitsync login' or set %s", c.Server, constants.EnvToken)
	}
	return token, err
}

// SyncEngine returns a sync engine for the configured server.
func (c *Context) SyncEngine() (*syncclient.Engine, error) {
	if c.Server == "" {
		return nil, ErrNoServer
	}
	return syncclient.NewEngine(c.Server, c.Store, c.Queue), nil
}

// AutoSync pushes pending operations after a local mutation. Failures are
// reported but never fail the command; the operations stay queued.
func (c *Context) AutoSync(ctx context.Context) {
	if c.NoSync || c.Server == "" {
		return
	}
	credential, err := c.Credential()
	if err != nil {
		logger.Debug("Skipping sync", "reason", err)
		return
	}
	engine, err := c.SyncEngine()
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, autoSyncTimeout)
	defer cancel()
	result, err := engine.SyncNow(ctx, credential)
	if err != nil {
		if !errors.Is(err, syncclient.ErrSyncInProgress) {
			logger.Warn("Automatic sync failed", "error", err)
		}
		return
	}
	if result.Error != "" || result.Failed > 0 {
		fmt.Fprintln(os.Stderr, WarnStyle.Render("Sync: "+syncclient.Summary(result)))
		return
	}
	if result.Applied+result.Skipped > 0 {
		fmt.Println(DimStyle.Render(syncclient.Summary(result)))
	}
}

// PerformAutomaticBackup snapshots the local database before a destructive
// change. Failures are logged and never interrupt the command.
func (c *Context) PerformAutomaticBackup() {
	if _, err := backup.NewManager(c.Store.GetConfigPath()).Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// ResolveDate defaults an empty date to today and validates the rest.
func ResolveDate(date string) (string, error) {
	if date == "" {
		return utils.Today(), nil
	}
	if !utils.ValidateDate(date) {
		return "", fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", date)
	}
	return date, nil
}
