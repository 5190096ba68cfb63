package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/julianstephens/habitsync/internal/backup"
	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/storage"
)

func setupTestContext(t *testing.T) *cli.Context {
	t.Helper()
	store := storage.NewStore(filepath.Join(t.TempDir(), "habitsync.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return cli.NewContext(store)
}

func TestOutboxDiscard(t *testing.T) {
	ctx := setupTestContext(t)
	bg := context.Background()

	if err := ctx.Tracker.SetMood(bg, "2024-03-01", 3, nil); err != nil {
		t.Fatalf("SetMood() failed: %v", err)
	}
	ops, err := ctx.Queue.All(bg)
	if err != nil || len(ops) != 1 {
		t.Fatalf("All() = %d ops, %v; want 1", len(ops), err)
	}

	if err := (&OutboxListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if err := (&OutboxDiscardCmd{ID: ops[0].ID, Yes: true}).Run(ctx); err != nil {
		t.Fatalf("discard failed: %v", err)
	}

	remaining, err := ctx.Queue.All(bg)
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("ops after discard = %d, want 0", len(remaining))
	}

	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("backups after discard = %d, want 1", len(backups))
	}
}

func TestOutboxUnknownOperation(t *testing.T) {
	ctx := setupTestContext(t)

	if err := (&OutboxRequeueCmd{ID: "missing"}).Run(ctx); err == nil {
		t.Error("requeue of an unknown op succeeded")
	}
	if err := (&OutboxDiscardCmd{ID: "missing", Yes: true}).Run(ctx); err == nil {
		t.Error("discard of an unknown op succeeded")
	}
	if err := (&OutboxDeadCmd{}).Run(ctx); err != nil {
		t.Errorf("dead list failed: %v", err)
	}
}
