package system

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/julianstephens/habitsync/internal/backup"
	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/storage"
)

func newTestContext(t *testing.T) *cli.Context {
	t.Helper()
	store := storage.NewStore(filepath.Join(t.TempDir(), "habitsync.db"))
	t.Cleanup(func() { store.Close() })
	return cli.NewContext(store)
}

func TestInitCreatesDatabase(t *testing.T) {
	ctx := newTestContext(t)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(ctx.Store.GetConfigPath()); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
	current, latest, err := ctx.Store.SchemaStatus()
	if err != nil {
		t.Fatalf("SchemaStatus() failed: %v", err)
	}
	if current != latest {
		t.Errorf("schema version = %d, want %d", current, latest)
	}
}

func TestInitKeepsExistingData(t *testing.T) {
	ctx := newTestContext(t)
	bg := context.Background()

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := ctx.Tracker.CreateHabit(bg, "Read", nil); err != nil {
		t.Fatalf("CreateHabit() failed: %v", err)
	}
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("second init failed: %v", err)
	}

	habits, err := ctx.Store.ListHabits(bg, true)
	if err != nil {
		t.Fatalf("ListHabits() failed: %v", err)
	}
	if len(habits) != 1 {
		t.Errorf("habits after re-init = %d, want 1", len(habits))
	}
}

func TestInitForceReplacesDatabase(t *testing.T) {
	ctx := newTestContext(t)
	bg := context.Background()

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := ctx.Tracker.CreateHabit(bg, "Read", nil); err != nil {
		t.Fatalf("CreateHabit() failed: %v", err)
	}
	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("forced init failed: %v", err)
	}

	habits, err := ctx.Store.ListHabits(bg, true)
	if err != nil {
		t.Fatalf("ListHabits() failed: %v", err)
	}
	if len(habits) != 0 {
		t.Errorf("habits after forced init = %d, want 0", len(habits))
	}

	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("backups after forced init = %d, want 1", len(backups))
	}
}
