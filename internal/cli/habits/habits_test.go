package habits

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/julianstephens/habitsync/internal/cli"
	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/storage"
)

func setupTestContext(t *testing.T) *cli.Context {
	t.Helper()
	store := storage.NewStore(filepath.Join(t.TempDir(), "habitsync.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := cli.NewContext(store)
	ctx.NoSync = true
	return ctx
}

func queuedTypes(t *testing.T, ctx *cli.Context) []models.OpType {
	t.Helper()
	ops, err := ctx.Queue.All(context.Background())
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	types := make([]models.OpType, 0, len(ops))
	for _, op := range ops {
		types = append(types, op.Type)
	}
	return types
}

func TestCommandsQueueOperations(t *testing.T) {
	ctx := setupTestContext(t)
	bg := context.Background()

	steps := []interface{ Run(*cli.Context) error }{
		&HabitAddCmd{Name: "Read", Color: "#ff8800"},
		&DoneCmd{Habit: "read", Date: "2024-03-01"},
		&DoneCmd{Habit: "Read", Date: "2024-03-02"},
		&MoodCmd{Score: 4, Date: "2024-03-02", Note: "good"},
		&HabitUpdateCmd{Habit: "Read", Name: "Read books"},
		&UndoneCmd{Habit: "Read books", Date: "2024-03-01"},
		&HabitListCmd{},
		&StreakCmd{Habit: "Read books", Date: "2024-03-02"},
		&LogCmd{Days: 3},
		&StatsCmd{From: "2024-03-01", To: "2024-03-02", Moods: true},
	}
	for i, step := range steps {
		if err := step.Run(ctx); err != nil {
			t.Fatalf("step %d (%T) failed: %v", i, step, err)
		}
	}

	want := []models.OpType{
		models.OpHabitCreate,
		models.OpCompletionSet,
		models.OpCompletionSet,
		models.OpMoodSet,
		models.OpHabitUpdate,
		models.OpCompletionSet,
	}
	if diff := cmp.Diff(want, queuedTypes(t, ctx)); diff != "" {
		t.Errorf("queued op types mismatch (-want +got):\n%s", diff)
	}

	h, err := ctx.Store.FindHabit(bg, "Read books")
	if err != nil {
		t.Fatalf("FindHabit() failed: %v", err)
	}
	dates, err := ctx.Store.CompletionDates(bg, h.ID, "2024-03-01", "2024-03-02")
	if err != nil {
		t.Fatalf("CompletionDates() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"2024-03-02"}, dates); diff != "" {
		t.Errorf("completion dates mismatch (-want +got):\n%s", diff)
	}
}

func TestArchiveIsIdempotent(t *testing.T) {
	ctx := setupTestContext(t)

	if err := (&HabitAddCmd{Name: "Run"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := (&HabitArchiveCmd{Habit: "Run"}).Run(ctx); err != nil {
			t.Fatalf("archive %d failed: %v", i, err)
		}
	}

	want := []models.OpType{models.OpHabitCreate, models.OpHabitUpdate}
	if diff := cmp.Diff(want, queuedTypes(t, ctx)); diff != "" {
		t.Errorf("queued op types mismatch (-want +got):\n%s", diff)
	}

	habits, err := ctx.Store.ListHabits(context.Background(), false)
	if err != nil {
		t.Fatalf("ListHabits() failed: %v", err)
	}
	if len(habits) != 0 {
		t.Errorf("active habits = %d, want 0", len(habits))
	}
}

func TestCommandErrors(t *testing.T) {
	ctx := setupTestContext(t)
	if err := (&HabitAddCmd{Name: "Read"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	tests := []struct {
		name string
		cmd  interface{ Run(*cli.Context) error }
	}{
		{"duplicate name", &HabitAddCmd{Name: "Read"}},
		{"unknown habit", &DoneCmd{Habit: "Swim"}},
		{"invalid date", &DoneCmd{Habit: "Read", Date: "03/01/2024"}},
		{"mood out of range", &MoodCmd{Score: 6}},
		{"empty update", &HabitUpdateCmd{Habit: "Read"}},
		{"log days out of range", &LogCmd{Days: 400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Run(ctx); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if got := len(queuedTypes(t, ctx)); got != 1 {
		t.Errorf("queued ops after rejected commands = %d, want 1", got)
	}
}
