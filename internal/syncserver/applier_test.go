package syncserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/julianstephens/habitsync/internal/errors"
	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/serverstore"
)

func setupTestApplier(t *testing.T) (*Applier, *serverstore.Store) {
	t.Helper()
	store, err := serverstore.Open("sqlite", filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewApplier(store), store
}

func op(id string, typ models.OpType, payload string) models.SyncOp {
	return models.SyncOp{ID: id, Type: typ, Payload: json.RawMessage(payload)}
}

func TestApplyHabitThenCompletion(t *testing.T) {
	a, store := setupTestApplier(t)
	ctx := context.Background()

	resp := a.Apply(ctx, "alice", []models.SyncOp{
		op("a", models.OpHabitCreate, `{"clientHabitId":"h1","name":"Read"}`),
		op("b", models.OpCompletionSet, `{"date":"2024-03-01","habitId":"h1","done":true}`),
	})
	want := models.SyncResponse{Applied: []string{"a", "b"}, Skipped: []string{}, Failed: []models.FailedOp{}}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}

	dates, _ := store.CompletionDates(ctx, "alice", "h1", "", "2024-12-31")
	if diff := cmp.Diff([]string{"2024-03-01"}, dates); diff != "" {
		t.Errorf("completions mismatch (-want +got):\n%s", diff)
	}

	// Replaying the same batch applies nothing new.
	resp = a.Apply(ctx, "alice", []models.SyncOp{
		op("a", models.OpHabitCreate, `{"clientHabitId":"h1","name":"Read"}`),
		op("b", models.OpCompletionSet, `{"date":"2024-03-01","habitId":"h1","done":true}`),
	})
	want = models.SyncResponse{Applied: []string{}, Skipped: []string{"a", "b"}, Failed: []models.FailedOp{}}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("replayed Apply() mismatch (-want +got):\n%s", diff)
	}
	if n, _ := store.CountOps(ctx, "alice"); n != 2 {
		t.Errorf("ledger has %d entries, want 2", n)
	}
}

func TestApplyClassifiesFailures(t *testing.T) {
	a, store := setupTestApplier(t)
	ctx := context.Background()

	resp := a.Apply(ctx, "alice", []models.SyncOp{
		op("bad-mood", models.OpMoodSet, `{"date":"2024-03-01","mood":9}`),
		op("no-habit", models.OpCompletionSet, `{"date":"2024-03-01","habitId":"ghost","done":true}`),
		op("unknown", "habit.delete", `{"habitId":"h1"}`),
		op("ok", models.OpMoodSet, `{"date":"2024-03-01","mood":4,"notes":"fine"}`),
	})

	if diff := cmp.Diff([]string{"ok"}, resp.Applied); diff != "" {
		t.Errorf("applied mismatch (-want +got):\n%s", diff)
	}
	codes := map[string]string{}
	for _, f := range resp.Failed {
		codes[f.OpID] = f.Code
		if f.Message == "" {
			t.Errorf("failed op %s has no message", f.OpID)
		}
	}
	wantCodes := map[string]string{
		"bad-mood": apperrors.CodeInvalidPayload,
		"no-habit": apperrors.CodeHabitNotFound,
		"unknown":  apperrors.CodeUnknownOpType,
	}
	if diff := cmp.Diff(wantCodes, codes); diff != "" {
		t.Errorf("failure codes mismatch (-want +got):\n%s", diff)
	}

	// Failed ops leave no ledger entry, so a corrected retry can apply.
	if has, _ := store.HasOp(ctx, "alice", "bad-mood"); has {
		t.Error("failed op must not be recorded in the ledger")
	}
}

func TestApplyHabitCreateIsIdempotentByID(t *testing.T) {
	a, store := setupTestApplier(t)
	ctx := context.Background()

	resp := a.Apply(ctx, "alice", []models.SyncOp{
		op("c1", models.OpHabitCreate, `{"clientHabitId":"h1","name":"Read"}`),
		op("c2", models.OpHabitCreate, `{"clientHabitId":"h1","name":"Read again"}`),
	})
	if diff := cmp.Diff([]string{"c1", "c2"}, resp.Applied); diff != "" {
		t.Errorf("applied mismatch (-want +got):\n%s", diff)
	}
	habits, _ := store.ListHabits(ctx, "alice", true)
	if len(habits) != 1 || habits[0].Name != "Read" {
		t.Errorf("habits = %+v, want the single original habit", habits)
	}
}

func TestApplyCrossUserIsolation(t *testing.T) {
	a, _ := setupTestApplier(t)
	ctx := context.Background()

	a.Apply(ctx, "alice", []models.SyncOp{op("c1", models.OpHabitCreate, `{"clientHabitId":"h1","name":"Read"}`)})

	resp := a.Apply(ctx, "bob", []models.SyncOp{
		op("c1", models.OpCompletionSet, `{"date":"2024-03-01","habitId":"h1","done":true}`),
		op("u1", models.OpHabitUpdate, `{"habitId":"h1","name":"Mine now"}`),
		op("x1", models.OpHabitCreate, `{"clientHabitId":"h1","name":"Collide"}`),
	})
	wantCodes := []string{apperrors.CodeHabitNotFound, apperrors.CodeHabitNotFound, apperrors.CodeApplyFailed}
	if len(resp.Failed) != 3 {
		t.Fatalf("Apply() failed = %+v, want 3 failures", resp.Failed)
	}
	for i, f := range resp.Failed {
		if f.Code != wantCodes[i] {
			t.Errorf("failed[%d].code = %s, want %s", i, f.Code, wantCodes[i])
		}
	}
	// bob's op id "c1" is independent of alice's.
	if len(resp.Skipped) != 0 {
		t.Errorf("skipped = %v, want none", resp.Skipped)
	}
}

func TestApplyHabitUpdate(t *testing.T) {
	a, store := setupTestApplier(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return start }

	a.Apply(ctx, "alice", []models.SyncOp{op("c1", models.OpHabitCreate, `{"clientHabitId":"h1","name":"Read","color":"#00f"}`)})

	a.now = func() time.Time { return start.Add(time.Hour) }
	resp := a.Apply(ctx, "alice", []models.SyncOp{op("u1", models.OpHabitUpdate, `{"habitId":"h1","isArchived":true}`)})
	if len(resp.Applied) != 1 {
		t.Fatalf("Apply() = %+v", resp)
	}

	h, err := store.GetHabit(ctx, "alice", "h1")
	if err != nil {
		t.Fatalf("GetHabit() failed: %v", err)
	}
	if !h.IsArchived || h.Name != "Read" || h.Color == nil || *h.Color != "#00f" {
		t.Errorf("habit after update = %+v", h)
	}
	if !h.UpdatedAt.Equal(start.Add(time.Hour)) {
		t.Errorf("updatedAt = %v, want bumped", h.UpdatedAt)
	}
}

func TestApplyCompletionUndo(t *testing.T) {
	a, store := setupTestApplier(t)
	ctx := context.Background()

	a.Apply(ctx, "alice", []models.SyncOp{
		op("c1", models.OpHabitCreate, `{"clientHabitId":"h1","name":"Read"}`),
		op("d1", models.OpCompletionSet, `{"date":"2024-03-01","habitId":"h1","done":true}`),
		op("d2", models.OpCompletionSet, `{"date":"2024-03-01","habitId":"h1","done":false}`),
		op("d3", models.OpCompletionSet, `{"date":"2024-03-02","habitId":"h1","done":false}`),
	})
	n, _ := store.CountCompletions(ctx, "alice", "h1", "2024-03-01", "2024-03-31")
	if n != 0 {
		t.Errorf("CountCompletions() = %d, want 0", n)
	}
}

func TestApplySameIDWithDifferentPayloadIsSkipped(t *testing.T) {
	a, store := setupTestApplier(t)
	ctx := context.Background()

	resp := a.Apply(ctx, "alice", []models.SyncOp{
		op("m", models.OpMoodSet, `{"date":"2024-03-01","mood":3}`),
	})
	if diff := cmp.Diff([]string{"m"}, resp.Applied); diff != "" {
		t.Fatalf("first Apply() applied mismatch (-want +got):\n%s", diff)
	}

	resp = a.Apply(ctx, "alice", []models.SyncOp{
		op("m", models.OpMoodSet, `{"date":"2024-03-01","mood":5}`),
	})
	want := models.SyncResponse{Applied: []string{}, Skipped: []string{"m"}, Failed: []models.FailedOp{}}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("second Apply() mismatch (-want +got):\n%s", diff)
	}

	m, err := store.GetMood(ctx, "alice", "2024-03-01")
	if err != nil {
		t.Fatalf("GetMood() failed: %v", err)
	}
	if m.Mood != 3 {
		t.Errorf("mood = %d, want 3 from the first delivery", m.Mood)
	}
	if n, _ := store.CountOps(ctx, "alice"); n != 1 {
		t.Errorf("ledger has %d entries, want 1", n)
	}
}

func TestApplyMoodWithoutNotesClearsNotes(t *testing.T) {
	a, store := setupTestApplier(t)
	ctx := context.Background()

	resp := a.Apply(ctx, "alice", []models.SyncOp{
		op("m1", models.OpMoodSet, `{"date":"2024-03-01","mood":2,"notes":"tired"}`),
		op("m2", models.OpMoodSet, `{"date":"2024-03-01","mood":4}`),
	})
	if diff := cmp.Diff([]string{"m1", "m2"}, resp.Applied); diff != "" {
		t.Fatalf("applied mismatch (-want +got):\n%s", diff)
	}

	m, err := store.GetMood(ctx, "alice", "2024-03-01")
	if err != nil {
		t.Fatalf("GetMood() failed: %v", err)
	}
	if m.Mood != 4 || m.Notes != nil {
		t.Errorf("mood entry = %+v, want mood 4 without notes", m)
	}
}
