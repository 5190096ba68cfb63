package outbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/storage"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func setupTestQueue(t *testing.T, policy Policy) (*Queue, *fakeClock) {
	t.Helper()
	store := storage.NewStore(filepath.Join(t.TempDir(), "habitsync.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clock := &fakeClock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	q := NewQueue(store, policy)
	q.now = clock.Now
	return q, clock
}

func moodPayload(date string, mood int) models.MoodSetPayload {
	return models.MoodSetPayload{Date: date, Mood: &mood}
}

func enqueueN(t *testing.T, q *Queue, clock *fakeClock, n int) []string {
	t.Helper()
	var ids []string
	for i := 0; i < n; i++ {
		id, err := q.Enqueue(context.Background(), nil, moodPayload("2024-03-01", 3))
		if err != nil {
			t.Fatalf("Enqueue() failed: %v", err)
		}
		ids = append(ids, id)
		clock.t = clock.t.Add(time.Millisecond)
	}
	return ids
}

func pendingIDs(t *testing.T, q *Queue) []string {
	t.Helper()
	ops, err := q.Pending(context.Background(), 100)
	if err != nil {
		t.Fatalf("Pending() failed: %v", err)
	}
	ids := []string{}
	for _, op := range ops {
		ids = append(ids, op.ID)
	}
	return ids
}

func TestEnqueueFIFO(t *testing.T) {
	q, clock := setupTestQueue(t, DefaultPolicy())
	ids := enqueueN(t, q, clock, 3)

	if diff := cmp.Diff(ids, pendingIDs(t, q)); diff != "" {
		t.Errorf("Pending() order mismatch (-want +got):\n%s", diff)
	}

	ops, _ := q.Pending(context.Background(), 2)
	if len(ops) != 2 {
		t.Fatalf("Pending(2) returned %d ops", len(ops))
	}
	if ops[0].Type != models.OpMoodSet || ops[0].Attempts != 0 {
		t.Errorf("unexpected op %+v", ops[0])
	}
	if _, err := models.DecodePayload(ops[0].Type, ops[0].Payload); err != nil {
		t.Errorf("stored payload does not decode: %v", err)
	}
}

func TestAckRemovesAndIgnoresUnknown(t *testing.T) {
	q, clock := setupTestQueue(t, DefaultPolicy())
	ids := enqueueN(t, q, clock, 3)

	if err := q.Ack(context.Background(), []string{ids[0], ids[2], "unknown"}); err != nil {
		t.Fatalf("Ack() failed: %v", err)
	}
	if diff := cmp.Diff([]string{ids[1]}, pendingIDs(t, q)); diff != "" {
		t.Errorf("Pending() after Ack mismatch (-want +got):\n%s", diff)
	}
}

func TestFailBacksOff(t *testing.T) {
	q, clock := setupTestQueue(t, DefaultPolicy())
	ctx := context.Background()
	ids := enqueueN(t, q, clock, 2)

	if err := q.Fail(ctx, ids[0], "APPLY_FAILED: boom"); err != nil {
		t.Fatalf("Fail() failed: %v", err)
	}
	if diff := cmp.Diff([]string{ids[1]}, pendingIDs(t, q)); diff != "" {
		t.Errorf("failed op should wait (-want +got):\n%s", diff)
	}

	stats, _ := q.Stats(ctx)
	if stats.Waiting != 1 || stats.Due != 1 {
		t.Errorf("Stats() = %+v", stats)
	}

	clock.t = clock.t.Add(30 * time.Second)
	if diff := cmp.Diff(ids, pendingIDs(t, q)); diff != "" {
		t.Errorf("op should be due after its delay (-want +got):\n%s", diff)
	}

	all, _ := q.All(ctx)
	if all[0].Attempts != 1 || all[0].LastError == nil || *all[0].LastError != "APPLY_FAILED: boom" {
		t.Errorf("failed op = %+v", all[0])
	}
}

func TestFailDeadLetterAndRequeue(t *testing.T) {
	q, clock := setupTestQueue(t, Policy{MaxAttempts: 2, InitialInterval: time.Second, MaxInterval: time.Minute, Multiplier: 2})
	ctx := context.Background()
	id := enqueueN(t, q, clock, 1)[0]

	for i := 0; i < 2; i++ {
		if err := q.Fail(ctx, id, "INVALID_PAYLOAD: bad"); err != nil {
			t.Fatalf("Fail() failed: %v", err)
		}
		clock.t = clock.t.Add(time.Hour)
	}

	if got := pendingIDs(t, q); len(got) != 0 {
		t.Errorf("dead op should not be pending, got %v", got)
	}
	dead, err := q.DeadLetters(ctx)
	if err != nil {
		t.Fatalf("DeadLetters() failed: %v", err)
	}
	if len(dead) != 1 || dead[0].ID != id || dead[0].Attempts != 2 {
		t.Fatalf("DeadLetters() = %+v", dead)
	}

	if err := q.Requeue(ctx, id); err != nil {
		t.Fatalf("Requeue() failed: %v", err)
	}
	if diff := cmp.Diff([]string{id}, pendingIDs(t, q)); diff != "" {
		t.Errorf("requeued op should be pending (-want +got):\n%s", diff)
	}
}

func TestFailUnlimitedKeepsOpDue(t *testing.T) {
	q, clock := setupTestQueue(t, Policy{})
	ctx := context.Background()
	id := enqueueN(t, q, clock, 1)[0]

	for i := 0; i < 25; i++ {
		if err := q.Fail(ctx, id, "boom"); err != nil {
			t.Fatalf("Fail() failed: %v", err)
		}
	}
	ops, _ := q.Pending(ctx, 10)
	if len(ops) != 1 || ops[0].Attempts != 25 {
		t.Errorf("Pending() = %+v, want the op due with 25 attempts", ops)
	}
}

func TestFailUnknownIsIgnored(t *testing.T) {
	q, _ := setupTestQueue(t, DefaultPolicy())
	if err := q.Fail(context.Background(), "missing", "boom"); err != nil {
		t.Errorf("Fail(unknown) error = %v, want nil", err)
	}
}

func TestDiscard(t *testing.T) {
	q, clock := setupTestQueue(t, DefaultPolicy())
	ctx := context.Background()
	id := enqueueN(t, q, clock, 1)[0]

	if err := q.Discard(ctx, id); err != nil {
		t.Fatalf("Discard() failed: %v", err)
	}
	if err := q.Discard(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Discard() error = %v, want ErrNotFound", err)
	}
}

func TestEnqueueInsideTransaction(t *testing.T) {
	q, _ := setupTestQueue(t, DefaultPolicy())
	ctx := context.Background()

	errBoom := errors.New("boom")
	err := q.store.WithTx(ctx, func(tx *storage.Queries) error {
		if _, err := q.Enqueue(ctx, tx, moodPayload("2024-03-01", 4)); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("WithTx() error = %v", err)
	}
	if got := pendingIDs(t, q); len(got) != 0 {
		t.Errorf("rolled back enqueue left %v", got)
	}
}
