package system

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julianstephens/habitsync/internal/models"
)

func TestDoctorHealthyDatabase(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Store.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Errorf("doctor on a fresh database failed: %v", err)
	}
}

func TestDoctorUninitialized(t *testing.T) {
	ctx := newTestContext(t)

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Error("doctor succeeded without a database")
	}
}

func TestDoctorRejectsUndecodableOp(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Store.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	op := models.Operation{
		ID:        "op-1",
		Type:      models.OpMoodSet,
		Payload:   json.RawMessage(`{"date":"yesterday","mood":9}`),
		CreatedAt: time.Now().UTC(),
	}
	if err := ctx.Store.InsertOp(context.Background(), op); err != nil {
		t.Fatalf("InsertOp() failed: %v", err)
	}

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Error("doctor succeeded with an undecodable outbox operation")
	}
}

func TestDoctorOrphanCompletionIsWarning(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Store.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := ctx.Store.SetCompletion(context.Background(), "gone", "2024-03-01", true, time.Now().UTC()); err != nil {
		t.Fatalf("SetCompletion() failed: %v", err)
	}

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Errorf("doctor failed on a warning-only condition: %v", err)
	}
}

func TestDoctorChecksServerCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/health":
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case r.Header.Get("Authorization") == "Bearer good":
			json.NewEncoder(w).Encode(models.HabitList{Habits: []models.RemoteHabit{}})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.ErrorBody{Error: models.ErrorDetail{Code: "UNAUTHORIZED", Message: "invalid bearer token"}})
		}
	}))
	t.Cleanup(srv.Close)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"accepted", "good", false},
		{"rejected", "bad", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(t)
			if err := ctx.Store.Init(); err != nil {
				t.Fatalf("init failed: %v", err)
			}
			ctx.Server = srv.URL
			ctx.Token = tt.token

			err := (&DoctorCmd{}).Run(ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("doctor error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
