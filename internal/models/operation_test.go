package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		opType  OpType
		raw     string
		wantErr error
	}{
		{"completion ok", OpCompletionSet, `{"date":"2024-01-15","habitId":"h1","done":true}`, nil},
		{"completion undone ok", OpCompletionSet, `{"date":"2024-01-15","habitId":"h1","done":false}`, nil},
		{"completion missing done", OpCompletionSet, `{"date":"2024-01-15","habitId":"h1"}`, ErrInvalidPayload},
		{"completion bad date", OpCompletionSet, `{"date":"15/01/2024","habitId":"h1","done":true}`, ErrInvalidPayload},
		{"completion done not bool", OpCompletionSet, `{"date":"2024-01-15","habitId":"h1","done":"yes"}`, ErrInvalidPayload},
		{"mood ok", OpMoodSet, `{"date":"2024-01-15","mood":4,"notes":"fine"}`, nil},
		{"mood out of range", OpMoodSet, `{"date":"2024-01-15","mood":6}`, ErrInvalidPayload},
		{"mood fractional", OpMoodSet, `{"date":"2024-01-15","mood":3.5}`, ErrInvalidPayload},
		{"mood missing", OpMoodSet, `{"date":"2024-01-15"}`, ErrInvalidPayload},
		{"create ok", OpHabitCreate, `{"clientHabitId":"h1","name":"Water"}`, nil},
		{"create empty name", OpHabitCreate, `{"clientHabitId":"h1","name":"  "}`, ErrInvalidPayload},
		{"update ok", OpHabitUpdate, `{"habitId":"h1","isArchived":true}`, nil},
		{"update empty name", OpHabitUpdate, `{"habitId":"h1","name":""}`, ErrInvalidPayload},
		{"payload array", OpHabitUpdate, `[1,2]`, ErrInvalidPayload},
		{"payload null", OpMoodSet, `null`, ErrInvalidPayload},
		{"unknown type", OpType("habit.delete"), `{}`, ErrUnknownOpType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePayload(tt.opType, json.RawMessage(tt.raw))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("DecodePayload() unexpected error: %v", err)
				}
				if p.OpType() != tt.opType {
					t.Errorf("OpType() = %s, want %s", p.OpType(), tt.opType)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodePayload() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodePayloadReturnsValueTypes(t *testing.T) {
	p, err := DecodePayload(OpHabitUpdate, json.RawMessage(`{"habitId":"h1","name":"Read"}`))
	if err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	upd, ok := p.(HabitUpdatePayload)
	if !ok {
		t.Fatalf("payload type = %T, want HabitUpdatePayload", p)
	}
	name := "Read"
	want := HabitPatch{Name: &name}
	if diff := cmp.Diff(want, upd.Patch()); diff != "" {
		t.Errorf("Patch() mismatch (-want +got):\n%s", diff)
	}
}

func TestHabitPatchApply(t *testing.T) {
	color := "#00ff00"
	archived := true
	h := Habit{ID: "h1", Name: "Water"}
	HabitPatch{Color: &color, IsArchived: &archived}.Apply(&h)

	if h.Name != "Water" {
		t.Errorf("name changed to %q", h.Name)
	}
	if h.Color == nil || *h.Color != color {
		t.Errorf("color = %v, want %s", h.Color, color)
	}
	if !h.IsArchived {
		t.Error("expected habit to be archived")
	}
	if (HabitPatch{}).Empty() != true {
		t.Error("zero patch should be empty")
	}
}
