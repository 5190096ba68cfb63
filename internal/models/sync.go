package models

import (
	"encoding/json"
	"time"
)

// SyncOp is one operation inside a batch sync request.
type SyncOp struct {
	ID        string          `json:"id"`
	Type      OpType          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
}

// SyncRequest is the body of POST /api/sync.
type SyncRequest struct {
	Ops []SyncOp `json:"ops"`
}

// FailedOp reports why a single operation was not applied.
type FailedOp struct {
	OpID    string `json:"opId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SyncResponse classifies every submitted operation id exactly once.
type SyncResponse struct {
	Applied []string   `json:"applied"`
	Skipped []string   `json:"skipped"`
	Failed  []FailedOp `json:"failed"`
}

// NewSyncResponse returns a response with non-nil slices so it encodes as
// empty JSON arrays.
func NewSyncResponse() SyncResponse {
	return SyncResponse{
		Applied: []string{},
		Skipped: []string{},
		Failed:  []FailedOp{},
	}
}

// HabitList is the body of GET /api/habits.
type HabitList struct {
	Habits []RemoteHabit `json:"habits"`
}

// ErrorBody is the envelope for request-level errors.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
