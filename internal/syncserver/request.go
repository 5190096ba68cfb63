package syncserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/habitsync/internal/models"
)

// ValidationError rejects a whole sync request before any op runs.
type ValidationError struct {
	Message string
	Details map[string]any
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidOp(index int, field, reason string) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("ops[%d].%s %s", index, field, reason),
		Details: map[string]any{"index": index, "field": field},
	}
}

// ParseRequest checks the batch envelope: a JSON object whose ops array
// holds at most maxOps entries, each with a non-empty string id and type and
// an object payload. Payload contents are validated per op later.
func ParseRequest(body []byte, maxOps int) ([]models.SyncOp, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return nil, &ValidationError{Message: "request body must be a JSON object"}
	}
	rawOps, ok := envelope["ops"]
	if !ok {
		return nil, &ValidationError{Message: "ops is required", Details: map[string]any{"field": "ops"}}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawOps, &items); err != nil || items == nil {
		return nil, &ValidationError{Message: "ops must be an array", Details: map[string]any{"field": "ops"}}
	}
	if maxOps > 0 && len(items) > maxOps {
		return nil, &ValidationError{
			Message: fmt.Sprintf("too many ops: %d (max %d)", len(items), maxOps),
			Details: map[string]any{"field": "ops", "max": maxOps},
		}
	}

	ops := make([]models.SyncOp, 0, len(items))
	for i, item := range items {
		op, err := parseOp(i, item)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func parseOp(i int, item json.RawMessage) (models.SyncOp, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return models.SyncOp{}, &ValidationError{
			Message: fmt.Sprintf("ops[%d] must be an object", i),
			Details: map[string]any{"index": i},
		}
	}

	id, ok := nonEmptyString(fields["id"])
	if !ok {
		return models.SyncOp{}, invalidOp(i, "id", "must be a non-empty string")
	}
	typ, ok := nonEmptyString(fields["type"])
	if !ok {
		return models.SyncOp{}, invalidOp(i, "type", "must be a non-empty string")
	}
	payload := bytes.TrimSpace(fields["payload"])
	if len(payload) == 0 || payload[0] != '{' {
		return models.SyncOp{}, invalidOp(i, "payload", "must be an object")
	}

	op := models.SyncOp{ID: id, Type: models.OpType(typ), Payload: payload}
	if raw, ok := fields["createdAt"]; ok && string(bytes.TrimSpace(raw)) != "null" {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return models.SyncOp{}, invalidOp(i, "createdAt", "must be a timestamp string")
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return models.SyncOp{}, invalidOp(i, "createdAt", "must be an RFC 3339 timestamp")
		}
		op.CreatedAt = &t
	}
	return op, nil
}

func nonEmptyString(raw json.RawMessage) (string, bool) {
	var s string
	if raw == nil || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
