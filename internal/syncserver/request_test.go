package syncserver

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantOps int
		wantErr string
	}{
		{"empty batch", `{"ops":[]}`, 0, ""},
		{"valid op", `{"ops":[{"id":"a","type":"mood.set","payload":{"date":"2024-03-01","mood":3},"createdAt":"2024-03-01T10:00:00Z"}]}`, 1, ""},
		{"unknown type passes envelope", `{"ops":[{"id":"a","type":"habit.delete","payload":{}}]}`, 1, ""},
		{"not json", `not json`, 0, "JSON object"},
		{"array body", `[]`, 0, "JSON object"},
		{"missing ops", `{}`, 0, "ops is required"},
		{"ops not array", `{"ops":{}}`, 0, "ops must be an array"},
		{"ops null", `{"ops":null}`, 0, "ops must be an array"},
		{"op not object", `{"ops":[1]}`, 0, "must be an object"},
		{"missing id", `{"ops":[{"type":"mood.set","payload":{}}]}`, 0, "ops[0].id"},
		{"empty id", `{"ops":[{"id":"","type":"mood.set","payload":{}}]}`, 0, "ops[0].id"},
		{"numeric id", `{"ops":[{"id":7,"type":"mood.set","payload":{}}]}`, 0, "ops[0].id"},
		{"missing type", `{"ops":[{"id":"a","payload":{}}]}`, 0, "ops[0].type"},
		{"payload not object", `{"ops":[{"id":"a","type":"mood.set","payload":"x"}]}`, 0, "ops[0].payload"},
		{"missing payload", `{"ops":[{"id":"a","type":"mood.set"}]}`, 0, "ops[0].payload"},
		{"bad createdAt", `{"ops":[{"id":"a","type":"mood.set","payload":{},"createdAt":"yesterday"}]}`, 0, "ops[0].createdAt"},
		{"second op bad", `{"ops":[{"id":"a","type":"mood.set","payload":{}},{"id":"b","type":"mood.set","payload":[]}]}`, 0, "ops[1].payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := ParseRequest([]byte(tt.body), 500)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ParseRequest() error = %v", err)
				}
				if len(ops) != tt.wantOps {
					t.Errorf("ParseRequest() returned %d ops, want %d", len(ops), tt.wantOps)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ParseRequest() error = %v, want *ValidationError", err)
			}
			if !strings.Contains(verr.Message, tt.wantErr) {
				t.Errorf("ParseRequest() message = %q, want containing %q", verr.Message, tt.wantErr)
			}
		})
	}
}

func TestParseRequestMaxOps(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"ops":[`)
	for i := 0; i < 3; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"id":"op-%d","type":"mood.set","payload":{}}`, i)
	}
	b.WriteString(`]}`)

	if _, err := ParseRequest([]byte(b.String()), 3); err != nil {
		t.Errorf("ParseRequest() at the limit failed: %v", err)
	}
	if _, err := ParseRequest([]byte(b.String()), 2); err == nil {
		t.Error("ParseRequest() over the limit should fail")
	}
}
