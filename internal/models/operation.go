package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// OpType names the kind of mutation an outbox operation carries.
type OpType string

const (
	OpCompletionSet OpType = "completion.set"
	OpMoodSet       OpType = "mood.set"
	OpHabitCreate   OpType = "habit.create"
	OpHabitUpdate   OpType = "habit.update"
)

// Known reports whether t is one of the operation types the protocol defines.
func (t OpType) Known() bool {
	switch t {
	case OpCompletionSet, OpMoodSet, OpHabitCreate, OpHabitUpdate:
		return true
	}
	return false
}

var (
	// ErrUnknownOpType is returned when decoding a payload for a type that
	// has no schema.
	ErrUnknownOpType = errors.New("unknown op type")
	// ErrInvalidPayload is returned when a payload does not match the shape
	// its type requires.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Operation is a pending mutation in the device outbox. ID doubles as the
// idempotency key on the server.
type Operation struct {
	ID            string          `json:"id"`
	Type          OpType          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"createdAt"`
	Attempts      int             `json:"attempts"`
	LastError     *string         `json:"lastError,omitempty"`
	NextAttemptAt *time.Time      `json:"nextAttemptAt,omitempty"`
	DeadAt        *time.Time      `json:"deadAt,omitempty"`
}

// Payload is implemented by every operation payload variant.
type Payload interface {
	OpType() OpType
	Validate() error
}

// CompletionSetPayload marks (done=true) or unmarks (done=false) a habit for
// a day.
type CompletionSetPayload struct {
	Date    string `json:"date"`
	HabitID string `json:"habitId"`
	Done    *bool  `json:"done"`
}

func (CompletionSetPayload) OpType() OpType { return OpCompletionSet }

func (p CompletionSetPayload) Validate() error {
	if err := validateDate("date", p.Date); err != nil {
		return err
	}
	if strings.TrimSpace(p.HabitID) == "" {
		return invalid("habitId: required")
	}
	if p.Done == nil {
		return invalid("done: required boolean")
	}
	return nil
}

// IsDone returns the done flag, treating a missing flag as false.
func (p CompletionSetPayload) IsDone() bool {
	return p.Done != nil && *p.Done
}

// MoodSetPayload fully overwrites the mood entry for a day.
type MoodSetPayload struct {
	Date  string  `json:"date"`
	Mood  *int    `json:"mood"`
	Notes *string `json:"notes,omitempty"`
}

func (MoodSetPayload) OpType() OpType { return OpMoodSet }

func (p MoodSetPayload) Validate() error {
	if err := validateDate("date", p.Date); err != nil {
		return err
	}
	if p.Mood == nil {
		return invalid("mood: required integer")
	}
	if *p.Mood < MinMood || *p.Mood > MaxMood {
		return invalid(fmt.Sprintf("mood: must be between %d and %d", MinMood, MaxMood))
	}
	return nil
}

// HabitCreatePayload creates a habit under the client-chosen id.
type HabitCreatePayload struct {
	ClientHabitID string  `json:"clientHabitId"`
	Name          string  `json:"name"`
	Color         *string `json:"color,omitempty"`
}

func (HabitCreatePayload) OpType() OpType { return OpHabitCreate }

func (p HabitCreatePayload) Validate() error {
	if strings.TrimSpace(p.ClientHabitID) == "" {
		return invalid("clientHabitId: required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name: required")
	}
	return nil
}

// HabitUpdatePayload changes only the fields that are present.
type HabitUpdatePayload struct {
	HabitID    string  `json:"habitId"`
	Name       *string `json:"name,omitempty"`
	Color      *string `json:"color,omitempty"`
	IsArchived *bool   `json:"isArchived,omitempty"`
}

func (HabitUpdatePayload) OpType() OpType { return OpHabitUpdate }

func (p HabitUpdatePayload) Validate() error {
	if strings.TrimSpace(p.HabitID) == "" {
		return invalid("habitId: required")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return invalid("name: must not be empty")
	}
	return nil
}

// Patch returns the partial update this payload describes.
func (p HabitUpdatePayload) Patch() HabitPatch {
	return HabitPatch{Name: p.Name, Color: p.Color, IsArchived: p.IsArchived}
}

// DecodePayload decodes raw into the payload variant for t and validates it.
// Errors wrap ErrUnknownOpType or ErrInvalidPayload.
func DecodePayload(t OpType, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch t {
	case OpCompletionSet:
		p = &CompletionSetPayload{}
	case OpMoodSet:
		p = &MoodSetPayload{}
	case OpHabitCreate:
		p = &HabitCreatePayload{}
	case OpHabitUpdate:
		p = &HabitUpdatePayload{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOpType, t)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, invalid("payload must be an object")
	}
	if err := json.Unmarshal(trimmed, p); err != nil {
		return nil, invalid(err.Error())
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// Hand back the value, not the pointer, so callers can type-switch on
	// the plain struct types.
	switch v := p.(type) {
	case *CompletionSetPayload:
		return *v, nil
	case *MoodSetPayload:
		return *v, nil
	case *HabitCreatePayload:
		return *v, nil
	case *HabitUpdatePayload:
		return *v, nil
	}
	return p, nil
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, reason)
}

func validateDate(field, value string) error {
	if _, err := time.Parse(dateLayout, value); err != nil {
		return invalid(fmt.Sprintf("%s: must be a YYYY-MM-DD date", field))
	}
	return nil
}

const dateLayout = "2006-01-02"
