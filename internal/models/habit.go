package models

import "time"

// Habit is a practice tracked once per calendar day. Habits are never
// hard-deleted; archiving is a field mutation.
type Habit struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      *string   `json:"color"`
	IsArchived bool      `json:"isArchived"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// HabitPatch lists the fields of a partial habit update. Nil fields are left
// untouched.
type HabitPatch struct {
	Name       *string `json:"name,omitempty"`
	Color      *string `json:"color,omitempty"`
	IsArchived *bool   `json:"isArchived,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p HabitPatch) Empty() bool {
	return p.Name == nil && p.Color == nil && p.IsArchived == nil
}

// Apply copies the present fields of the patch onto h.
func (p HabitPatch) Apply(h *Habit) {
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.Color != nil {
		c := *p.Color
		h.Color = &c
	}
	if p.IsArchived != nil {
		h.IsArchived = *p.IsArchived
	}
}

// HabitCompletion marks a habit as done for a day. The row existing is what
// "done" means; there is no done=false row.
type HabitCompletion struct {
	HabitID   string    `json:"habitId"`
	Date      string    `json:"date"` // YYYY-MM-DD
	CreatedAt time.Time `json:"createdAt"`
}

// RemoteHabit is a habit as returned by the server's habit listing. UpdatedAt
// is a pointer because older server rows may not carry one.
type RemoteHabit struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Color      *string    `json:"color"`
	IsArchived bool       `json:"isArchived"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// Remote converts a stored habit into its wire form.
func (h Habit) Remote() RemoteHabit {
	rh := RemoteHabit{
		ID:         h.ID,
		Name:       h.Name,
		Color:      h.Color,
		IsArchived: h.IsArchived,
	}
	if !h.CreatedAt.IsZero() {
		created := h.CreatedAt
		rh.CreatedAt = &created
	}
	if !h.UpdatedAt.IsZero() {
		updated := h.UpdatedAt
		rh.UpdatedAt = &updated
	}
	return rh
}
