package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TaskStatus is the persisted state of a task. It is never "expired".
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// MaxTitleLength bounds Task.Title in characters.
const MaxTitleLength = 255

// Valid reports whether s may be stored.
func (s TaskStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// ParseTaskStatus converts client input to a storable status.
func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", NewValidationError("status", "status must be one of: pending completed")
	}
	return st, nil
}

// Task is a unit of work owned by exactly one user.
type Task struct {
	ID          int64
	Title       string
	Description *string
	Status      TaskStatus
	OwnerID     int64
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeTitle trims the title and enforces 1..MaxTitleLength characters.
func NormalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", NewValidationError("title", "title is required")
	}
	if utf8.RuneCountInString(t) > MaxTitleLength {
		return "", NewValidationError("title", "title must be at most 255 characters")
	}
	return t, nil
}

// TaskField names a mutable task attribute.
type TaskField uint8

const (
	FieldTitle TaskField = 1 << iota
	FieldDescription
	FieldStatus
	FieldDueDate
)

var taskFieldNames = []struct {
	field TaskField
	name  string
}{
	{FieldTitle, "title"},
	{FieldDescription, "description"},
	{FieldStatus, "status"},
	{FieldDueDate, "due_date"},
}

func (f TaskField) String() string {
	for _, fn := range taskFieldNames {
		if fn.field == f {
			return fn.name
		}
	}
	return "unknown"
}

// FieldSet is a set of TaskField values.
type FieldSet uint8

const (
	NoFields FieldSet = 0
	// AllTaskFields is everything an admin may change. Ownership is not a
	// field: it is fixed when the task is created.
	AllTaskFields = FieldSet(FieldTitle | FieldDescription | FieldStatus | FieldDueDate)
	// OwnerMutableFields is what a plain user may change on a task they own.
	OwnerMutableFields = FieldSet(FieldDescription | FieldStatus)
)

func (s FieldSet) Has(f TaskField) bool { return s&FieldSet(f) != 0 }
func (s FieldSet) Without(o FieldSet) FieldSet { return s &^ o }
func (s FieldSet) Empty() bool { return s == 0 }

// Names lists the fields in a stable order.
func (s FieldSet) Names() []string {
	names := make([]string, 0, len(taskFieldNames))
	for _, fn := range taskFieldNames {
		if s.Has(fn.field) {
			names = append(names, fn.name)
		}
	}
	return names
}

// TaskPatch is a partial update. A nil pointer leaves the field untouched;
// the Clear flags reset the optional fields to unset. Malformed holds fields
// the client sent with a value that could not be decoded; they only fail
// Normalize when they survive Restrict.
type TaskPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *TaskStatus
	DueDate          *time.Time
	ClearDueDate     bool
	Malformed        map[TaskField]*ValidationError
}

// MarkMalformed records that field was sent with an unreadable value.
func (p *TaskPatch) MarkMalformed(field TaskField, err *ValidationError) {
	if p.Malformed == nil {
		p.Malformed = make(map[TaskField]*ValidationError)
	}
	p.Malformed[field] = err
}

// Fields reports which fields the patch touches.
func (p TaskPatch) Fields() FieldSet {
	var s FieldSet
	if p.Title != nil {
		s |= FieldSet(FieldTitle)
	}
	if p.Description != nil || p.ClearDescription {
		s |= FieldSet(FieldDescription)
	}
	if p.Status != nil {
		s |= FieldSet(FieldStatus)
	}
	if p.DueDate != nil || p.ClearDueDate {
		s |= FieldSet(FieldDueDate)
	}
	for f := range p.Malformed {
		s |= FieldSet(f)
	}
	return s
}

// Restrict drops every field not in allowed.
func (p TaskPatch) Restrict(allowed FieldSet) TaskPatch {
	var out TaskPatch
	if allowed.Has(FieldTitle) {
		out.Title = p.Title
	}
	if allowed.Has(FieldDescription) {
		out.Description = p.Description
		out.ClearDescription = p.ClearDescription
	}
	if allowed.Has(FieldStatus) {
		out.Status = p.Status
	}
	if allowed.Has(FieldDueDate) {
		out.DueDate = p.DueDate
		out.ClearDueDate = p.ClearDueDate
	}
	for f, err := range p.Malformed {
		if allowed.Has(f) {
			out.MarkMalformed(f, err)
		}
	}
	return out
}

// Normalize validates the values carried by the patch and returns a copy with
// the title trimmed.
func (p TaskPatch) Normalize() (TaskPatch, error) {
	for _, fn := range taskFieldNames {
		if err, ok := p.Malformed[fn.field]; ok {
			return TaskPatch{}, err
		}
	}
	out := p
	out.Malformed = nil
	if p.Title != nil {
		t, err := NormalizeTitle(*p.Title)
		if err != nil {
			return TaskPatch{}, err
		}
		out.Title = &t
	}
	if p.Status != nil && !p.Status.Valid() {
		return TaskPatch{}, NewValidationError("status", "status must be one of: pending completed")
	}
	if p.Description != nil && p.ClearDescription {
		return TaskPatch{}, NewValidationError("description", "description cannot be set and cleared at once")
	}
	if p.DueDate != nil && p.ClearDueDate {
		return TaskPatch{}, NewValidationError("due_date", "due_date cannot be set and cleared at once")
	}
	return out, nil
}
