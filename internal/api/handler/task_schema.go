package handler

import (
	"bytes"
	"encoding/json"
	"time"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// nullableString distinguishes an absent key, an explicit null and a value.
// A value of another JSON type is kept as Invalid instead of failing the
// whole body, so it only matters if the caller may change that field.
type nullableString struct {
	Set     bool
	Null    bool
	Invalid bool
	Value   string
}

func (n *nullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Null = true
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		n.Invalid = true
	}
	return nil
}

// --- Request / Response types ---

type createTaskRequest struct {
	Title       string  `json:"title"       validate:"required,max=255"`
	Description *string `json:"description"`
	Status      string  `json:"status"      validate:"omitempty,oneof=pending completed"`
	DueDate     *string `json:"due_date"    validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	OwnerID     int64   `json:"owner_id"    validate:"required,gt=0"`
}

// updateTaskRequest is a partial update. Absent keys are left untouched,
// null clears description and due_date.
type updateTaskRequest struct {
	Title       nullableString `json:"title"`
	Description nullableString `json:"description"`
	Status      nullableString `json:"status"`
	DueDate     nullableString `json:"due_date"`
}

type ownerResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// taskResponse carries the display status in Status (pending, completed or
// expired) and the persisted value in StoredStatus.
type taskResponse struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Description  *string       `json:"description"`
	Status       string        `json:"status"`
	StoredStatus string        `json:"stored_status"`
	DueDate      *time.Time    `json:"due_date"`
	Owner        ownerResponse `json:"owner"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
