package handler

import (
	"strings"
	"time"

	"github.com/tasktracker/task-system/internal/core/domain"
	"github.com/tasktracker/task-system/internal/core/ports"
)

// --- Request → Service input ---

func toCreateInput(req createTaskRequest, idempotencyKey string) (ports.CreateTaskInput, error) {
	in := ports.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		OwnerID:        req.OwnerID,
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return ports.CreateTaskInput{}, err
		}
		in.DueDate = &due
	}
	return in, nil
}

// toPatch keeps every key the client sent. Values that cannot be decoded are
// marked malformed rather than rejected: restricting the patch to what the
// caller may change is the service's job, and a dropped field is never an
// error.
func toPatch(req updateTaskRequest) domain.TaskPatch {
	var p domain.TaskPatch

	if req.Title.Set && !req.Title.Null {
		if req.Title.Invalid {
			p.MarkMalformed(domain.FieldTitle, notAString("title"))
		} else {
			title := req.Title.Value
			p.Title = &title
		}
	}
	if req.Description.Set {
		switch {
		case req.Description.Null:
			p.ClearDescription = true
		case req.Description.Invalid:
			p.MarkMalformed(domain.FieldDescription, notAString("description"))
		default:
			desc := req.Description.Value
			p.Description = &desc
		}
	}
	if req.Status.Set && !req.Status.Null {
		if req.Status.Invalid {
			p.MarkMalformed(domain.FieldStatus, notAString("status"))
		} else {
			status := domain.TaskStatus(strings.ToLower(strings.TrimSpace(req.Status.Value)))
			p.Status = &status
		}
	}
	if req.DueDate.Set {
		switch {
		case req.DueDate.Null:
			p.ClearDueDate = true
		case req.DueDate.Invalid:
			p.MarkMalformed(domain.FieldDueDate, notAString("due_date"))
		default:
			due, err := parseDueDate(req.DueDate.Value)
			if err != nil {
				p.MarkMalformed(domain.FieldDueDate, err)
			} else {
				p.DueDate = &due
			}
		}
	}
	return p
}

func notAString(field string) *domain.ValidationError {
	return domain.NewValidationError(field, field+" must be a string")
}

func parseDueDate(s string) (time.Time, *domain.ValidationError) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, domain.NewValidationError("due_date", "due_date must be an RFC3339 timestamp")
	}
	return t.UTC(), nil
}

// --- Service output → Response ---

func toTaskResponse(v ports.TaskView) taskResponse {
	return taskResponse{
		ID:           v.Task.ID,
		Title:        v.Task.Title,
		Description:  v.Task.Description,
		Status:       string(v.DisplayStatus),
		StoredStatus: string(v.Task.Status),
		DueDate:      v.Task.DueDate,
		Owner:        ownerResponse{ID: v.Task.OwnerID, Username: v.OwnerUsername},
		CreatedAt:    v.Task.CreatedAt,
		UpdatedAt:    v.Task.UpdatedAt,
	}
}

func toTaskResponses(views []ports.TaskView) []taskResponse {
	out := make([]taskResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toTaskResponse(v))
	}
	return out
}
