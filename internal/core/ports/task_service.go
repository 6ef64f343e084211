package ports

import (
	"context"
	"time"

	"github.com/tasktracker/task-system/internal/core/domain"
)

// CreateTaskInput carries an admin's request to create a task for OwnerID.
type CreateTaskInput struct {
	Title          string
	Description    *string
	Status         string // empty means pending
	DueDate        *time.Time
	OwnerID        int64
	IdempotencyKey string
}

// TaskView is a stored task together with its read-time display status.
type TaskView struct {
	Task          domain.Task
	DisplayStatus domain.DisplayStatus
	OwnerUsername string
}

// CreateTaskResult reports whether an Idempotency-Key replayed an earlier creation.
type CreateTaskResult struct {
	TaskView
	AlreadyExisted bool
}

// TaskService exposes the task use cases to the transport layer. A nil
// principal stands for an unauthenticated caller.
type TaskService interface {
	ListVisible(ctx context.Context, p *domain.Principal) ([]TaskView, error)
	Create(ctx context.Context, p *domain.Principal, in CreateTaskInput) (*CreateTaskResult, error)
	Update(ctx context.Context, p *domain.Principal, id int64, patch domain.TaskPatch) (*TaskView, error)
	Delete(ctx context.Context, p *domain.Principal, id int64) error
}

// AuthorizationRequest names an operation for a policy check. TaskID is
// consulted for Update, Fields lists what an Update wants to change.
type AuthorizationRequest struct {
	Kind   domain.OperationKind
	TaskID int64
	Fields domain.FieldSet
}
