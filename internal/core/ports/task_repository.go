package ports

import (
	"context"

	"github.com/tasktracker/task-system/internal/core/domain"
)

// TaskRepository is the task store. It owns ID, CreatedAt and UpdatedAt.
// List methods return newest tasks first.
type TaskRepository interface {
	// FindByID returns domain.ErrTaskNotFound when the task does not exist.
	FindByID(ctx context.Context, id int64) (*domain.Task, error)
	FindAll(ctx context.Context) ([]domain.Task, error)
	FindAllByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Update applies patch only while the task still belongs to ownerID, the
	// owner observed when the update was authorized. A vanished task or an
	// owner mismatch yields domain.ErrTaskNotFound.
	Update(ctx context.Context, id, ownerID int64, patch domain.TaskPatch) (*domain.Task, error)
	// Delete returns domain.ErrTaskNotFound when nothing was removed.
	Delete(ctx context.Context, id int64) error
}
