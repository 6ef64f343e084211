package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tasktracker/task-system/internal/core/domain"
)

const newestFirst = "created_at desc, id desc"

// TaskRepository stores tasks in the tasks table.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	m := taskModel{
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		OwnerID:     task.OwnerID,
		DueDate:     task.DueDate,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	t := m.toDomain()
	return &t, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	var m taskModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	t := m.toDomain()
	return &t, nil
}

func (r *TaskRepository) FindAll(ctx context.Context) ([]domain.Task, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *TaskRepository) FindAllByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	return r.find(r.db.WithContext(ctx).Where("owner_id = ?", ownerID))
}

func (r *TaskRepository) find(q *gorm.DB) ([]domain.Task, error) {
	var models []taskModel
	if err := q.Order(newestFirst).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	out := make([]domain.Task, 0, len(models))
	for _, m := range models {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// Update writes only the patched columns, guarded by owner_id.
func (r *TaskRepository) Update(ctx context.Context, id, ownerID int64, patch domain.TaskPatch) (*domain.Task, error) {
	db := r.db.WithContext(ctx)
	changes := updateColumns(patch)
	changes["updated_at"] = db.NowFunc()

	result := db.Model(&taskModel{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(changes)
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrTaskNotFound
	}
	return r.FindByID(ctx, id)
}

func updateColumns(p domain.TaskPatch) map[string]any {
	cols := make(map[string]any)
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.ClearDescription {
		cols["description"] = nil
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.DueDate != nil {
		cols["due_date"] = p.DueDate.UTC()
	}
	if p.ClearDueDate {
		cols["due_date"] = nil
	}
	return cols
}

// Delete removes the row permanently.
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&taskModel{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}
