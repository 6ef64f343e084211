package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasktracker/task-system/internal/core/domain"
	"github.com/tasktracker/task-system/internal/core/ports"
	"github.com/tasktracker/task-system/internal/pkg/clock"
)

const (
	idempotencyPollInterval   = 25 * time.Millisecond
	idempotencyPollAttempts   = 80
	idempotencyReleaseTimeout = 2 * time.Second
)

// TaskService gates every task use case through domain.Authorize and derives
// display statuses at read time.
type TaskService struct {
	tasks  ports.TaskRepository
	users  ports.UserRepository
	tokens ports.TokenVerifier
	idem   ports.IdempotencyStore
	clock  clock.Clock
	logger zerolog.Logger

	// pollInterval and pollAttempts bound how long a request waits for a
	// concurrent one holding the same Idempotency-Key.
	pollInterval time.Duration
	pollAttempts int
}

// NewTaskService wires the task use cases. idem may be nil, in which case
// Idempotency-Key values are ignored.
func NewTaskService(
	tasks ports.TaskRepository,
	users ports.UserRepository,
	tokens ports.TokenVerifier,
	idem ports.IdempotencyStore,
	clk clock.Clock,
	logger zerolog.Logger,
) *TaskService {
	if clk == nil {
		clk = clock.System()
	}
	return &TaskService{
		tasks:  tasks,
		users:  users,
		tokens: tokens,
		idem:   idem,
		clock:  clk,
		logger: logger,

		pollInterval: idempotencyPollInterval,
		pollAttempts: idempotencyPollAttempts,
	}
}

// Authorize evaluates the policy for p. For Update the current task is loaded
// first so that ownership can be checked; a missing task is reported in the
// decision, not as an error.
func (s *TaskService) Authorize(ctx context.Context, p *domain.Principal, req ports.AuthorizationRequest) (domain.Decision, error) {
	op := domain.Operation{Kind: req.Kind, Fields: req.Fields}
	if p != nil && req.Kind == domain.OpUpdate {
		task, err := s.lookup(ctx, req.TaskID)
		if err != nil {
			return domain.Decision{}, err
		}
		op.Task = task
	}
	return domain.Authorize(p, op), nil
}

// AuthorizeToken is Authorize for a raw bearer token. An empty token is an
// unauthenticated caller; any other unverifiable token fails with
// domain.ErrInvalidToken.
func (s *TaskService) AuthorizeToken(ctx context.Context, token string, req ports.AuthorizationRequest) (domain.Decision, error) {
	p, err := s.principal(token)
	if err != nil {
		return domain.Decision{}, err
	}
	return s.Authorize(ctx, p, req)
}

// ListVisibleTasks is ListVisible for a raw bearer token.
func (s *TaskService) ListVisibleTasks(ctx context.Context, token string) ([]ports.TaskView, error) {
	p, err := s.principal(token)
	if err != nil {
		return nil, err
	}
	return s.ListVisible(ctx, p)
}

// ListVisible returns the tasks p may see, newest first, each with its
// display status computed against a single reading of the clock.
func (s *TaskService) ListVisible(ctx context.Context, p *domain.Principal) ([]ports.TaskView, error) {
	if err := domain.Authorize(p, domain.Operation{Kind: domain.OpReadAll}).Err(); err != nil {
		return nil, err
	}

	var (
		tasks []domain.Task
		names map[int64]string
		err   error
	)
	switch p.Role {
	case domain.RoleAdmin:
		tasks, err = s.tasks.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		names, err = s.usernames(ctx)
		if err != nil {
			return nil, err
		}
	case domain.RoleUser:
		tasks, err = s.tasks.FindAllByOwner(ctx, p.UserID)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		names = map[int64]string{p.UserID: p.Username}
	default:
		return nil, domain.ErrForbidden
	}

	visible := domain.VisibleTasks(p, tasks)
	now := s.clock.Now()
	views := make([]ports.TaskView, 0, len(visible))
	for _, t := range visible {
		views = append(views, ports.TaskView{
			Task:          t,
			DisplayStatus: domain.Project(t, now),
			OwnerUsername: names[t.OwnerID],
		})
	}
	return views, nil
}

// Create stores a new task for in.OwnerID. Only admins may create tasks.
func (s *TaskService) Create(ctx context.Context, p *domain.Principal, in ports.CreateTaskInput) (*ports.CreateTaskResult, error) {
	if err := domain.Authorize(p, domain.Operation{Kind: domain.OpCreate}).Err(); err != nil {
		return nil, err
	}

	title, err := domain.NormalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	status := domain.StatusPending
	if in.Status != "" {
		if status, err = domain.ParseTaskStatus(in.Status); err != nil {
			return nil, err
		}
	}
	if in.OwnerID <= 0 {
		return nil, domain.NewValidationError("owner_id", "owner_id is required")
	}
	if _, err := s.users.FindByID(ctx, in.OwnerID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewValidationError("owner_id", "owner_id does not reference an existing user")
		}
		return nil, fmt.Errorf("create task: load owner: %w", err)
	}

	scope := strconv.FormatInt(p.UserID, 10)
	claimed := false
	if in.IdempotencyKey != "" && s.idem != nil {
		earlier, owned, err := s.claim(ctx, scope, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if earlier != nil {
			view := s.view(ctx, p, *earlier)
			return &ports.CreateTaskResult{TaskView: view, AlreadyExisted: true}, nil
		}
		claimed = owned
	}

	created, err := s.tasks.Create(ctx, &domain.Task{
		Title:       title,
		Description: in.Description,
		Status:      status,
		OwnerID:     in.OwnerID,
		DueDate:     in.DueDate,
	})
	if err != nil {
		if claimed {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), idempotencyReleaseTimeout)
			rerr := s.idem.Release(releaseCtx, scope, in.IdempotencyKey)
			cancel()
			if rerr != nil {
				s.logger.Warn().Err(rerr).Str("idempotency_key", in.IdempotencyKey).Msg("failed to release idempotency key")
			}
		}
		return nil, fmt.Errorf("create task: %w", err)
	}

	if claimed {
		if err := s.idem.Remember(ctx, scope, in.IdempotencyKey, created.ID); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to record idempotency key")
		}
	}

	s.logger.Info().Int64("task_id", created.ID).Int64("owner_id", created.OwnerID).Int64("actor_id", p.UserID).Msg("task created")
	return &ports.CreateTaskResult{TaskView: s.view(ctx, p, *created)}, nil
}

// Update applies the part of patch the caller is allowed to change. Fields
// outside that set are dropped without error.
func (s *TaskService) Update(ctx context.Context, p *domain.Principal, id int64, patch domain.TaskPatch) (*ports.TaskView, error) {
	if p == nil {
		return nil, domain.Authorize(nil, domain.Operation{Kind: domain.OpUpdate}).Err()
	}

	task, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	decision := domain.Authorize(p, domain.Operation{Kind: domain.OpUpdate, Task: task, Fields: patch.Fields()})
	if err := decision.Err(); err != nil {
		return nil, err
	}

	if !decision.Dropped.Empty() {
		s.logger.Debug().Int64("task_id", id).Int64("actor_id", p.UserID).Strs("fields", decision.Dropped.Names()).Msg("ignoring fields the caller may not change")
	}

	restricted, err := patch.Restrict(decision.AllowedFields).Normalize()
	if err != nil {
		return nil, err
	}
	if restricted.Fields().Empty() {
		view := s.view(ctx, p, *task)
		return &view, nil
	}

	updated, err := s.tasks.Update(ctx, id, task.OwnerID, restricted)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}

	s.logger.Info().Int64("task_id", id).Int64("actor_id", p.UserID).Strs("fields", restricted.Fields().Names()).Msg("task updated")
	view := s.view(ctx, p, *updated)
	return &view, nil
}

// Delete removes a task permanently. Only admins may delete.
func (s *TaskService) Delete(ctx context.Context, p *domain.Principal, id int64) error {
	if err := domain.Authorize(p, domain.Operation{Kind: domain.OpDelete}).Err(); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	s.logger.Info().Int64("task_id", id).Int64("actor_id", p.UserID).Msg("task deleted")
	return nil
}

func (s *TaskService) principal(token string) (*domain.Principal, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	return session.Principal(), nil
}

// lookup returns nil, nil when the task does not exist.
func (s *TaskService) lookup(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if errors.Is(err, domain.ErrTaskNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load task %d: %w", id, err)
	}
	return task, nil
}

// claim resolves an Idempotency-Key before a task is created. It returns the
// task an earlier request created with the key, or owned=true when the caller
// holds the key and must record the task it creates. While another request
// holds the key, claim polls until that request finishes or gives up with
// ErrRequestInProgress. An unavailable store degrades to a plain create.
func (s *TaskService) claim(ctx context.Context, scope, key string) (*domain.Task, bool, error) {
	for attempt := 1; ; attempt++ {
		reserved, id, err := s.idem.Reserve(ctx, scope, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency store unavailable, creating anyway")
			return nil, false, nil
		}
		if reserved {
			return nil, true, nil
		}
		if id > 0 {
			task, err := s.tasks.FindByID(ctx, id)
			if errors.Is(err, domain.ErrTaskNotFound) {
				// The recorded task was deleted since; the key starts over.
				return nil, true, nil
			}
			if err != nil {
				return nil, false, fmt.Errorf("idempotent replay: %w", err)
			}
			s.logger.Info().Str("idempotency_key", key).Int64("task_id", id).Msg("idempotent replay")
			return task, false, nil
		}

		if attempt >= s.pollAttempts {
			return nil, false, domain.ErrRequestInProgress
		}
		timer := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *TaskService) usernames(ctx context.Context) (map[int64]string, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names, nil
}

func (s *TaskService) view(ctx context.Context, p *domain.Principal, t domain.Task) ports.TaskView {
	name := ""
	if t.OwnerID == p.UserID {
		name = p.Username
	} else if owner, err := s.users.FindByID(ctx, t.OwnerID); err == nil {
		name = owner.Username
	}
	return ports.TaskView{Task: t, DisplayStatus: domain.Project(t, s.clock.Now()), OwnerUsername: name}
}
