package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/tasktracker/task-system/internal/core/domain"
)

var discardLogger = zerolog.Nop()

var testHasher = NewBcryptHasher(bcrypt.MinCost)

type stubUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
	err    error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrDuplicateUsername
		}
	}
	r.nextID++
	stored := cloneUser(user)
	stored.ID = r.nextID
	r.users[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *stubUserRepo) ListAll(_ context.Context) ([]domain.UserSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.UserSummary, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, domain.UserSummary{ID: u.ID, Username: u.Username})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// add stores a user with a real bcrypt hash and returns it.
func (r *stubUserRepo) add(username, password string, role domain.Role) *domain.User {
	hash, err := testHasher.Hash(password)
	if err != nil {
		panic(err)
	}
	u, err := r.Create(context.Background(), &domain.User{Username: username, PasswordHash: hash, Role: role})
	if err != nil {
		panic(err)
	}
	return u
}

type stubTaskRepo struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*domain.Task
	clock  func() time.Time

	updates   int
	createErr error
}

func newStubTaskRepo(now func() time.Time) *stubTaskRepo {
	return &stubTaskRepo{tasks: make(map[int64]*domain.Task), clock: now}
}

func cloneTask(t *domain.Task) *domain.Task {
	clone := *t
	return &clone
}

func (r *stubTaskRepo) FindByID(_ context.Context, id int64) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

func (r *stubTaskRepo) sorted(filter func(*domain.Task) bool) []domain.Task {
	out := make([]domain.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if filter(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *stubTaskRepo) FindAll(_ context.Context) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(*domain.Task) bool { return true }), nil
}

func (r *stubTaskRepo) FindAllByOwner(_ context.Context, ownerID int64) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(t *domain.Task) bool { return t.OwnerID == ownerID }), nil
}

func (r *stubTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	stored := cloneTask(task)
	stored.ID = r.nextID
	stored.CreatedAt = r.clock()
	stored.UpdatedAt = stored.CreatedAt
	r.tasks[stored.ID] = stored
	return cloneTask(stored), nil
}

func (r *stubTaskRepo) Update(_ context.Context, id, ownerID int64, patch domain.TaskPatch) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, domain.ErrTaskNotFound
	}
	updated := applyPatch(*t, patch)
	updated.UpdatedAt = r.clock()
	r.tasks[id] = &updated
	r.updates++
	return cloneTask(&updated), nil
}

func applyPatch(t domain.Task, p domain.TaskPatch) domain.Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		d := *p.Description
		t.Description = &d
	}
	if p.ClearDescription {
		t.Description = nil
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.ClearDueDate {
		t.DueDate = nil
	}
	return t
}

func (r *stubTaskRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

// stubIdempotencyStore records 0 for a key that is reserved but has no task
// yet.
type stubIdempotencyStore struct {
	mu       sync.Mutex
	keys     map[string]int64
	err      error
	releases int
}

func newStubIdempotencyStore() *stubIdempotencyStore {
	return &stubIdempotencyStore{keys: make(map[string]int64)}
}

func (s *stubIdempotencyStore) Reserve(_ context.Context, scope, key string) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, 0, s.err
	}
	if id, ok := s.keys[scope+":"+key]; ok {
		return false, id, nil
	}
	s.keys[scope+":"+key] = 0
	return true, 0, nil
}

func (s *stubIdempotencyStore) Remember(_ context.Context, scope, key string, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.keys[scope+":"+key] = taskID
	return nil
}

func (s *stubIdempotencyStore) Release(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.keys[scope+":"+key] == 0 {
		delete(s.keys, scope+":"+key)
	}
	s.releases++
	return nil
}

var errStoreDown = errors.New("store unavailable")
