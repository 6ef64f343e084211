package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tasktracker/task-system/internal/core/domain"
	"github.com/tasktracker/task-system/internal/core/ports"
)

const (
	demoUsername = "testuser"
	demoPassword = "123456"
)

// Seeder bootstraps accounts and demo data. Every step is safe to repeat on
// each start.
type Seeder struct {
	auth   *AuthService
	tasks  ports.TaskRepository
	logger zerolog.Logger
}

func NewSeeder(auth *AuthService, tasks ports.TaskRepository, logger zerolog.Logger) *Seeder {
	return &Seeder{auth: auth, tasks: tasks, logger: logger}
}

// EnsureAdmin creates the bootstrap admin unless the username already exists.
// An existing account keeps its role and password.
func (s *Seeder) EnsureAdmin(ctx context.Context, username, password string) (*domain.User, error) {
	user, created, err := s.auth.EnsureUser(ctx, username, password, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	if created {
		s.logger.Info().Str("username", user.Username).Msg("bootstrap admin created")
	} else if user.Role != domain.RoleAdmin {
		s.logger.Warn().Str("username", user.Username).Str("role", string(user.Role)).Msg("bootstrap admin username is taken by a non-admin account")
	}
	return user, nil
}

// SeedDemoData creates the demo user with two tasks. Tasks are only added
// while the demo user owns none.
func (s *Seeder) SeedDemoData(ctx context.Context) error {
	user, _, err := s.auth.EnsureUser(ctx, demoUsername, demoPassword, domain.RoleUser)
	if err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}

	existing, err := s.tasks.FindAllByOwner(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("seed demo tasks: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	demo := []struct {
		title, description string
		status             domain.TaskStatus
	}{
		{"First Task", "This is your first task", domain.StatusPending},
		{"Second Task", "Another test task", domain.StatusCompleted},
	}
	for _, d := range demo {
		desc := d.description
		if _, err := s.tasks.Create(ctx, &domain.Task{
			Title:       d.title,
			Description: &desc,
			Status:      d.status,
			OwnerID:     user.ID,
		}); err != nil {
			return fmt.Errorf("seed demo task %q: %w", d.title, err)
		}
	}

	s.logger.Info().Str("username", user.Username).Int("tasks", len(demo)).Msg("demo data seeded")
	return nil
}
