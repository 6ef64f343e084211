package domain

import (
	"testing"
	"time"
)

func TestProject(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	exact := now

	tests := []struct {
		name   string
		status TaskStatus
		due    *time.Time
		want   DisplayStatus
	}{
		{"pending without due date", StatusPending, nil, DisplayPending},
		{"pending due in future", StatusPending, &future, DisplayPending},
		{"pending due exactly now", StatusPending, &exact, DisplayPending},
		{"pending overdue", StatusPending, &past, DisplayExpired},
		{"completed without due date", StatusCompleted, nil, DisplayCompleted},
		{"completed overdue", StatusCompleted, &past, DisplayCompleted},
		{"completed due in future", StatusCompleted, &future, DisplayCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := Task{ID: 1, Status: tt.status, DueDate: tt.due}
			if got := Project(task, now); got != tt.want {
				t.Fatalf("Project() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProject_DoesNotMutateAndFlipsAcrossDueDate(t *testing.T) {
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	task := Task{ID: 1, Status: StatusPending, DueDate: &due}

	before := Project(task, due.Add(-time.Second))
	after := Project(task, due.Add(time.Second))

	if before != DisplayPending || after != DisplayExpired {
		t.Fatalf("expected pending then expired, got %s then %s", before, after)
	}
	if task.Status != StatusPending {
		t.Fatalf("stored status changed to %s", task.Status)
	}
	if again := Project(task, due.Add(time.Second)); again != after {
		t.Fatalf("projection is not idempotent: %s vs %s", again, after)
	}
}

func TestProject_CompletedIgnoresAnyDueDate(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := -5; i <= 5; i++ {
		due := base.AddDate(i, 0, 0)
		task := Task{Status: StatusCompleted, DueDate: &due}
		for j := -5; j <= 5; j++ {
			now := base.AddDate(j, 0, 0)
			if got := Project(task, now); got != DisplayCompleted {
				t.Fatalf("due=%s now=%s: got %s", due, now, got)
			}
		}
	}
}
