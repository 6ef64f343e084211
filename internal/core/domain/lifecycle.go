package domain

import "time"

// DisplayStatus is the status shown to clients. Unlike TaskStatus it can be
// "expired", which is derived at read time and never stored.
type DisplayStatus string

const (
	DisplayPending   DisplayStatus = "pending"
	DisplayCompleted DisplayStatus = "completed"
	DisplayExpired   DisplayStatus = "expired"
)

// Project derives the display status of t as observed at now.
// A completed task stays completed whatever its due date; a pending task whose
// due date lies strictly before now is expired.
func Project(t Task, now time.Time) DisplayStatus {
	if t.Status == StatusCompleted {
		return DisplayCompleted
	}
	if t.DueDate != nil && t.DueDate.Before(now) {
		return DisplayExpired
	}
	return DisplayStatus(t.Status)
}
