package domain

import "time"

// TaskStatus is the lifecycle state of an analysis task.
type TaskStatus string

// Task states. Cancelled and completed are terminal.
const (
	TaskRunning   TaskStatus = "running"
	TaskCancelled TaskStatus = "cancelled"
	TaskCompleted TaskStatus = "completed"
	TaskNotFound  TaskStatus = "not_found"
)

// Task is a snapshot of a tracked analysis job.
type Task struct {
	ID        string
	Status    TaskStatus
	StartedAt time.Time
	EndedAt   time.Time // zero while running
}
