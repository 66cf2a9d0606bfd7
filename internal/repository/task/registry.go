// Package task tracks the lifecycle of analysis jobs in memory.
package task

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/docqa/internal/domain"
)

type entry struct {
	task   domain.Task
	cancel context.CancelCauseFunc
}

// Registry holds every task started in this process. Tasks are never removed.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*entry
	now   func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		tasks: make(map[string]*entry),
		now:   time.Now,
	}
}

// Start records id as running and returns a context that is cancelled with
// cause domain.ErrTaskCancelled when the task is cancelled. Starting an
// existing id overwrites its record.
func (r *Registry) Start(ctx context.Context, id string) context.Context {
	taskCtx, cancel := context.WithCancelCause(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = &entry{
		task: domain.Task{
			ID:        id,
			Status:    domain.TaskRunning,
			StartedAt: r.now(),
		},
		cancel: cancel,
	}
	return taskCtx
}

// Cancel marks a running task cancelled and cancels its context. It reports
// whether the task exists; a finished task keeps its terminal status.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[id]
	if !ok {
		return false
	}
	if e.task.Status != domain.TaskRunning {
		return true
	}

	e.task.Status = domain.TaskCancelled
	e.task.EndedAt = r.now()
	e.cancel(domain.ErrTaskCancelled)
	return true
}

// Finish marks a running task completed. A cancelled task stays cancelled.
func (r *Registry) Finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[id]
	if !ok {
		return
	}
	if e.task.Status == domain.TaskRunning {
		e.task.Status = domain.TaskCompleted
		e.task.EndedAt = r.now()
	}
	e.cancel(nil)
}

// IsCancelled reports whether id was cancelled. Unknown ids are not cancelled.
func (r *Registry) IsCancelled(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	return ok && e.task.Status == domain.TaskCancelled
}

// Status returns a snapshot of the task, with status not_found for unknown ids.
func (r *Registry) Status(id string) domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok {
		return domain.Task{ID: id, Status: domain.TaskNotFound}
	}
	return e.task
}
