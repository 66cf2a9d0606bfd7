package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/docqa/internal/domain"
)

func TestCancel_Unknown(t *testing.T) {
	r := New()
	if r.Cancel("missing") {
		t.Fatal("Cancel(unknown) = true, want false")
	}
	if got := r.Status("missing").Status; got != domain.TaskNotFound {
		t.Errorf("Status = %q, want not_found", got)
	}
}

func TestCancel_Running(t *testing.T) {
	r := New()
	ctx := r.Start(context.Background(), "t1")

	if !r.Cancel("t1") {
		t.Fatal("Cancel(running) = false, want true")
	}
	if got := r.Status("t1").Status; got != domain.TaskCancelled {
		t.Errorf("Status = %q, want cancelled", got)
	}
	if !r.IsCancelled("t1") {
		t.Error("IsCancelled = false")
	}

	select {
	case <-ctx.Done():
	default:
		t.Fatal("task context not cancelled")
	}
	if !errors.Is(context.Cause(ctx), domain.ErrTaskCancelled) {
		t.Errorf("cause = %v, want ErrTaskCancelled", context.Cause(ctx))
	}
}

func TestCancel_Idempotent(t *testing.T) {
	r := New()
	r.Start(context.Background(), "t1")
	r.Cancel("t1")
	if !r.Cancel("t1") {
		t.Error("second Cancel = false, want true")
	}
}

func TestFinish_Completes(t *testing.T) {
	r := New()
	ctx := r.Start(context.Background(), "t1")
	r.Finish("t1")

	task := r.Status("t1")
	if task.Status != domain.TaskCompleted {
		t.Errorf("Status = %q, want completed", task.Status)
	}
	if task.EndedAt.IsZero() {
		t.Error("EndedAt not set")
	}
	if errors.Is(context.Cause(ctx), domain.ErrTaskCancelled) {
		t.Error("finished task must not carry the cancellation cause")
	}
}

func TestCancel_CompletedKeepsStatus(t *testing.T) {
	r := New()
	r.Start(context.Background(), "t1")
	r.Finish("t1")
	ended := r.Status("t1").EndedAt

	if !r.Cancel("t1") {
		t.Fatal("Cancel(completed) = false, want true for a known task")
	}
	task := r.Status("t1")
	if task.Status != domain.TaskCompleted {
		t.Errorf("Status = %q, want completed", task.Status)
	}
	if !task.EndedAt.Equal(ended) {
		t.Errorf("EndedAt changed from %v to %v", ended, task.EndedAt)
	}
	if r.IsCancelled("t1") {
		t.Error("IsCancelled = true for a completed task")
	}
}

func TestFinish_KeepsCancelled(t *testing.T) {
	r := New()
	r.Start(context.Background(), "t1")
	r.Cancel("t1")
	r.Finish("t1")

	if got := r.Status("t1").Status; got != domain.TaskCancelled {
		t.Errorf("Status = %q, want cancelled", got)
	}
}

func TestStart_Overwrites(t *testing.T) {
	r := New()
	r.Start(context.Background(), "t1")
	r.Cancel("t1")

	ctx := r.Start(context.Background(), "t1")
	if got := r.Status("t1").Status; got != domain.TaskRunning {
		t.Errorf("Status = %q, want running", got)
	}
	if ctx.Err() != nil {
		t.Error("restarted task context already done")
	}
}

func TestStart_RecordsTimes(t *testing.T) {
	r := New()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.Start(context.Background(), "t1")
	if got := r.Status("t1"); !got.StartedAt.Equal(fixed) || !got.EndedAt.IsZero() {
		t.Errorf("task = %+v", got)
	}
}

func TestFinish_Unknown(t *testing.T) {
	r := New()
	r.Finish("missing")
	if got := r.Status("missing").Status; got != domain.TaskNotFound {
		t.Errorf("Status = %q", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); r.Start(context.Background(), "shared") }()
		go func() { defer wg.Done(); r.Cancel("shared") }()
		go func() { defer wg.Done(); _ = r.IsCancelled("shared") }()
	}
	wg.Wait()
	if got := r.Status("shared").Status; got == domain.TaskNotFound {
		t.Error("shared task missing")
	}
}
