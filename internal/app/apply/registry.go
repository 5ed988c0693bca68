package apply

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/peebo/peebo/internal/model"
)

type registryEntry struct {
	task   model.Task
	cancel context.CancelFunc
	done   chan struct{}
}

// TaskRegistry is the owned store of in-flight tasks.
//
// A task is inserted when its remote task is created, mutated only while it
// is running, moved once to a terminal status with Finish and removed with
// Evict after its completion side effects ran.
type TaskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*registryEntry
}

// NewTaskRegistry returns an empty registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: map[string]*registryEntry{}}
}

// Insert adds a running task. cancel stops its poll loop and is called on Finish.
func (r *TaskRegistry) Insert(t model.Task, cancel context.CancelFunc) error {
	if t.Status != model.TaskStatusRunning {
		return fmt.Errorf("task %s is %s: %w", t.ID, t.Status, model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("task %s: %w", t.ID, model.ErrAlreadyExists)
	}
	if cancel == nil {
		cancel = func() {}
	}
	r.tasks[t.ID] = &registryEntry{task: t, cancel: cancel, done: make(chan struct{})}

	return nil
}

// Get returns a copy of a registered task.
func (r *TaskRegistry) Get(id string) (model.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return e.task, true
}

// Running returns the oldest running task, if any.
func (r *TaskRegistry) Running() (model.Task, bool) {
	for _, t := range r.List() {
		if t.Status == model.TaskStatusRunning {
			return t, true
		}
	}
	return model.Task{}, false
}

// List returns every registered task, oldest first.
func (r *TaskRegistry) List() []model.Task {
	r.mu.Lock()
	ts := make([]model.Task, 0, len(r.tasks))
	for _, e := range r.tasks {
		ts = append(ts, e.task)
	}
	r.mu.Unlock()

	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].StartedAt.Equal(ts[j].StartedAt) {
			return ts[i].ID < ts[j].ID
		}
		return ts[i].StartedAt.Before(ts[j].StartedAt)
	})
	return ts
}

// Update mutates a running task. The status can't be changed here and
// progress never goes backwards. Returns false if the task is not running.
func (r *TaskRegistry) Update(id string, fn func(t *model.Task)) (model.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[id]
	if !ok || e.task.Status != model.TaskStatusRunning {
		return model.Task{}, false
	}

	t := e.task
	fn(&t)
	t.ID = e.task.ID
	t.Status = model.TaskStatusRunning
	t.Progress = model.ClampProgress(max(e.task.Progress, t.Progress))
	e.task = t

	return t, true
}

// Finish moves a running task to a terminal status and stops its poll loop.
// Only the first call for a task succeeds.
func (r *TaskRegistry) Finish(id string, status model.TaskStatus, fn func(t *model.Task)) (model.Task, bool) {
	if !status.IsTerminal() {
		return model.Task{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[id]
	if !ok || e.task.Status != model.TaskStatusRunning {
		return model.Task{}, false
	}

	t := e.task
	if fn != nil {
		fn(&t)
	}
	t.ID = e.task.ID
	t.Status = status
	t.Progress = model.ClampProgress(max(e.task.Progress, t.Progress))
	e.task = t
	e.cancel()

	return t, true
}

// Evict removes a task and wakes up its waiters.
func (r *TaskRegistry) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[id]
	if !ok {
		return
	}
	delete(r.tasks, id)
	e.cancel()
	close(e.done)
}

// Await blocks until the task is evicted and returns its last state.
// found is false if the task was not registered.
func (r *TaskRegistry) Await(ctx context.Context, id string) (t model.Task, found bool, err error) {
	r.mu.Lock()
	e, ok := r.tasks[id]
	r.mu.Unlock()
	if !ok {
		return model.Task{}, false, nil
	}

	select {
	case <-ctx.Done():
		return model.Task{}, true, ctx.Err()
	case <-e.done:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return e.task, true, nil
}
