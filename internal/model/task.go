package model

import (
	"fmt"
	"time"
)

// TaskStatus represents the state of an apply task.
type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal returns true when no further transition can happen from the status.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// Task is one attempt to apply to one job through a remote agent.
type Task struct {
	ID          string     `json:"task_id"`
	RemoteID    string     `json:"remote_task_id,omitempty"`
	JobURL      string     `json:"job_url"`
	Company     string     `json:"company"`
	Role        string     `json:"role,omitempty"`
	Status      TaskStatus `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"current_step,omitempty"`
	Error       string     `json:"error,omitempty"`
	Steps       int        `json:"steps,omitempty"`
	Cost        float64    `json:"cost,omitempty"`
	Output      string     `json:"output,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Validate validates the task.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required: %w", ErrNotValid)
	}
	if t.JobURL == "" {
		return fmt.Errorf("job url is required: %w", ErrNotValid)
	}
	switch t.Status {
	case TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
	default:
		return fmt.Errorf("unknown status %q: %w", t.Status, ErrNotValid)
	}
	if t.Progress < 0 || t.Progress > 100 {
		return fmt.Errorf("progress %d out of range: %w", t.Progress, ErrNotValid)
	}
	return nil
}

// ClampProgress keeps a progress value inside [0, 100].
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
