// Package provider is the contract with remote agent providers that run
// job applications in their own browsers.
package provider

import (
	"context"
	"strings"
)

// Provider runs remote apply tasks.
type Provider interface {
	// CreateTask starts a remote task and returns its provider id.
	CreateTask(ctx context.Context, jobURL, instructions string) (string, error)
	// GetTaskStatus returns the current remote status. Network and 5xx
	// failures wrap model.ErrTransport.
	GetTaskStatus(ctx context.Context, id string) (Status, error)
	// CancelTask asks the provider to stop a task. Best effort.
	CancelTask(ctx context.Context, id string) error
}

// Status is the provider view of a task.
type Status struct {
	// State uses the provider vocabulary, see MapState.
	State string
	// Steps is the number of agent steps taken, -1 when unknown.
	Steps       int
	CurrentStep string
	Output      string
	Cost        float64
	Error       string
}

// Outcome is a provider state mapped to the local task vocabulary.
type Outcome int

const (
	OutcomeRunning Outcome = iota
	OutcomeCompleted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	}
	return "running"
}

var (
	completedStates = map[string]struct{}{
		"completed": {}, "complete": {}, "success": {}, "succeeded": {}, "successful": {},
		"finished": {}, "done": {},
	}
	failedStates = map[string]struct{}{
		"failed": {}, "failure": {}, "error": {}, "errored": {}, "stopped": {},
		"cancelled": {}, "canceled": {}, "aborted": {}, "timeout": {}, "timed_out": {},
	}
	runningStates = map[string]struct{}{
		"created": {}, "queued": {}, "pending": {}, "started": {}, "running": {},
		"in_progress": {}, "paused": {}, "processing": {},
	}
)

// MapState maps a provider state to an outcome, case insensitive. known is
// false for states outside every synonym set, those count as running.
// Remote cancellation maps to failed, only a local cancel request makes a
// task cancelled.
func MapState(state string) (o Outcome, known bool) {
	s := strings.ToLower(strings.TrimSpace(state))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")

	if _, ok := completedStates[s]; ok {
		return OutcomeCompleted, true
	}
	if _, ok := failedStates[s]; ok {
		return OutcomeFailed, true
	}
	_, ok := runningStates[s]
	return OutcomeRunning, ok
}
