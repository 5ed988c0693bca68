package lib

import (
	"context"

	"github.com/peebo/peebo/internal/app/apply"
)

// ApplyOpts configures a job application.
type ApplyOpts struct {
	// JobURL is the job posting URL. Required.
	JobURL string
	// Company is derived from the job URL when empty.
	Company string
	// Role is read from the job page when empty.
	Role string
	// ResumeText overrides the applicant resume for this application only.
	ResumeText string
}

// Apply starts applying to a job and returns without waiting for the result.
//
// Only one task runs at a time: while one is running, the running task is
// returned together with [ErrAlreadyRunning]. If the remote agent refuses the
// task, a failed task is returned with a nil error.
func (c *Client) Apply(ctx context.Context, opts ApplyOpts) (*Task, error) {
	t, err := c.applySvc.Apply(ctx, apply.Request{
		JobURL:     opts.JobURL,
		Company:    opts.Company,
		Role:       opts.Role,
		ResumeText: opts.ResumeText,
	})
	if err != nil {
		if t.ID == "" {
			return nil, mapError(err)
		}
		result := fromInternalTask(t)
		return &result, mapError(err)
	}

	result := fromInternalTask(t)
	return &result, nil
}

// GetTask returns the latest state of a task.
// Returns [ErrNotFound] if the task does not exist.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	t, err := c.applySvc.Get(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(t)
	return &result, nil
}

// WaitTask blocks until the task ends or ctx is done. Once it returns, the
// application of a completed task is already recorded.
func (c *Client) WaitTask(ctx context.Context, id string) (*Task, error) {
	t, err := c.applySvc.Wait(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(t)
	return &result, nil
}

// CancelTask cancels a running task.
// Returns [ErrNotValid] if the task already ended.
func (c *Client) CancelTask(ctx context.Context, id string) (*Task, error) {
	t, err := c.applySvc.Cancel(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(t)
	return &result, nil
}
