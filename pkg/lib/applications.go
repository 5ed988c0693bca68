package lib

import (
	"context"

	"github.com/peebo/peebo/internal/app/list"
	"github.com/peebo/peebo/internal/model"
)

// ListApplicationsOpts filters listed applications. Nil lists everything.
type ListApplicationsOpts struct {
	Status *ApplicationStatus
	// Company matches company names loosely, ignoring case and legal suffixes.
	Company string
}

// ListApplications lists tracked applications, most recent first.
func (c *Client) ListApplications(ctx context.Context, opts *ListApplicationsOpts) ([]Application, error) {
	req := list.Request{}
	if opts != nil {
		req.Company = opts.Company
		if opts.Status != nil {
			s := model.ApplicationStatus(*opts.Status)
			req.StatusFilter = &s
		}
	}

	apps, err := c.listSvc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalApplicationList(apps), nil
}

// ListTasksOpts filters listed tasks. Nil lists everything.
type ListTasksOpts struct {
	Status *TaskStatus
}

// ListTasks lists the finished tasks history, most recent first.
func (c *Client) ListTasks(ctx context.Context, opts *ListTasksOpts) ([]Task, error) {
	req := list.TasksRequest{}
	if opts != nil && opts.Status != nil {
		s := model.TaskStatus(*opts.Status)
		req.StatusFilter = &s
	}

	tasks, err := c.listSvc.RunTasks(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalTaskList(tasks), nil
}
