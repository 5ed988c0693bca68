package list

import (
	"context"
	"fmt"

	"github.com/peebo/peebo/internal/classify"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/storage"
)

// ServiceConfig is the configuration for the list service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists applications and tasks with optional filtering.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the list request parameters.
type Request struct {
	// StatusFilter is an optional filter to only show applications with this status.
	StatusFilter *model.ApplicationStatus
	// Company only shows applications whose company matches it.
	Company string
}

// Run lists all applications, most recent first, optionally filtered.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Application, error) {
	s.logger.Debugf("listing applications with filter: %v, company: %q", req.StatusFilter, req.Company)

	apps, err := s.repo.ListApplications(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list applications: %w", err)
	}

	if req.StatusFilter != nil || req.Company != "" {
		filtered := make([]model.Application, 0, len(apps))
		for _, a := range apps {
			if req.StatusFilter != nil && a.Status != *req.StatusFilter {
				continue
			}
			if req.Company != "" && !classify.CompaniesMatch(a.Company, req.Company) {
				continue
			}
			filtered = append(filtered, a)
		}
		apps = filtered
	}

	s.logger.Debugf("found %d applications", len(apps))
	return apps, nil
}

// TasksRequest represents the task list request parameters.
type TasksRequest struct {
	StatusFilter *model.TaskStatus
}

// RunTasks lists the task history, most recent first.
func (s *Service) RunTasks(ctx context.Context, req TasksRequest) ([]model.Task, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}

	if req.StatusFilter != nil {
		filtered := make([]model.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Status == *req.StatusFilter {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	return tasks, nil
}
