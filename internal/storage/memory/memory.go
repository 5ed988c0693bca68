package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	applications map[string]model.Application
	tasks        map[string]model.Task
	emails       map[string]time.Time
	mu           sync.RWMutex
	logger       log.Logger
}

var _ storage.Repository = &Repository{}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		applications: make(map[string]model.Application),
		tasks:        make(map[string]model.Task),
		emails:       make(map[string]time.Time),
		logger:       cfg.Logger,
	}, nil
}

// CreateApplication creates a new application in the repository.
func (r *Repository) CreateApplication(ctx context.Context, a model.Application) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.applications[a.ID]; ok {
		return fmt.Errorf("application with id %s: %w", a.ID, model.ErrAlreadyExists)
	}

	// One application per company and job.
	for _, existing := range r.applications {
		if sameJob(existing, a.Company, a.JobURL) {
			return fmt.Errorf("application for %s %s: %w", a.Company, a.JobURL, model.ErrAlreadyExists)
		}
	}

	r.applications[a.ID] = a
	r.logger.Debugf("Created application in repository: %s", a.ID)

	return nil
}

// GetApplication retrieves an application by ID.
func (r *Repository) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.applications[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, model.ErrNotFound)
	}

	return &a, nil
}

// GetApplicationByJob retrieves an application by company and job URL.
func (r *Repository) GetApplicationByJob(ctx context.Context, company, jobURL string) (*model.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.applications {
		if sameJob(a, company, jobURL) {
			return &a, nil
		}
	}

	return nil, fmt.Errorf("application for %s %s: %w", company, jobURL, model.ErrNotFound)
}

// ListApplications returns all applications.
func (r *Repository) ListApplications(ctx context.Context) ([]model.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	apps := make([]model.Application, 0, len(r.applications))
	for _, a := range r.applications {
		apps = append(apps, a)
	}
	sort.SliceStable(apps, func(i, j int) bool {
		if apps[i].AppliedAt.Equal(apps[j].AppliedAt) {
			return apps[i].ID > apps[j].ID
		}
		return apps[i].AppliedAt.After(apps[j].AppliedAt)
	})

	return apps, nil
}

// UpdateApplication updates an existing application.
func (r *Repository) UpdateApplication(ctx context.Context, a model.Application) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.applications[a.ID]; !ok {
		return fmt.Errorf("application %s: %w", a.ID, model.ErrNotFound)
	}

	r.applications[a.ID] = a
	r.logger.Debugf("Updated application in repository: %s", a.ID)

	return nil
}

// SaveTask creates or replaces a task.
func (r *Repository) SaveTask(ctx context.Context, t model.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[t.ID] = t
	r.logger.Debugf("Saved task in repository: %s", t.ID)

	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	return &t, nil
}

// ListTasks returns all tasks.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]model.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].StartedAt.Equal(tasks[j].StartedAt) {
			return tasks[i].ID > tasks[j].ID
		}
		return tasks[i].StartedAt.After(tasks[j].StartedAt)
	})

	return tasks, nil
}

// MarkEmailProcessed records a processed email.
func (r *Repository) MarkEmailProcessed(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return fmt.Errorf("email id is required: %w", model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.emails[id]; !ok {
		r.emails[id] = at
	}

	return nil
}

// IsEmailProcessed returns true if the email was already processed.
func (r *Repository) IsEmailProcessed(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.emails[id]
	return ok, nil
}

func sameJob(a model.Application, company, jobURL string) bool {
	return strings.EqualFold(a.Company, company) && a.JobURL == jobURL
}
