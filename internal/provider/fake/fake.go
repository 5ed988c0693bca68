// Package fake is a scripted provider.Provider for tests and dry runs.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/provider"
)

// Reply is one scripted answer to a status poll.
type Reply struct {
	Status provider.Status
	Err    error
}

// DefaultScript is a short successful run.
func DefaultScript() []Reply {
	return []Reply{
		{Status: provider.Status{State: "created", Steps: 0}},
		{Status: provider.Status{State: "running", Steps: 3, CurrentStep: "Opening the application form"}},
		{Status: provider.Status{State: "running", Steps: 9, CurrentStep: "Filling personal details"}},
		{Status: provider.Status{State: "running", Steps: 15, CurrentStep: "Uploading resume"}},
		{Status: provider.Status{State: "finished", Steps: 18, Output: "Application submitted. Thank you for applying!", Cost: 0.04}},
	}
}

// ProviderConfig is the configuration for the fake provider.
type ProviderConfig struct {
	// Script is replayed for every task, the last reply repeats.
	Script []Reply
	// CreateErr makes every CreateTask fail.
	CreateErr error
	// CancelHook runs on every CancelTask.
	CancelHook func(ctx context.Context, id string) error
	Logger     log.Logger
}

func (c *ProviderConfig) defaults() error {
	if len(c.Script) == 0 {
		c.Script = DefaultScript()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "fake.Provider"})
	return nil
}

// Created is a recorded CreateTask call.
type Created struct {
	ID           string
	JobURL       string
	Instructions string
}

type task struct {
	polls     int
	cancelled bool
}

// Provider is a fake provider.Provider.
type Provider struct {
	cfg ProviderConfig

	mu      sync.Mutex
	tasks   map[string]*task
	created []Created
	logger  log.Logger
}

var _ provider.Provider = &Provider{}

// NewProvider returns a new fake provider.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Provider{
		cfg:    cfg,
		tasks:  map[string]*task{},
		logger: cfg.Logger,
	}, nil
}

// CreateTask satisfies provider.Provider.
func (p *Provider) CreateTask(ctx context.Context, jobURL, instructions string) (string, error) {
	if p.cfg.CreateErr != nil {
		return "", p.cfg.CreateErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := fmt.Sprintf("fake-%d", len(p.created)+1)
	p.tasks[id] = &task{}
	p.created = append(p.created, Created{ID: id, JobURL: jobURL, Instructions: instructions})
	p.logger.Debugf("Created fake task %s", id)

	return id, nil
}

// GetTaskStatus satisfies provider.Provider.
func (p *Provider) GetTaskStatus(ctx context.Context, id string) (provider.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tasks[id]
	if !ok {
		return provider.Status{}, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	if t.cancelled {
		return provider.Status{State: "stopped", Steps: -1}, nil
	}

	i := min(t.polls, len(p.cfg.Script)-1)
	t.polls++
	r := p.cfg.Script[i]
	return r.Status, r.Err
}

// CancelTask satisfies provider.Provider.
func (p *Provider) CancelTask(ctx context.Context, id string) error {
	if p.cfg.CancelHook != nil {
		if err := p.cfg.CancelHook(ctx, id); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	t.cancelled = true
	return nil
}

// Created returns the recorded CreateTask calls.
func (p *Provider) Created() []Created {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Created(nil), p.created...)
}

// Polls returns how many times a task was polled.
func (p *Provider) Polls(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.tasks[id]; ok {
		return t.polls
	}
	return 0
}

// Cancelled returns true if a task was cancelled.
func (p *Provider) Cancelled(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[id]
	return ok && t.cancelled
}
