// Package apply runs "apply to this job" tasks on a remote agent provider
// and tracks each one as a polled state machine until it ends.
package apply

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/notify"
	"github.com/peebo/peebo/internal/provider"
	"github.com/peebo/peebo/internal/storage"
)

// errPollLimit is the error of a task that never reached a terminal state.
const errPollLimit = "task exceeded polling limit"

const (
	sideEffectTimeout = 30 * time.Second
	roleFetchTimeout  = 10 * time.Second
	outputNoteLimit   = 200
)

// ServiceConfig is the configuration for the apply service.
type ServiceConfig struct {
	Provider   provider.Provider
	Repository storage.Repository
	Notifier   notify.Notifier
	Applicant  model.Applicant
	Registry   *TaskRegistry
	// RoleFetcher resolves the role when the request has none. Optional.
	RoleFetcher RoleFetcher
	// PollInterval is the time between the end of a poll and the next one.
	PollInterval time.Duration
	// MaxPolls and MaxDuration bound a task, reaching any of them fails it.
	MaxPolls    int
	MaxDuration time.Duration
	// StepBudget is the number of agent steps assumed for a full application.
	StepBudget int
	// AllowConcurrent lets more than one task run at the same time.
	AllowConcurrent bool
	TimeNow         func() time.Time
	IDGen           func() string
	Logger          log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Provider == nil {
		return fmt.Errorf("provider is required")
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Notifier == nil {
		c.Notifier = notify.Noop
	}

	if c.Registry == nil {
		c.Registry = NewTaskRegistry()
	}

	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}

	if c.MaxPolls <= 0 {
		c.MaxPolls = 600
	}

	if c.MaxDuration <= 0 {
		c.MaxDuration = 30 * time.Minute
	}

	if c.StepBudget <= 0 {
		c.StepBudget = 25
	}

	if c.TimeNow == nil {
		c.TimeNow = func() time.Time { return time.Now().UTC() }
	}

	if c.IDGen == nil {
		c.IDGen = func() string { return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String() }
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "apply.Service"})

	return nil
}

// Service creates remote apply tasks and drives them to a terminal state.
type Service struct {
	provider        provider.Provider
	repo            storage.Repository
	notifier        notify.Notifier
	applicant       model.Applicant
	registry        *TaskRegistry
	roleFetcher     RoleFetcher
	pollInterval    time.Duration
	maxPolls        int
	maxDuration     time.Duration
	stepBudget      int
	allowConcurrent bool
	timeNow         func() time.Time
	idGen           func() string
	logger          log.Logger

	// unsaved holds finished tasks the history store rejected, so they stay
	// readable after leaving the registry.
	unsavedMu  sync.Mutex
	unsaved    map[string]model.Task
	unsavedIDs []string

	startMu sync.Mutex
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a new apply service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Service{
		provider:        cfg.Provider,
		repo:            cfg.Repository,
		notifier:        cfg.Notifier,
		applicant:       cfg.Applicant,
		registry:        cfg.Registry,
		roleFetcher:     cfg.RoleFetcher,
		pollInterval:    cfg.PollInterval,
		maxPolls:        cfg.MaxPolls,
		maxDuration:     cfg.MaxDuration,
		stepBudget:      cfg.StepBudget,
		allowConcurrent: cfg.AllowConcurrent,
		timeNow:         cfg.TimeNow,
		idGen:           cfg.IDGen,
		logger:          cfg.Logger,
		unsaved:         map[string]model.Task{},
		baseCtx:         ctx,
		stop:            stop,
	}, nil
}

// Request represents the apply request parameters.
type Request struct {
	JobURL string
	// Company and Role are derived from the job when empty.
	Company string
	Role    string
	// ResumeText overrides the applicant resume for this task.
	ResumeText string
}

// Apply creates a remote task and starts polling it in the background.
//
// If a task is already running and concurrency is not allowed, the running
// task is returned with model.ErrAlreadyRunning. A failure creating the remote
// task returns a failed task, not an error.
func (s *Service) Apply(ctx context.Context, req Request) (model.Task, error) {
	jobURL, err := normalizeJobURL(req.JobURL)
	if err != nil {
		return model.Task{}, err
	}

	applicant := s.applicant
	if req.ResumeText != "" {
		applicant.ResumeText = req.ResumeText
	}
	if err := applicant.Validate(); err != nil {
		return model.Task{}, fmt.Errorf("invalid applicant profile: %w", err)
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()

	if !s.allowConcurrent {
		if running, ok := s.registry.Running(); ok {
			return running, fmt.Errorf("task %s is running: %w", running.ID, model.ErrAlreadyRunning)
		}
	}

	company := strings.TrimSpace(req.Company)
	if company == "" {
		company = CompanyFromURL(jobURL)
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = s.fetchRole(ctx, jobURL)
	}

	instructions, err := RenderInstructions(jobURL, applicant)
	if err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		ID:          s.idGen(),
		JobURL:      jobURL,
		Company:     company,
		Role:        role,
		CurrentStep: "Creating remote task",
		StartedAt:   s.timeNow(),
	}
	logger := s.logger.WithValues(log.Kv{"task-id": task.ID})

	remoteID, err := s.provider.CreateTask(ctx, jobURL, instructions)
	if err != nil {
		now := s.timeNow()
		task.Status = model.TaskStatusFailed
		task.Error = fmt.Sprintf("could not create remote task: %s", err)
		task.CurrentStep = ""
		task.FinishedAt = &now
		logger.Warningf("Task creation failed: %s", err)
		s.afterFinish(task)
		return task, nil
	}

	task.RemoteID = remoteID
	task.Status = model.TaskStatusRunning
	task.Progress = 5
	task.CurrentStep = "Task created"

	pollCtx, cancel := context.WithCancel(s.baseCtx)
	if err := s.registry.Insert(task, cancel); err != nil {
		cancel()
		return model.Task{}, fmt.Errorf("could not register task: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.poll(pollCtx, task.ID, remoteID)
	}()

	logger.Infof("Started apply task for %s at %s (remote: %s)", company, jobURL, remoteID)
	return task, nil
}

func (s *Service) fetchRole(ctx context.Context, jobURL string) string {
	if s.roleFetcher == nil {
		return unknownRole
	}

	ctx, cancel := context.WithTimeout(ctx, roleFetchTimeout)
	defer cancel()

	role, err := s.roleFetcher.FetchRole(ctx, jobURL)
	if err != nil || role == "" {
		s.logger.Debugf("Could not resolve role for %s: %v", jobURL, err)
		return unknownRole
	}
	return role
}

// poll queries the remote task until it ends. The next poll is only
// scheduled once the previous result has been processed.
func (s *Service) poll(ctx context.Context, id, remoteID string) {
	logger := s.logger.WithValues(log.Kv{"task-id": id, "remote-task-id": remoteID})
	deadline := s.timeNow().Add(s.maxDuration)

	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	for polls := 1; ; polls++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if polls > s.maxPolls || s.timeNow().After(deadline) {
			logger.Warningf("Task reached the polling limit after %d polls", polls-1)
			if _, ok := s.fail(id, errPollLimit, ""); ok {
				s.cancelRemote(remoteID, logger)
			}
			return
		}

		st, err := s.provider.GetTaskStatus(ctx, remoteID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, model.ErrProviderTask) || errors.Is(err, model.ErrNotFound) {
				logger.Errorf("Remote task failed: %s", err)
				s.fail(id, err.Error(), "")
				return
			}
			logger.Warningf("Could not poll remote task, retrying: %s", err)
			timer.Reset(s.pollInterval)
			continue
		}

		if s.process(id, polls, st, logger) {
			return
		}
		timer.Reset(s.pollInterval)
	}
}

// process applies one provider status and returns true once the task ended.
func (s *Service) process(id string, polls int, st provider.Status, logger log.Logger) bool {
	outcome, known := provider.MapState(st.State)
	if !known {
		logger.Warningf("Unknown remote state %q, assuming running", st.State)
	}

	switch outcome {
	case provider.OutcomeCompleted:
		if v := provider.ScanOutput(st.Output); v.Failed() {
			msg := fmt.Sprintf("%s: agent reported %s", model.ErrProviderTask, strings.Join(v.Failures, ", "))
			s.finish(id, model.TaskStatusFailed, func(t *model.Task) {
				applyStatus(t, st)
				t.Error = msg
			})
			return true
		}
		s.finish(id, model.TaskStatusCompleted, func(t *model.Task) {
			applyStatus(t, st)
			t.Progress = 100
			t.CurrentStep = "Application submitted"
		})
		return true

	case provider.OutcomeFailed:
		msg := st.Error
		if msg == "" {
			msg = fmt.Sprintf("remote task ended with state %q", st.State)
		}
		s.fail(id, msg, st.Output)
		return true
	}

	t, ok := s.registry.Update(id, func(t *model.Task) {
		t.Progress = EstimateProgress(t.Progress, polls, st.Steps, s.stepBudget)
		applyStatus(t, st)
	})
	if ok {
		logger.Debugf("Task running: %d%% (%s)", t.Progress, t.CurrentStep)
	}
	return !ok
}

func applyStatus(t *model.Task, st provider.Status) {
	if st.Steps >= 0 {
		t.Steps = max(t.Steps, st.Steps)
	}
	if st.CurrentStep != "" {
		t.CurrentStep = st.CurrentStep
	}
	if st.Output != "" {
		t.Output = st.Output
	}
	if st.Cost > 0 {
		t.Cost = st.Cost
	}
}

func (s *Service) fail(id, msg, output string) (model.Task, bool) {
	return s.finish(id, model.TaskStatusFailed, func(t *model.Task) {
		t.Error = msg
		if output != "" {
			t.Output = output
		}
	})
}

// finish moves a task to a terminal state once and runs its side effects in
// the background.
func (s *Service) finish(id string, status model.TaskStatus, fn func(t *model.Task)) (model.Task, bool) {
	now := s.timeNow()
	t, ok := s.registry.Finish(id, status, func(t *model.Task) {
		t.FinishedAt = &now
		fn(t)
	})
	if !ok {
		return model.Task{}, false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.registry.Evict(id)
		s.afterFinish(t)
	}()

	return t, true
}

// afterFinish folds a terminal task into the application records, stores it
// in the task history and notifies the user.
func (s *Service) afterFinish(t model.Task) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	logger := s.logger.WithValues(log.Kv{"task-id": t.ID, "status": t.Status})

	if t.Status == model.TaskStatusCompleted {
		if err := s.recordApplication(ctx, t); err != nil {
			logger.Errorf("Could not record application: %s", err)
		}
	}

	if err := s.repo.SaveTask(ctx, t); err != nil {
		logger.Errorf("Could not save task, keeping it in memory: %s", err)
		s.keepUnsaved(t)
	}

	if err := s.notifier.Notify(ctx, notificationFor(t)); err != nil {
		logger.Warningf("Could not notify: %s", err)
	}

	logger.Infof("Task finished: %s", t.Status)
}

func (s *Service) recordApplication(ctx context.Context, t model.Task) error {
	now := s.timeNow()

	app, err := s.repo.GetApplicationByJob(ctx, t.Company, t.JobURL)
	switch {
	case err == nil:
		app.Metadata.BrowserUseTaskID = t.RemoteID
		app.Metadata.Cost = t.Cost
		app.UpdatedAt = now
		if err := s.repo.UpdateApplication(ctx, *app); err != nil {
			return fmt.Errorf("could not update application: %w", err)
		}
		return nil
	case !errors.Is(err, model.ErrNotFound):
		return fmt.Errorf("could not get application: %w", err)
	}

	notes := fmt.Sprintf("Applied via peebo on %s. Email not yet verified.", now.Format(time.DateOnly))
	if out := strings.TrimSpace(t.Output); out != "" {
		if len(out) > outputNoteLimit {
			out = out[:outputNoteLimit]
		}
		notes += "\n\n" + out
	}

	err = s.repo.CreateApplication(ctx, model.Application{
		ID:        s.idGen(),
		Company:   t.Company,
		Role:      t.Role,
		JobURL:    t.JobURL,
		Status:    model.ApplicationStatusApplied,
		AppliedAt: now,
		Notes:     notes,
		Metadata: model.ApplicationMetadata{
			BrowserUseTaskID: t.RemoteID,
			Cost:             t.Cost,
		},
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("could not create application: %w", err)
	}
	return nil
}

func notificationFor(t model.Task) notify.Notification {
	n := notify.Notification{
		Data: map[string]any{
			"task_id": t.ID,
			"company": t.Company,
			"role":    t.Role,
			"job_url": t.JobURL,
		},
	}

	switch t.Status {
	case model.TaskStatusCompleted:
		n.Event = notify.EventTaskCompleted
		n.Title = "Application submitted"
		n.Message = fmt.Sprintf("Applied to %s (%s)", t.Company, t.Role)
	case model.TaskStatusCancelled:
		n.Event = notify.EventTaskCancelled
		n.Title = "Application cancelled"
		n.Message = fmt.Sprintf("Cancelled application to %s", t.Company)
	default:
		n.Event = notify.EventTaskFailed
		n.Title = "Application failed"
		n.Message = fmt.Sprintf("Could not apply to %s: %s", t.Company, shortReason(t.Error))
		n.Data["error"] = t.Error
	}

	return n
}

func shortReason(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	const limit = 120
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// Cancel marks a running task as cancelled and asks the provider to stop it
// without waiting for the answer.
func (s *Service) Cancel(ctx context.Context, id string) (model.Task, error) {
	t, ok := s.finish(id, model.TaskStatusCancelled, func(t *model.Task) {
		t.Error = "cancelled by user"
		t.CurrentStep = "Cancelled"
	})
	if !ok {
		existing, err := s.Get(ctx, id)
		if err != nil {
			return model.Task{}, err
		}
		return existing, fmt.Errorf("cannot cancel task %s: already %s: %w", id, existing.Status, model.ErrNotValid)
	}

	logger := s.logger.WithValues(log.Kv{"task-id": t.ID, "remote-task-id": t.RemoteID})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cancelRemote(t.RemoteID, logger)
	}()

	logger.Infof("Task cancelled")
	return t, nil
}

func (s *Service) cancelRemote(remoteID string, logger log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if err := s.provider.CancelTask(ctx, remoteID); err != nil {
		logger.Warningf("Could not cancel remote task: %s", err)
	}
}

// Get returns a task, in flight or from the history.
func (s *Service) Get(ctx context.Context, id string) (model.Task, error) {
	if t, ok := s.registry.Get(id); ok {
		return t, nil
	}

	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		if t, ok := s.getUnsaved(id); ok {
			return t, nil
		}
		return model.Task{}, fmt.Errorf("could not get task %s: %w", id, err)
	}
	return *t, nil
}

const maxUnsavedTasks = 100

func (s *Service) keepUnsaved(t model.Task) {
	s.unsavedMu.Lock()
	defer s.unsavedMu.Unlock()

	if _, ok := s.unsaved[t.ID]; !ok {
		s.unsavedIDs = append(s.unsavedIDs, t.ID)
	}
	s.unsaved[t.ID] = t

	for len(s.unsavedIDs) > maxUnsavedTasks {
		delete(s.unsaved, s.unsavedIDs[0])
		s.unsavedIDs = s.unsavedIDs[1:]
	}
}

func (s *Service) getUnsaved(id string) (model.Task, bool) {
	s.unsavedMu.Lock()
	defer s.unsavedMu.Unlock()

	t, ok := s.unsaved[id]
	return t, ok
}

// Wait blocks until the task is terminal and its side effects ran.
func (s *Service) Wait(ctx context.Context, id string) (model.Task, error) {
	t, found, err := s.registry.Await(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if found {
		return t, nil
	}
	return s.Get(ctx, id)
}

// Current returns the running task, if any.
func (s *Service) Current() (model.Task, bool) {
	return s.registry.Running()
}

// Close stops every poll loop and waits for pending side effects.
// Tasks still running stay running.
func (s *Service) Close() error {
	s.stop()
	s.wg.Wait()
	return nil
}
