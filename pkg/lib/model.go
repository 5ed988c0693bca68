package lib

import (
	"errors"
	"time"

	"github.com/peebo/peebo/internal/model"
)

// ProviderType identifies the remote browser agent implementation.
type ProviderType string

const (
	// ProviderBrowserUse runs applications on the browser-use cloud API.
	// Requires an API key.
	ProviderBrowserUse ProviderType = "browseruse"

	// ProviderFake replays a short successful run without network access.
	// Use this for unit testing without a real agent.
	ProviderFake ProviderType = "fake"
)

// TaskStatus represents the state of an apply task.
//
// A task starts running and ends in exactly one of completed, failed or
// cancelled. Terminal tasks never change again.
type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal returns true when the task can't change anymore.
func (s TaskStatus) IsTerminal() bool {
	return model.TaskStatus(s).IsTerminal()
}

// Task is a snapshot of one apply attempt.
//
// Use [Client.GetTask] to get the latest state or [Client.WaitTask] to block
// until it ends.
type Task struct {
	// ID is the local task identifier (ULID).
	ID string
	// RemoteID is the task identifier on the browser agent.
	RemoteID string
	JobURL   string
	Company  string
	Role     string
	Status   TaskStatus
	// Progress is an estimate in the 0-100 range, 100 only once completed.
	Progress int
	// CurrentStep is a human readable description of what the agent is doing.
	CurrentStep string
	// Error is set on failed and cancelled tasks.
	Error string
	Steps int
	// Cost is the agent cost in USD, when reported.
	Cost   float64
	Output string
	// StartedAt is when the task was created.
	StartedAt time.Time
	// FinishedAt is when the task ended. Nil while running.
	FinishedAt *time.Time
}

// ApplicationStatus is the tracked state of a job application.
//
// Statuses only move forward:
//
//	applied -> interviewing -> rejected | offer
type ApplicationStatus string

const (
	ApplicationStatusApplied      ApplicationStatus = "applied"
	ApplicationStatusInterviewing ApplicationStatus = "interviewing"
	ApplicationStatusRejected     ApplicationStatus = "rejected"
	ApplicationStatusOffer        ApplicationStatus = "offer"
)

// Application is a tracked job application.
type Application struct {
	ID      string
	Company string
	Role    string
	JobURL  string
	Status  ApplicationStatus
	// EmailVerified is true once an email from the company was matched.
	EmailVerified bool
	Notes         string
	AppliedAt     time.Time
	UpdatedAt     time.Time
}

// Applicant is the profile used to fill job applications.
//
// Name, Email, Phone, Location and LinkedIn are required to apply.
type Applicant struct {
	Name     string
	Email    string
	Phone    string
	Location string
	LinkedIn string
	// ResumeText is pasted into application forms.
	ResumeText string
	// ResumePath is uploaded where forms ask for a resume file.
	ResumePath          string
	BackgroundSummary   string
	KeyAchievements     []string
	AuthorizedToWorkUS  bool
	RequiresSponsorship bool
}

// EmailType is the outcome class of an inbound email.
type EmailType string

const (
	EmailTypeConfirmation EmailType = "confirmation"
	EmailTypeInterview    EmailType = "interview"
	EmailTypeRejection    EmailType = "rejection"
	EmailTypeUnknown      EmailType = "unknown"
)

// Email is an inbound message relevant to application tracking.
type Email struct {
	ID          string
	Subject     string
	BodyPreview string
	FromAddress string
	ReceivedAt  time.Time
}

// Classification is the result of classifying an email.
type Classification struct {
	Type EmailType
	// Confidence is in the 0-1 range.
	Confidence float64
	// Company is derived from the sender domain, empty when unknown.
	Company string
}

// EmailAction is what syncing an email did to the tracked applications.
type EmailAction string

const (
	EmailActionSkipped   EmailAction = "skipped"
	EmailActionIgnored   EmailAction = "ignored"
	EmailActionUnchanged EmailAction = "unchanged"
	EmailActionUpdated   EmailAction = "updated"
	EmailActionAdded     EmailAction = "added"
)

// EmailSyncResult is the outcome of syncing one email.
type EmailSyncResult struct {
	EmailID        string
	Classification EmailType
	Confidence     float64
	Company        string
	ApplicationID  string
	Status         ApplicationStatus
	Action         EmailAction
}

// Sentinel errors returned by the SDK. Use [errors.Is] to check for them.
var (
	// ErrNotFound is returned when a task or application does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned on invalid input, like a bad job URL or an
	// incomplete applicant profile.
	ErrNotValid = errors.New("not valid")
	// ErrAlreadyRunning is returned by [Client.Apply] while another task runs.
	ErrAlreadyRunning = errors.New("task already running")
)

func fromInternalTask(t model.Task) Task {
	return Task{
		ID:          t.ID,
		RemoteID:    t.RemoteID,
		JobURL:      t.JobURL,
		Company:     t.Company,
		Role:        t.Role,
		Status:      TaskStatus(t.Status),
		Progress:    t.Progress,
		CurrentStep: t.CurrentStep,
		Error:       t.Error,
		Steps:       t.Steps,
		Cost:        t.Cost,
		Output:      t.Output,
		StartedAt:   t.StartedAt,
		FinishedAt:  t.FinishedAt,
	}
}

func fromInternalTaskList(ts []model.Task) []Task {
	result := make([]Task, len(ts))
	for i, t := range ts {
		result[i] = fromInternalTask(t)
	}
	return result
}

func fromInternalApplication(a model.Application) Application {
	return Application{
		ID:            a.ID,
		Company:       a.Company,
		Role:          a.Role,
		JobURL:        a.JobURL,
		Status:        ApplicationStatus(a.Status),
		EmailVerified: a.EmailVerified,
		Notes:         a.Notes,
		AppliedAt:     a.AppliedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func fromInternalApplicationList(as []model.Application) []Application {
	result := make([]Application, len(as))
	for i, a := range as {
		result[i] = fromInternalApplication(a)
	}
	return result
}

func toInternalApplicant(a Applicant) model.Applicant {
	return model.Applicant{
		Name:                a.Name,
		Email:               a.Email,
		Phone:               a.Phone,
		Location:            a.Location,
		LinkedIn:            a.LinkedIn,
		ResumeText:          a.ResumeText,
		ResumePath:          a.ResumePath,
		BackgroundSummary:   a.BackgroundSummary,
		KeyAchievements:     a.KeyAchievements,
		AuthorizedToWorkUS:  a.AuthorizedToWorkUS,
		RequiresSponsorship: a.RequiresSponsorship,
	}
}

func fromInternalApplicant(a model.Applicant) Applicant {
	return Applicant{
		Name:                a.Name,
		Email:               a.Email,
		Phone:               a.Phone,
		Location:            a.Location,
		LinkedIn:            a.LinkedIn,
		ResumeText:          a.ResumeText,
		ResumePath:          a.ResumePath,
		BackgroundSummary:   a.BackgroundSummary,
		KeyAchievements:     a.KeyAchievements,
		AuthorizedToWorkUS:  a.AuthorizedToWorkUS,
		RequiresSponsorship: a.RequiresSponsorship,
	}
}

func toInternalEmail(e Email) model.Email {
	return model.Email{
		ID:          e.ID,
		Subject:     e.Subject,
		BodyPreview: e.BodyPreview,
		FromAddress: e.FromAddress,
		ReceivedAt:  e.ReceivedAt,
	}
}

func toInternalEmailList(es []Email) []model.Email {
	result := make([]model.Email, len(es))
	for i, e := range es {
		result[i] = toInternalEmail(e)
	}
	return result
}

func fromInternalSyncResultList(rs []model.EmailSyncResult) []EmailSyncResult {
	result := make([]EmailSyncResult, len(rs))
	for i, r := range rs {
		result[i] = EmailSyncResult{
			EmailID:        r.EmailID,
			Classification: EmailType(r.Classification.Type),
			Confidence:     r.Classification.Confidence,
			Company:        r.Company,
			ApplicationID:  r.ApplicationID,
			Status:         ApplicationStatus(r.Status),
			Action:         EmailAction(r.Action),
		}
	}
	return result
}

// mapError makes internal sentinel errors match the public ones while keeping
// the original message.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return &mappedError{original: err, sentinel: ErrNotFound}
	case errors.Is(err, model.ErrNotValid):
		return &mappedError{original: err, sentinel: ErrNotValid}
	case errors.Is(err, model.ErrAlreadyRunning):
		return &mappedError{original: err, sentinel: ErrAlreadyRunning}
	default:
		return err
	}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
