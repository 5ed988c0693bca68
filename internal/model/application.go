package model

import (
	"fmt"
	"time"
)

// ApplicationStatus is the tracked state of a job application.
type ApplicationStatus string

const (
	ApplicationStatusApplied      ApplicationStatus = "applied"
	ApplicationStatusInterviewing ApplicationStatus = "interviewing"
	ApplicationStatusRejected     ApplicationStatus = "rejected"
	ApplicationStatusOffer        ApplicationStatus = "offer"
)

// rank orders statuses so updates never move an application backwards.
// Rejected and offer are both final and share the highest rank.
func (s ApplicationStatus) rank() int {
	switch s {
	case ApplicationStatusApplied:
		return 1
	case ApplicationStatusInterviewing:
		return 2
	case ApplicationStatusRejected, ApplicationStatusOffer:
		return 3
	}
	return 0
}

// CanTransitionTo returns true if moving from s to next is not a regression.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	if s == next {
		return true
	}
	return next.rank() > s.rank()
}

// ApplicationMetadata holds provider related data of an application.
type ApplicationMetadata struct {
	BrowserUseTaskID string  `json:"browser_use_task_id,omitempty"`
	Cost             float64 `json:"cost,omitempty"`
}

// Application is one persisted job application record.
type Application struct {
	ID            string              `json:"id"`
	Company       string              `json:"company"`
	Role          string              `json:"role"`
	JobURL        string              `json:"job_url"`
	Status        ApplicationStatus   `json:"status"`
	AppliedAt     time.Time           `json:"applied_at"`
	EmailVerified bool                `json:"email_verified"`
	Notes         string              `json:"notes"`
	Metadata      ApplicationMetadata `json:"metadata"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Validate validates the application.
func (a Application) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("id is required: %w", ErrNotValid)
	}
	if a.Company == "" {
		return fmt.Errorf("company is required: %w", ErrNotValid)
	}
	if a.Status.rank() == 0 {
		return fmt.Errorf("unknown status %q: %w", a.Status, ErrNotValid)
	}
	return nil
}
