package model

import "time"

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
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	BodyPreview string    `json:"bodyPreview"`
	FromAddress string    `json:"fromAddress"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// Classification is the result of classifying an email.
type Classification struct {
	Type       EmailType `json:"type"`
	Confidence float64   `json:"confidence"`
}

// EmailAction is what processing an email did to the tracked applications.
type EmailAction string

const (
	EmailActionSkipped   EmailAction = "skipped"
	EmailActionIgnored   EmailAction = "ignored"
	EmailActionUnchanged EmailAction = "unchanged"
	EmailActionUpdated   EmailAction = "updated"
	EmailActionAdded     EmailAction = "added"
)

// EmailSyncResult is the outcome of processing one email.
type EmailSyncResult struct {
	EmailID        string         `json:"email_id"`
	Classification Classification `json:"classification"`
	Company        string         `json:"company,omitempty"`
	ApplicationID  string         `json:"application_id,omitempty"`
	Status         string         `json:"status,omitempty"`
	Action         EmailAction    `json:"action"`
}
