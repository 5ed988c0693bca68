// Package emailsync folds classified emails into the tracked applications.
package emailsync

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/peebo/peebo/internal/classify"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/storage"
)

// ServiceConfig is the configuration for the email sync service.
type ServiceConfig struct {
	Classifier classify.Classifier
	Repository storage.Repository
	// AddUnmatched creates an application for confirmations that match none.
	AddUnmatched bool
	TimeNow      func() time.Time
	IDGen        func() string
	Logger       log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Classifier == nil {
		c.Classifier = classify.Heuristic{}
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "emailsync.Service"})

	return nil
}

// Service classifies emails and updates the matching applications.
type Service struct {
	classifier   classify.Classifier
	repo         storage.Repository
	addUnmatched bool
	timeNow      func() time.Time
	idGen        func() string
	logger       log.Logger
}

// NewService creates a new email sync service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		classifier:   cfg.Classifier,
		repo:         cfg.Repository,
		addUnmatched: cfg.AddUnmatched,
		timeNow:      cfg.TimeNow,
		idGen:        cfg.IDGen,
		logger:       cfg.Logger,
	}, nil
}

// Sync processes a batch of emails, skipping the ones already processed.
// An email that fails is not marked as processed so a later sync retries it.
func (s *Service) Sync(ctx context.Context, emails []model.Email) ([]model.EmailSyncResult, error) {
	results := make([]model.EmailSyncResult, 0, len(emails))
	var errs []error

	for _, e := range emails {
		if e.ID == "" {
			errs = append(errs, fmt.Errorf("email %q has no id: %w", e.Subject, model.ErrNotValid))
			continue
		}

		done, err := s.repo.IsEmailProcessed(ctx, e.ID)
		if err != nil {
			return results, fmt.Errorf("could not check email %s: %w", e.ID, err)
		}
		if done {
			results = append(results, model.EmailSyncResult{EmailID: e.ID, Action: model.EmailActionSkipped})
			continue
		}

		res, err := s.Process(ctx, e)
		if err != nil {
			s.logger.Warningf("Could not process email %s: %s", e.ID, err)
			errs = append(errs, fmt.Errorf("email %s: %w", e.ID, err))
			continue
		}
		results = append(results, res)

		if err := s.repo.MarkEmailProcessed(ctx, e.ID, s.timeNow()); err != nil {
			return results, fmt.Errorf("could not mark email %s as processed: %w", e.ID, err)
		}
	}

	return results, errors.Join(errs...)
}

// Process classifies one email and applies it to its application. Processing
// the same email again leaves the application as it is.
func (s *Service) Process(ctx context.Context, e model.Email) (model.EmailSyncResult, error) {
	c, err := s.classifier.Classify(ctx, e)
	if err != nil {
		return model.EmailSyncResult{}, fmt.Errorf("could not classify email: %w", err)
	}

	res := model.EmailSyncResult{EmailID: e.ID, Classification: c, Action: model.EmailActionIgnored}
	if c.Type == model.EmailTypeUnknown {
		return res, nil
	}

	res.Company = classify.CompanyFromSender(e.FromAddress)
	logger := s.logger.WithValues(log.Kv{"email-id": e.ID, "type": c.Type})

	apps, err := s.repo.ListApplications(ctx)
	if err != nil {
		return model.EmailSyncResult{}, fmt.Errorf("could not list applications: %w", err)
	}

	app, ok := MatchApplication(apps, res.Company, e.Subject)
	if !ok {
		if c.Type != model.EmailTypeConfirmation || !s.addUnmatched || res.Company == "" {
			logger.Debugf("No application matches %q", res.Company)
			return res, nil
		}
		added, err := s.addApplication(ctx, e, res.Company)
		if err != nil {
			return model.EmailSyncResult{}, err
		}
		res.ApplicationID = added.ID
		res.Status = string(added.Status)
		res.Action = model.EmailActionAdded
		logger.Infof("Added application %s for %s from confirmation email", added.ID, added.Company)
		return res, nil
	}

	res.ApplicationID = app.ID
	updated, changed := s.applyEmail(app, e, c.Type)
	res.Status = string(updated.Status)
	if !changed {
		res.Action = model.EmailActionUnchanged
		return res, nil
	}

	if err := s.repo.UpdateApplication(ctx, updated); err != nil {
		return model.EmailSyncResult{}, fmt.Errorf("could not update application: %w", err)
	}
	res.Action = model.EmailActionUpdated
	logger.Infof("Application %s (%s) updated: %s", updated.ID, updated.Company, updated.Status)

	return res, nil
}

func noteMarker(t model.EmailType, emailID string) string {
	return fmt.Sprintf("[%s:%s]", t, emailID)
}

// applyEmail returns the application with the email outcome applied and
// whether anything changed.
func (s *Service) applyEmail(app model.Application, e model.Email, t model.EmailType) (model.Application, bool) {
	changed := false

	if !app.EmailVerified {
		app.EmailVerified = true
		changed = true
	}

	var next model.ApplicationStatus
	switch t {
	case model.EmailTypeInterview:
		next = model.ApplicationStatusInterviewing
	case model.EmailTypeRejection:
		next = model.ApplicationStatusRejected
	}
	if next != "" && next != app.Status && app.Status.CanTransitionTo(next) {
		app.Status = next
		changed = true
	}

	marker := noteMarker(t, e.ID)
	if !strings.Contains(app.Notes, marker) {
		line := fmt.Sprintf("%s email received on %s %s", noteLabel(t), s.receivedDate(e), marker)
		app.Notes = strings.TrimSpace(app.Notes + "\n" + line)
		changed = true
	}

	if changed {
		app.UpdatedAt = s.timeNow()
	}
	return app, changed
}

func noteLabel(t model.EmailType) string {
	switch t {
	case model.EmailTypeConfirmation:
		return "Confirmation"
	case model.EmailTypeInterview:
		return "Interview"
	case model.EmailTypeRejection:
		return "Rejection"
	}
	return "Unknown"
}

func (s *Service) receivedDate(e model.Email) string {
	if e.ReceivedAt.IsZero() {
		return s.timeNow().Format(time.DateOnly)
	}
	return e.ReceivedAt.UTC().Format(time.DateOnly)
}

func (s *Service) addApplication(ctx context.Context, e model.Email, company string) (model.Application, error) {
	now := s.timeNow()
	appliedAt := now
	if !e.ReceivedAt.IsZero() {
		appliedAt = e.ReceivedAt.UTC()
	}
	role := classify.RoleFromEmail(e.Subject, e.BodyPreview)
	if role == "" {
		role = "Unknown Role"
	}

	app := model.Application{
		ID:            s.idGen(),
		Company:       company,
		Role:          role,
		Status:        model.ApplicationStatusApplied,
		AppliedAt:     appliedAt,
		EmailVerified: true,
		Notes: fmt.Sprintf("Added from a confirmation email received on %s %s",
			s.receivedDate(e), noteMarker(model.EmailTypeConfirmation, e.ID)),
		UpdatedAt: now,
	}
	if err := s.repo.CreateApplication(ctx, app); err != nil {
		return model.Application{}, fmt.Errorf("could not create application: %w", err)
	}
	return app, nil
}

// minSubjectMatch is the shortest normalized company name looked up in subjects.
const minSubjectMatch = 3

// MatchApplication picks the application an email is about.
//
// Candidates are the applications whose normalized company contains, or is
// contained in, the sender company. Without sender candidates, applications
// whose company appears in the subject are used. An exact normalized match
// wins, then the shortest name containing the sender company, then the
// longest name contained in it, then the most recent application.
func MatchApplication(apps []model.Application, company, subject string) (model.Application, bool) {
	key := classify.NormalizeCompany(company)

	var candidates []model.Application
	if key != "" {
		for _, a := range apps {
			if classify.CompaniesMatch(a.Company, company) {
				candidates = append(candidates, a)
			}
		}
	}
	if len(candidates) == 0 {
		subj := classify.NormalizeCompany(subject)
		for _, a := range apps {
			n := classify.NormalizeCompany(a.Company)
			if len(n) >= minSubjectMatch && strings.Contains(subj, n) {
				candidates = append(candidates, a)
			}
		}
		key = ""
	}
	if len(candidates) == 0 {
		return model.Application{}, false
	}

	best := candidates[0]
	for _, a := range candidates[1:] {
		if betterMatch(a, best, key) {
			best = a
		}
	}
	return best, true
}

func betterMatch(a, b model.Application, key string) bool {
	na, nb := classify.NormalizeCompany(a.Company), classify.NormalizeCompany(b.Company)

	if key != "" {
		ra, rb := matchRank(na, key), matchRank(nb, key)
		if ra != rb {
			return ra < rb
		}
		if ra == rankSuperset && len(na) != len(nb) {
			return len(na) < len(nb)
		}
	}
	if len(na) != len(nb) {
		return len(na) > len(nb)
	}
	return a.AppliedAt.After(b.AppliedAt)
}

const (
	rankExact = iota
	rankSuperset
	rankSubset
)

// matchRank orders how closely a normalized company fits the sender key. A
// name holding the whole key is closer than a fragment of it.
func matchRank(name, key string) int {
	switch {
	case name == key:
		return rankExact
	case strings.Contains(name, key):
		return rankSuperset
	default:
		return rankSubset
	}
}
