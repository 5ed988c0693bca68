package lib

import (
	"context"

	"github.com/peebo/peebo/internal/app/emailsync"
	"github.com/peebo/peebo/internal/classify"
)

// ClassifyEmail classifies an email as a confirmation, interview, rejection
// or unknown. It doesn't change any tracked application.
func (c *Client) ClassifyEmail(ctx context.Context, e Email) (*Classification, error) {
	cl, err := c.classifier.Classify(ctx, toInternalEmail(e))
	if err != nil {
		return nil, mapError(err)
	}

	return &Classification{
		Type:       EmailType(cl.Type),
		Confidence: cl.Confidence,
		Company:    classify.CompanyFromSender(e.FromAddress),
	}, nil
}

// SyncEmailsOpts configures an email sync. Nil uses the defaults.
type SyncEmailsOpts struct {
	// AddUnmatched records an application for confirmation emails that don't
	// match any tracked one.
	AddUnmatched bool
}

// SyncEmails classifies emails and updates the matching applications.
//
// Emails already synced are skipped. An email that fails doesn't stop the
// sync: the results of the others are returned along with the joined errors.
func (c *Client) SyncEmails(ctx context.Context, emails []Email, opts *SyncEmailsOpts) ([]EmailSyncResult, error) {
	cfg := emailsync.ServiceConfig{
		Classifier: c.classifier,
		Repository: c.repo,
		Logger:     c.logger,
	}
	if opts != nil {
		cfg.AddUnmatched = opts.AddUnmatched
	}

	svc, err := emailsync.NewService(cfg)
	if err != nil {
		return nil, err
	}

	results, err := svc.Sync(ctx, toInternalEmailList(emails))
	return fromInternalSyncResultList(results), mapError(err)
}
