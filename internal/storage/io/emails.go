package io

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/peebo/peebo/internal/model"
)

// EmailFileRepository loads inbound emails from YAML or JSON files.
//
// A file is either a list of emails or a mapping with an `emails` list.
type EmailFileRepository struct {
	fs fs.FS
}

// NewEmailFileRepository creates a new email file repository.
func NewEmailFileRepository(filesystem fs.FS) *EmailFileRepository {
	return &EmailFileRepository{fs: filesystem}
}

// EmailConfig represents one email in the file. The keys match the JSON
// output of the mailbox so exported inboxes load as they are.
type EmailConfig struct {
	ID          string `yaml:"id"`
	Subject     string `yaml:"subject"`
	BodyPreview string `yaml:"bodyPreview"`
	FromAddress string `yaml:"fromAddress"`
	ReceivedAt  string `yaml:"receivedAt"`
}

type emailsDocument struct {
	Emails []EmailConfig `yaml:"emails"`
}

// ListEmails loads the emails of a file in the order they appear.
func (r *EmailFileRepository) ListEmails(ctx context.Context, path string) ([]model.Email, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading emails file: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var cfgs []EmailConfig
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] != '[' && trimmed[0] != '-' {
		var doc emailsDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing emails: %w", err)
		}
		cfgs = doc.Emails
	} else if err := yaml.Unmarshal(data, &cfgs); err != nil {
		return nil, fmt.Errorf("parsing emails: %w", err)
	}

	emails := make([]model.Email, 0, len(cfgs))
	for i, c := range cfgs {
		if c.ID == "" {
			return nil, fmt.Errorf("email %d has no id: %w", i, model.ErrNotValid)
		}
		var received time.Time
		if c.ReceivedAt != "" {
			received, err = time.Parse(time.RFC3339, c.ReceivedAt)
			if err != nil {
				return nil, fmt.Errorf("email %s has an invalid receivedAt: %w", c.ID, model.ErrNotValid)
			}
		}
		emails = append(emails, model.Email{
			ID:          c.ID,
			Subject:     c.Subject,
			BodyPreview: c.BodyPreview,
			FromAddress: c.FromAddress,
			ReceivedAt:  received.UTC(),
		})
	}

	return emails, nil
}
