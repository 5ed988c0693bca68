package io

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peebo/peebo/internal/model"
)

func TestEmailFileRepository_ListEmails(t *testing.T) {
	received := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	expEmail := model.Email{
		ID:          "m1",
		Subject:     "Thanks for applying",
		BodyPreview: "We received your application.",
		FromAddress: "Acme Recruiting <jobs@acme.com>",
		ReceivedAt:  received,
	}

	tests := map[string]struct {
		data      string
		expEmails []model.Email
		expErr    bool
	}{
		"A JSON list should load.": {
			data:      `[{"id": "m1", "subject": "Thanks for applying", "bodyPreview": "We received your application.", "fromAddress": "Acme Recruiting <jobs@acme.com>", "receivedAt": "2026-03-01T10:30:00+01:00"}]`,
			expEmails: []model.Email{expEmail},
		},
		"A YAML document with an emails key should load.": {
			data: `emails:
  - id: m1
    subject: Thanks for applying
    bodyPreview: We received your application.
    fromAddress: Acme Recruiting <jobs@acme.com>
    receivedAt: 2026-03-01T09:30:00Z
`,
			expEmails: []model.Email{expEmail},
		},
		"An empty file should load no emails.": {
			data:      "",
			expEmails: []model.Email{},
		},
		"An email without id should fail.": {
			data:   `[{"subject": "Hello"}]`,
			expErr: true,
		},
		"Invalid content should fail.": {
			data:   "emails: [",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo := NewEmailFileRepository(fstest.MapFS{
				"emails.json": &fstest.MapFile{Data: []byte(test.data)},
			})

			emails, err := repo.ListEmails(context.Background(), "emails.json")

			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expEmails, emails)
		})
	}
}

func TestEmailFileRepository_ListEmailsMissingFile(t *testing.T) {
	repo := NewEmailFileRepository(fstest.MapFS{})

	_, err := repo.ListEmails(context.Background(), "nope.json")
	assert.Error(t, err)
}
