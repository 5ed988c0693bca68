package classify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"

	"github.com/peebo/peebo/internal/classify"
	"github.com/peebo/peebo/internal/model"
)

func TestHeuristicClassify(t *testing.T) {
	tests := map[string]struct {
		email   model.Email
		expType model.EmailType
	}{
		"An application acknowledgement should be a confirmation.": {
			email:   model.Email{Subject: "Thank you for applying to Acme", BodyPreview: "We have received your application."},
			expType: model.EmailTypeConfirmation,
		},
		"An interview invitation should be an interview.": {
			email:   model.Email{Subject: "Next steps", BodyPreview: "We would like to invite you to interview. Please share your availability."},
			expType: model.EmailTypeInterview,
		},
		"A rejection that thanks for applying should be a rejection.": {
			email:   model.Email{Subject: "Your application", BodyPreview: "Thank you for applying. Unfortunately we will not be moving forward."},
			expType: model.EmailTypeRejection,
		},
		"Matching should be case insensitive.": {
			email:   model.Email{Subject: "APPLICATION RECEIVED"},
			expType: model.EmailTypeConfirmation,
		},
		"A newsletter should be unknown.": {
			email:   model.Email{Subject: "Top 10 jobs this week", BodyPreview: "Check these openings."},
			expType: model.EmailTypeUnknown,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := classify.Heuristic{}.Classify(context.Background(), test.email)
			require.NoError(t, err)

			assert.Equal(t, test.expType, got.Type)
			if test.expType == model.EmailTypeUnknown {
				assert.Zero(t, got.Confidence)
			} else {
				assert.Greater(t, got.Confidence, 0.5)
				assert.LessOrEqual(t, got.Confidence, 0.95)
			}
		})
	}
}

func TestLLMClassify(t *testing.T) {
	tests := map[string]struct {
		answer string
		exp    model.Classification
		expErr bool
	}{
		"A plain JSON answer should be used.": {
			answer: `{"type": "interview", "confidence": 0.8}`,
			exp:    model.Classification{Type: model.EmailTypeInterview, Confidence: 0.8},
		},
		"A fenced answer should be accepted.": {
			answer: "```json\n{\"type\": \"Rejection\", \"confidence\": 1.7}\n```",
			exp:    model.Classification{Type: model.EmailTypeRejection, Confidence: 1},
		},
		"An answer with an unknown type should fail.": {
			answer: `{"type": "spam", "confidence": 0.9}`,
			expErr: true,
		},
		"A non JSON answer should fail.": {
			answer: "I think this is an interview",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := classify.NewLLM(classify.LLMConfig{Model: fake.NewFakeLLM([]string{test.answer})})
			require.NoError(t, err)

			got, err := c.Classify(context.Background(), model.Email{ID: "e1", Subject: "Hello"})

			if test.expErr {
				assert.Error(t, err)
			} else if assert.NoError(t, err) {
				assert.Equal(t, test.exp, got)
			}
		})
	}
}

func TestWithFallback(t *testing.T) {
	calls := 0
	fallback := classify.ClassifierFunc(func(context.Context, model.Email) (model.Classification, error) {
		calls++
		return model.Classification{Type: model.EmailTypeInterview, Confidence: 0.7}, nil
	})
	failing := classify.ClassifierFunc(func(context.Context, model.Email) (model.Classification, error) {
		return model.Classification{}, errors.New("quota exceeded")
	})

	tests := map[string]struct {
		fallback classify.Classifier
		email    model.Email
		exp      model.EmailType
		expCalls int
	}{
		"A heuristic answer should not consult the fallback.": {
			fallback: fallback,
			email:    model.Email{Subject: "Thanks for applying"},
			exp:      model.EmailTypeConfirmation,
			expCalls: 0,
		},
		"An unknown heuristic answer should consult the fallback.": {
			fallback: fallback,
			email:    model.Email{Subject: "Quick chat?"},
			exp:      model.EmailTypeInterview,
			expCalls: 1,
		},
		"A failing fallback should keep the email unknown.": {
			fallback: failing,
			email:    model.Email{Subject: "Quick chat?"},
			exp:      model.EmailTypeUnknown,
			expCalls: 0,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			calls = 0
			c := classify.WithFallback(classify.Heuristic{}, test.fallback, nil)

			got, err := c.Classify(context.Background(), test.email)
			require.NoError(t, err)

			assert.Equal(t, test.exp, got.Type)
			assert.Equal(t, test.expCalls, calls)
		})
	}
}

func TestCompanyFromSender(t *testing.T) {
	tests := map[string]struct {
		from string
		exp  string
	}{
		"The hiring team suffix should be removed.": {
			from: "Material Security Hiring Team <no-reply@ashbyhq.com>",
			exp:  "Material Security",
		},
		"The recruiting suffix should be removed.": {
			from: "Stripe Recruiting <jobs@stripe.com>",
			exp:  "Stripe",
		},
		"A leading article and team suffix should be removed.": {
			from: `"The Acme Team" <hello@acme.io>`,
			exp:  "Acme",
		},
		"A sender without name should use the domain.": {
			from: "careers@mail.globex.co.uk",
			exp:  "Globex",
		},
		"An ATS sender without name should be unknown.": {
			from: "no-reply@greenhouse.io",
			exp:  "",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, classify.CompanyFromSender(test.from))
		})
	}
}

func TestRoleFromEmail(t *testing.T) {
	tests := map[string]struct {
		subject string
		preview string
		exp     string
	}{
		"A role sentence should be used.": {
			preview: "Thanks for applying for the Senior Backend Engineer role at Acme.",
			exp:     "Senior Backend Engineer",
		},
		"An application sentence should be used.": {
			subject: "Your application for Data Scientist!",
			exp:     "Data Scientist",
		},
		"No role should be empty.": {
			subject: "Hello there",
			exp:     "",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, classify.RoleFromEmail(test.subject, test.preview))
		})
	}
}

func TestCompaniesMatch(t *testing.T) {
	tests := map[string]struct {
		a, b string
		exp  bool
	}{
		"Suffixes and case should not matter.": {
			a: "Acme Inc", b: "ACME", exp: true,
		},
		"Matching should be symmetric.": {
			a: "ACME", b: "Acme Inc", exp: true,
		},
		"Punctuation should be ignored.": {
			a: "Open-AI", b: "openai", exp: true,
		},
		"Different companies should not match.": {
			a: "Globex", b: "Acme", exp: false,
		},
		"Empty names should never match.": {
			a: "", b: "Acme", exp: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, classify.CompaniesMatch(test.a, test.b))
		})
	}
}
