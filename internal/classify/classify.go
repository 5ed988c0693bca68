// Package classify sorts inbound job application emails into outcome classes.
package classify

import (
	"context"
	"strings"

	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

// Classifier classifies emails.
type Classifier interface {
	Classify(ctx context.Context, e model.Email) (model.Classification, error)
}

// ClassifierFunc is a helper to use functions as Classifiers.
type ClassifierFunc func(ctx context.Context, e model.Email) (model.Classification, error)

// Classify satisfies Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, e model.Email) (model.Classification, error) {
	return f(ctx, e)
}

// Phrase tables, matched lowercase against subject and body preview.
var (
	rejectionPhrases = []string{
		"unfortunately",
		"not moving forward",
		"will not be moving forward",
		"decided to move forward with other candidates",
		"move forward with other candidates",
		"pursue other candidates",
		"decided not to proceed",
		"not to proceed with your application",
		"regret to inform",
		"position has been filled",
		"not been selected",
		"not selected",
		"no longer considering",
	}
	interviewPhrases = []string{
		"schedule an interview",
		"schedule a call",
		"interview invitation",
		"invite you to interview",
		"would like to invite you",
		"move forward with your application",
		"next steps in the process",
		"phone screen",
		"your availability",
		"set up a time",
		"technical interview",
		"onsite interview",
		"speak with you",
	}
	confirmationPhrases = []string{
		"thank you for applying",
		"thanks for applying",
		"received your application",
		"application received",
		"thank you for your application",
		"thanks for your application",
		"application has been received",
		"appreciate your interest",
		"application was submitted",
		"successfully submitted",
	}
)

// Heuristic classifies emails with phrase tables. The first class with a
// match wins, in order rejection, interview and confirmation, since
// rejections and invitations often thank the candidate for applying too.
type Heuristic struct{}

// Classify satisfies Classifier.
func (Heuristic) Classify(_ context.Context, e model.Email) (model.Classification, error) {
	text := strings.ToLower(e.Subject + "\n" + e.BodyPreview)

	for _, c := range []struct {
		typ     model.EmailType
		phrases []string
	}{
		{model.EmailTypeRejection, rejectionPhrases},
		{model.EmailTypeInterview, interviewPhrases},
		{model.EmailTypeConfirmation, confirmationPhrases},
	} {
		if hits := countHits(text, c.phrases); hits > 0 {
			return model.Classification{Type: c.typ, Confidence: confidence(hits)}, nil
		}
	}

	return model.Classification{Type: model.EmailTypeUnknown}, nil
}

func countHits(text string, phrases []string) int {
	hits := 0
	for _, p := range phrases {
		if strings.Contains(text, p) {
			hits++
		}
	}
	return hits
}

func confidence(hits int) float64 {
	return min(0.6+0.1*float64(hits-1), 0.95)
}

// WithFallback consults fallback only when primary says unknown. Fallback
// errors are logged and the email stays unknown.
func WithFallback(primary, fallback Classifier, logger log.Logger) Classifier {
	if fallback == nil {
		return primary
	}
	if logger == nil {
		logger = log.Noop
	}
	logger = logger.WithValues(log.Kv{"svc": "classify.Fallback"})

	return ClassifierFunc(func(ctx context.Context, e model.Email) (model.Classification, error) {
		c, err := primary.Classify(ctx, e)
		if err != nil || c.Type != model.EmailTypeUnknown {
			return c, err
		}

		fc, err := fallback.Classify(ctx, e)
		if err != nil {
			logger.Warningf("Fallback classification failed for %q: %s", e.ID, err)
			return c, nil
		}
		return fc, nil
	})
}
