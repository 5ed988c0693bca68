package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

const maxPromptBody = 4000

const classifyPrompt = `You classify emails a job applicant receives after applying to a job.

Answer with one JSON object and nothing else, not even markdown fences:
{"type": "<confirmation|interview|rejection|unknown>", "confidence": <number between 0 and 1>}

- confirmation: the company acknowledges it received the application.
- interview: the company wants to schedule an interview, a screen or a call.
- rejection: the company will not move forward with the applicant.
- unknown: anything else (newsletters, job alerts, marketing...).

From: %s
Subject: %s

%s
`

// NewGemini returns a Gemini chat model.
func NewGemini(ctx context.Context, apiKey, modelName string) (llms.Model, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	m, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create gemini client: %w", err)
	}
	return m, nil
}

// LLMConfig is the configuration for the LLM classifier.
type LLMConfig struct {
	Model  llms.Model
	Logger log.Logger
}

func (c *LLMConfig) defaults() error {
	if c.Model == nil {
		return fmt.Errorf("model is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "classify.LLM"})

	return nil
}

// LLM classifies emails asking a language model.
type LLM struct {
	model  llms.Model
	logger log.Logger
}

// NewLLM returns a new LLM classifier.
func NewLLM(cfg LLMConfig) (*LLM, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &LLM{model: cfg.Model, logger: cfg.Logger}, nil
}

// Classify satisfies Classifier.
func (l *LLM) Classify(ctx context.Context, e model.Email) (model.Classification, error) {
	body := e.BodyPreview
	if len(body) > maxPromptBody {
		body = body[:maxPromptBody]
	}
	prompt := fmt.Sprintf(classifyPrompt, e.FromAddress, e.Subject, body)

	resp, err := llms.GenerateFromSinglePrompt(ctx, l.model, prompt, llms.WithTemperature(0))
	if err != nil {
		return model.Classification{}, fmt.Errorf("could not generate classification: %w", err)
	}

	c, err := parseAnswer(resp)
	if err != nil {
		return model.Classification{}, err
	}
	l.logger.Debugf("Email %q classified as %s (%.2f)", e.ID, c.Type, c.Confidence)

	return c, nil
}

func parseAnswer(resp string) (model.Classification, error) {
	s := strings.TrimSpace(resp)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}

	var a struct {
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return model.Classification{}, fmt.Errorf("could not decode answer %q: %w", resp, err)
	}

	t := model.EmailType(strings.ToLower(strings.TrimSpace(a.Type)))
	switch t {
	case model.EmailTypeConfirmation, model.EmailTypeInterview, model.EmailTypeRejection, model.EmailTypeUnknown:
	default:
		return model.Classification{}, fmt.Errorf("unknown email type %q: %w", a.Type, model.ErrNotValid)
	}

	return model.Classification{Type: t, Confidence: min(max(a.Confidence, 0), 1)}, nil
}
