package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/peebo/peebo/internal/app/apply"
	"github.com/peebo/peebo/internal/app/list"
	"github.com/peebo/peebo/internal/classify"
	"github.com/peebo/peebo/internal/conventions"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/provider"
	"github.com/peebo/peebo/internal/provider/browseruse"
	providerfake "github.com/peebo/peebo/internal/provider/fake"
	"github.com/peebo/peebo/internal/storage"
	storageio "github.com/peebo/peebo/internal/storage/io"
	"github.com/peebo/peebo/internal/storage/memory"
	"github.com/peebo/peebo/internal/storage/sqlite"
)

// Config configures the SDK client.
//
// All fields except Applicant are optional. An empty profile is accepted by
// [New], but every [Client.Apply] call will then fail with [ErrNotValid].
type Config struct {
	// DBPath is the SQLite database path.
	// Default: ~/.peebo/peebo.db.
	DBPath string

	// InMemory keeps applications and tasks in memory instead of SQLite.
	// DBPath is ignored when set.
	InMemory bool

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// Provider selects the remote browser agent.
	// Default: [ProviderBrowserUse].
	//
	// Set this to [ProviderFake] for testing without a real agent.
	Provider ProviderType

	// ProviderURL is the browser agent API base URL.
	ProviderURL string

	// ProviderAPIKey authenticates against the browser agent API.
	// Only used when Provider is [ProviderBrowserUse].
	ProviderAPIKey string

	// Applicant is the profile used to fill applications.
	Applicant Applicant

	// PollInterval is the time between two status polls of a remote task.
	// Default: 10s.
	PollInterval time.Duration

	// GeminiAPIKey enables Gemini for the emails the keyword heuristics
	// can't classify. Without it only the heuristics are used.
	GeminiAPIKey string

	// GeminiModel is the Gemini model name.
	// Default: gemini-2.5-flash.
	GeminiModel string
}

func (c *Config) defaults() error {
	if !c.InMemory && c.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DBPath = conventions.DBPath(filepath.Join(home, conventions.DefaultDataDir))
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.Provider == "" {
		c.Provider = ProviderBrowserUse
	}

	return nil
}

// Client is the main SDK entry point for applying to jobs and tracking the
// resulting applications.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	repo       storage.Repository
	applySvc   *apply.Service
	listSvc    *list.Service
	classifier classify.Classifier
	logger     log.Logger
	closeFn    func() error
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done. Close waits for the
// background polling of started tasks to stop. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{Applicant: me})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	prov, err := newProvider(cfg)
	if err != nil {
		_ = closeRepo()
		return nil, mapError(fmt.Errorf("could not create provider: %w", err))
	}

	applySvc, err := apply.NewService(apply.ServiceConfig{
		Provider:     prov,
		Repository:   repo,
		Applicant:    toInternalApplicant(cfg.Applicant),
		PollInterval: cfg.PollInterval,
		Logger:       cfg.Logger,
	})
	if err != nil {
		_ = closeRepo()
		return nil, fmt.Errorf("could not create apply service: %w", err)
	}

	classifier, err := newClassifier(ctx, cfg)
	if err != nil {
		_ = closeRepo()
		return nil, fmt.Errorf("could not create classifier: %w", err)
	}

	listSvc, err := list.NewService(list.ServiceConfig{
		Repository: repo,
		Logger:     cfg.Logger,
	})
	if err != nil {
		_ = closeRepo()
		return nil, fmt.Errorf("could not create list service: %w", err)
	}

	return &Client{
		repo:       repo,
		applySvc:   applySvc,
		listSvc:    listSvc,
		classifier: classifier,
		logger:     cfg.Logger,
		closeFn: func() error {
			_ = applySvc.Close()
			return closeRepo()
		},
	}, nil
}

// Close stops polling started tasks and releases the database connection.
// Tasks still running stay running on the remote agent.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

func newRepository(ctx context.Context, cfg Config) (storage.Repository, func() error, error) {
	if cfg.InMemory {
		repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, nil, err
		}
		return repo, func() error { return nil }, nil
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}

func newProvider(cfg Config) (provider.Provider, error) {
	switch cfg.Provider {
	case ProviderFake:
		return providerfake.NewProvider(providerfake.ProviderConfig{Logger: cfg.Logger})
	case ProviderBrowserUse:
		return browseruse.NewClient(browseruse.ClientConfig{
			BaseURL: cfg.ProviderURL,
			APIKey:  cfg.ProviderAPIKey,
			Logger:  cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported provider type: %s: %w", cfg.Provider, model.ErrNotValid)
	}
}

func newClassifier(ctx context.Context, cfg Config) (classify.Classifier, error) {
	if cfg.GeminiAPIKey == "" {
		return classify.Heuristic{}, nil
	}

	gemini, err := classify.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	llm, err := classify.NewLLM(classify.LLMConfig{Model: gemini, Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	return classify.WithFallback(classify.Heuristic{}, llm, cfg.Logger), nil
}

// LoadApplicant reads an applicant profile YAML file, the same format the
// peebo CLI uses.
func LoadApplicant(ctx context.Context, path string) (Applicant, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return Applicant{}, fmt.Errorf("invalid path: %w", err)
	}

	repo := storageio.NewApplicantYAMLRepository(os.DirFS(filepath.Dir(path)))
	a, err := repo.GetApplicant(ctx, filepath.Base(path))
	if err != nil {
		return Applicant{}, mapError(err)
	}

	return fromInternalApplicant(a), nil
}
