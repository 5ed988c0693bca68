package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/peebo/peebo/internal/app/apply"
	"github.com/peebo/peebo/internal/classify"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/notify"
	"github.com/peebo/peebo/internal/printer"
	"github.com/peebo/peebo/internal/provider"
	"github.com/peebo/peebo/internal/provider/browseruse"
	providerfake "github.com/peebo/peebo/internal/provider/fake"
	"github.com/peebo/peebo/internal/storage"
	"github.com/peebo/peebo/internal/storage/gormdb"
	storageio "github.com/peebo/peebo/internal/storage/io"
	"github.com/peebo/peebo/internal/storage/memory"
	"github.com/peebo/peebo/internal/storage/sqlite"
)

// newRepository returns the configured repository and its closer.
func (c RootCommand) newRepository(ctx context.Context) (storage.Repository, func() error, error) {
	noClose := func() error { return nil }

	switch c.Storage {
	case StorageMemory:
		repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: c.Logger})
		if err != nil {
			return nil, nil, fmt.Errorf("could not create memory repository: %w", err)
		}
		return repo, noClose, nil

	case StoragePostgres:
		if c.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("postgres storage needs --postgres-dsn")
		}
		repo, err := gormdb.NewRepository(ctx, gormdb.RepositoryConfig{
			Dialector: gormdb.Postgres(c.PostgresDSN),
			Logger:    c.Logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("could not create postgres repository: %w", err)
		}
		return repo, repo.Close, nil

	default:
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.dbPath(),
			Logger: c.Logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("could not create sqlite repository: %w", err)
		}
		return repo, repo.Close, nil
	}
}

// loadApplicant loads the applicant profile.
func (c RootCommand) loadApplicant(ctx context.Context) (model.Applicant, error) {
	path, err := filepath.Abs(c.applicantPath())
	if err != nil {
		return model.Applicant{}, fmt.Errorf("invalid applicant file path: %w", err)
	}

	repo := storageio.NewApplicantYAMLRepository(os.DirFS(filepath.Dir(path)))
	a, err := repo.GetApplicant(ctx, filepath.Base(path))
	if err != nil {
		return model.Applicant{}, fmt.Errorf("could not load applicant profile %s: %w", path, err)
	}
	return a, nil
}

// loadApplicantOrEmpty is loadApplicant for commands that can run without a
// profile, a missing profile only makes applications fail validation.
func (c RootCommand) loadApplicantOrEmpty(ctx context.Context) model.Applicant {
	a, err := c.loadApplicant(ctx)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Logger.Warningf("No applicant profile at %s, applications will be rejected", c.applicantPath())
		} else {
			c.Logger.Warningf("Ignoring applicant profile: %s", err)
		}
		return model.Applicant{}
	}
	return a
}

func (c RootCommand) newProvider() (provider.Provider, error) {
	switch c.Provider {
	case ProviderFake:
		return providerfake.NewProvider(providerfake.ProviderConfig{Logger: c.Logger})
	default:
		return browseruse.NewClient(browseruse.ClientConfig{
			BaseURL: c.ProviderURL,
			APIKey:  c.ProviderAPIKey,
			Logger:  c.Logger,
		})
	}
}

// newApplyService wires the apply service with the configured provider.
func (c RootCommand) newApplyService(repo storage.Repository, applicant model.Applicant, notifier notify.Notifier) (*apply.Service, error) {
	prov, err := c.newProvider()
	if err != nil {
		return nil, fmt.Errorf("could not create %s provider: %w", c.Provider, err)
	}

	return apply.NewService(apply.ServiceConfig{
		Provider:     prov,
		Repository:   repo,
		Notifier:     notifier,
		Applicant:    applicant,
		RoleFetcher:  apply.NewHTTPRoleFetcher(nil),
		PollInterval: c.PollInterval,
		MaxPolls:     c.MaxPolls,
		MaxDuration:  c.MaxDuration,
		StepBudget:   c.StepBudget,
		Logger:       c.Logger,
	})
}

// newClassifier returns the heuristic classifier, backed by Gemini for the
// emails it can't classify when an API key is configured.
func (c RootCommand) newClassifier(ctx context.Context) (classify.Classifier, error) {
	if c.GeminiAPIKey == "" {
		return classify.Heuristic{}, nil
	}

	gemini, err := classify.NewGemini(ctx, c.GeminiAPIKey, c.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("could not create gemini model: %w", err)
	}
	llm, err := classify.NewLLM(classify.LLMConfig{Model: gemini, Logger: c.Logger})
	if err != nil {
		return nil, err
	}

	return classify.WithFallback(classify.Heuristic{}, llm, c.Logger), nil
}

func (c RootCommand) newPrinter(format string) printer.Printer {
	if format == formatJSON {
		return printer.NewJSONPrinter(c.Stdout)
	}
	return printer.NewTablePrinter(c.Stdout)
}
