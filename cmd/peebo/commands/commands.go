package commands

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/peebo/peebo/internal/classify"
	"github.com/peebo/peebo/internal/conventions"
	"github.com/peebo/peebo/internal/log"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	ProviderBrowserUse = "browseruse"
	ProviderFake       = "fake"

	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DataDir    string
	DBPath     string
	Storage    string
	// PostgresDSN is used with the postgres storage (Supabase or any Postgres).
	PostgresDSN   string
	ApplicantFile string
	Listen        string

	// Apply flags shared by serve and apply.
	Provider       string
	ProviderURL    string
	ProviderAPIKey string
	PollInterval   time.Duration
	MaxPolls       int
	MaxDuration    time.Duration
	StepBudget     int

	// GeminiAPIKey enables the LLM email classification fallback.
	GeminiAPIKey string
	GeminiModel  string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("data-dir", "Directory for the database, applicant profile and screenshots.").Default(defaultDataDir).StringVar(&c.DataDir)
	app.Flag("db-path", "Path to the SQLite database file (defaults to the data dir one).").StringVar(&c.DBPath)
	app.Flag("storage", "Storage backend for applications and tasks.").Default(StorageSQLite).EnumVar(&c.Storage, StorageSQLite, StoragePostgres, StorageMemory)
	app.Flag("postgres-dsn", "Postgres DSN for the postgres storage.").Envar("DATABASE_URL").StringVar(&c.PostgresDSN)
	app.Flag("applicant-file", "Applicant profile YAML file (defaults to the data dir one).").StringVar(&c.ApplicantFile)
	app.Flag("listen", "Address of the local server.").Default(conventions.DefaultListenAddr).StringVar(&c.Listen)

	app.Flag("provider", "Remote agent provider that runs the applications.").Default(ProviderBrowserUse).EnumVar(&c.Provider, ProviderBrowserUse, ProviderFake)
	app.Flag("provider-url", "Provider API base URL.").StringVar(&c.ProviderURL)
	app.Flag("provider-api-key", "Provider API key.").Envar("BROWSER_USE_API_KEY").StringVar(&c.ProviderAPIKey)
	app.Flag("poll-interval", "Time between task status polls.").Default("10s").DurationVar(&c.PollInterval)
	app.Flag("max-polls", "Maximum status polls before a task is failed.").Default("600").IntVar(&c.MaxPolls)
	app.Flag("max-duration", "Maximum task duration before it is failed.").Default("30m").DurationVar(&c.MaxDuration)
	app.Flag("step-budget", "Agent steps assumed for a full application, used for progress.").Default("25").IntVar(&c.StepBudget)

	app.Flag("gemini-api-key", "Gemini API key, enables the LLM email classification fallback.").Envar("GEMINI_API_KEY").StringVar(&c.GeminiAPIKey)
	app.Flag("gemini-model", "Gemini model used for email classification.").Default(classify.DefaultGeminiModel).StringVar(&c.GeminiModel)

	return c
}

// dbPath returns the configured database path or the data dir one.
func (c RootCommand) dbPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return conventions.DBPath(c.DataDir)
}

// applicantPath returns the configured applicant file or the data dir one.
func (c RootCommand) applicantPath() string {
	if c.ApplicantFile != "" {
		return c.ApplicantFile
	}
	return conventions.ApplicantPath(c.DataDir)
}
