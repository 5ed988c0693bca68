package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/peebo/peebo/internal/app/emailsync"
	"github.com/peebo/peebo/internal/classify"
	"github.com/peebo/peebo/internal/model"
	storageio "github.com/peebo/peebo/internal/storage/io"
)

// NewEmailCommand returns the parent command of the email subcommands.
func NewEmailCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("email", "Classify application emails and track their outcome.")
}

type EmailClassifyCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	subject string
	body    string
	from    string
	format  string
}

// NewEmailClassifyCommand returns the email classify command.
func NewEmailClassifyCommand(rootCmd *RootCommand, emailCmd *kingpin.CmdClause) *EmailClassifyCommand {
	c := &EmailClassifyCommand{rootCmd: rootCmd}

	c.Cmd = emailCmd.Command("classify", "Classify one email.")
	c.Cmd.Flag("subject", "Email subject.").Required().StringVar(&c.subject)
	c.Cmd.Flag("body", "Email body or preview.").StringVar(&c.body)
	c.Cmd.Flag("from", "Sender address.").StringVar(&c.from)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c EmailClassifyCommand) Name() string { return c.Cmd.FullCommand() }

func (c EmailClassifyCommand) Run(ctx context.Context) error {
	classifier, err := c.rootCmd.newClassifier(ctx)
	if err != nil {
		return err
	}

	res, err := classifier.Classify(ctx, model.Email{
		Subject:     c.subject,
		BodyPreview: c.body,
		FromAddress: c.from,
	})
	if err != nil {
		return fmt.Errorf("could not classify email: %w", err)
	}

	return c.rootCmd.newPrinter(c.format).PrintClassification(res, classify.CompanyFromSender(c.from))
}

type EmailSyncCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	file         string
	addUnmatched bool
	format       string
}

// NewEmailSyncCommand returns the email sync command.
func NewEmailSyncCommand(rootCmd *RootCommand, emailCmd *kingpin.CmdClause) *EmailSyncCommand {
	c := &EmailSyncCommand{rootCmd: rootCmd}

	c.Cmd = emailCmd.Command("sync", "Apply a batch of emails to the tracked applications.")
	c.Cmd.Flag("file", "JSON or YAML file with the emails.").Required().StringVar(&c.file)
	c.Cmd.Flag("add-unmatched", "Track confirmations that match no application as new applications.").BoolVar(&c.addUnmatched)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c EmailSyncCommand) Name() string { return c.Cmd.FullCommand() }

func (c EmailSyncCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	path, err := filepath.Abs(c.file)
	if err != nil {
		return fmt.Errorf("invalid emails file path: %w", err)
	}
	emails, err := storageio.NewEmailFileRepository(os.DirFS(filepath.Dir(path))).ListEmails(ctx, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("could not load emails: %w", err)
	}

	repo, closeRepo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	classifier, err := c.rootCmd.newClassifier(ctx)
	if err != nil {
		return err
	}

	svc, err := emailsync.NewService(emailsync.ServiceConfig{
		Classifier:   classifier,
		Repository:   repo,
		AddUnmatched: c.addUnmatched,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	results, syncErr := svc.Sync(ctx, emails)
	if err := c.rootCmd.newPrinter(c.format).PrintSyncResults(results); err != nil {
		return fmt.Errorf("could not print results: %w", err)
	}
	if syncErr != nil {
		return fmt.Errorf("some emails could not be synced: %w", syncErr)
	}

	return nil
}
