package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/peebo/peebo/internal/app/list"
	"github.com/peebo/peebo/internal/model"
)

type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	statusFilter string
	company      string
	tasks        bool
	format       string
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("list", "List tracked applications.")
	c.Cmd.Flag("status", "Filter by status (applied, interviewing, rejected, offer; or running, completed, failed, cancelled with --tasks).").StringVar(&c.statusFilter)
	c.Cmd.Flag("company", "Filter by company.").StringVar(&c.company)
	c.Cmd.Flag("tasks", "List the apply task history instead.").BoolVar(&c.tasks)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, closeRepo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	svc, err := list.NewService(list.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	p := c.rootCmd.newPrinter(c.format)
	status := strings.ToLower(c.statusFilter)

	if c.tasks {
		req := list.TasksRequest{}
		if status != "" {
			st := model.TaskStatus(status)
			switch st {
			case model.TaskStatusRunning, model.TaskStatusCompleted, model.TaskStatusFailed, model.TaskStatusCancelled:
				req.StatusFilter = &st
			default:
				return fmt.Errorf("invalid status filter: %s (must be: running, completed, failed, cancelled)", c.statusFilter)
			}
		}

		tasks, err := svc.RunTasks(ctx, req)
		if err != nil {
			return fmt.Errorf("could not list tasks: %w", err)
		}
		return p.PrintTasks(tasks)
	}

	req := list.Request{Company: c.company}
	if status != "" {
		st := model.ApplicationStatus(status)
		switch st {
		case model.ApplicationStatusApplied, model.ApplicationStatusInterviewing, model.ApplicationStatusRejected, model.ApplicationStatusOffer:
			req.StatusFilter = &st
		default:
			return fmt.Errorf("invalid status filter: %s (must be: applied, interviewing, rejected, offer)", c.statusFilter)
		}
	}

	apps, err := svc.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("could not list applications: %w", err)
	}

	if err := p.PrintApplications(apps); err != nil {
		return fmt.Errorf("could not print list: %w", err)
	}

	return nil
}
