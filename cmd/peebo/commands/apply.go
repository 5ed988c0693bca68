package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/peebo/peebo/internal/app/apply"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/notify"
)

type ApplyCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	jobURL     string
	company    string
	role       string
	resumeFile string
	noWait     bool
	format     string
}

// NewApplyCommand returns the apply command.
func NewApplyCommand(rootCmd *RootCommand, app *kingpin.Application) *ApplyCommand {
	c := &ApplyCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("apply", "Apply to a job with the remote agent.")
	c.Cmd.Arg("url", "Job posting URL.").Required().StringVar(&c.jobURL)
	c.Cmd.Flag("company", "Company name, derived from the URL when empty.").StringVar(&c.company)
	c.Cmd.Flag("role", "Role name, read from the job page when empty.").StringVar(&c.role)
	c.Cmd.Flag("resume-file", "Plain text resume that overrides the profile one.").StringVar(&c.resumeFile)
	c.Cmd.Flag("no-wait", "Submit the task to the running server and return.").BoolVar(&c.noWait)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c ApplyCommand) Name() string { return c.Cmd.FullCommand() }

func (c ApplyCommand) Run(ctx context.Context) error {
	req := apply.Request{
		JobURL:  c.jobURL,
		Company: c.company,
		Role:    c.role,
	}
	if c.resumeFile != "" {
		data, err := os.ReadFile(c.resumeFile)
		if err != nil {
			return fmt.Errorf("could not read resume: %w", err)
		}
		req.ResumeText = string(data)
	}

	if c.noWait {
		return c.submit(ctx, req)
	}
	return c.runLocal(ctx, req)
}

// runLocal runs the task in process and waits for its end.
func (c ApplyCommand) runLocal(ctx context.Context, req apply.Request) error {
	logger := c.rootCmd.Logger

	repo, closeRepo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	applicant, err := c.rootCmd.loadApplicant(ctx)
	if err != nil {
		return err
	}

	svc, err := c.rootCmd.newApplyService(repo, applicant, notify.NewLogNotifier(logger))
	if err != nil {
		return fmt.Errorf("could not create apply service: %w", err)
	}
	defer svc.Close()

	task, err := svc.Apply(ctx, req)
	if err != nil {
		return fmt.Errorf("could not apply: %w", err)
	}

	if task.Status == model.TaskStatusRunning {
		id := task.ID
		logger.Infof("Task %s started for %s", id, task.Company)

		stopProgress := c.showProgress(ctx, svc, id)
		task, err = svc.Wait(ctx, id)
		stopProgress()

		// Interrupted, the remote agent must not keep applying on its own.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			task, err = svc.Cancel(cancelCtx, id)
		}
		if err != nil {
			return fmt.Errorf("could not wait for task: %w", err)
		}
	}

	if err := c.rootCmd.newPrinter(c.format).PrintTask(task); err != nil {
		return fmt.Errorf("could not print task: %w", err)
	}
	if task.Status != model.TaskStatusCompleted {
		return fmt.Errorf("task %s: %s", task.Status, task.Error)
	}
	return nil
}

// showProgress writes progress changes to stderr until stopped.
func (c ApplyCommand) showProgress(ctx context.Context, svc *apply.Service, id string) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		t := time.NewTicker(time.Second)
		defer t.Stop()

		last := ""
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			task, err := svc.Get(ctx, id)
			if err != nil {
				continue
			}
			line := fmt.Sprintf("[%3d%%] %s", task.Progress, task.CurrentStep)
			if line != last {
				fmt.Fprintln(c.rootCmd.Stderr, line)
				last = line
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

type submitRequest struct {
	JobURL     string `json:"job_url"`
	Company    string `json:"company,omitempty"`
	Role       string `json:"role,omitempty"`
	ResumeText string `json:"resume_text,omitempty"`
}

type submitResponse struct {
	Success bool             `json:"success"`
	TaskID  string           `json:"task_id"`
	Status  model.TaskStatus `json:"status"`
	Company string           `json:"company"`
	Error   string           `json:"error"`
}

// submit hands the task to the running server, which keeps polling it.
func (c ApplyCommand) submit(ctx context.Context, req apply.Request) error {
	body, err := json.Marshal(submitRequest{
		JobURL:     req.JobURL,
		Company:    req.Company,
		Role:       req.Role,
		ResumeText: req.ResumeText,
	})
	if err != nil {
		return err
	}

	url := "http://" + c.rootCmd.Listen + "/api/apply"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("could not reach the server at %s (is `peebo serve` running?): %w", c.rootCmd.Listen, err)
	}
	defer resp.Body.Close()

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("invalid server response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		return fmt.Errorf("server rejected the task (%d): %s", resp.StatusCode, out.Error)
	}

	msg := fmt.Sprintf("Task %s %s for %s", out.TaskID, out.Status, out.Company)
	return c.rootCmd.newPrinter(c.format).PrintMessage(msg)
}
