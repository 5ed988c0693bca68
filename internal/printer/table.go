package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/peebo/peebo/internal/model"
)

// TablePrinter prints peebo information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

func (t *TablePrinter) tab() *tabwriter.Writer {
	return tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
}

// PrintApplications prints applications in a table format.
func (t *TablePrinter) PrintApplications(apps []model.Application) error {
	if len(apps) == 0 {
		return nil
	}

	tw := t.tab()
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tCOMPANY\tROLE\tSTATUS\tVERIFIED\tAPPLIED")
	for _, a := range apps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID,
			a.Company,
			a.Role,
			a.Status,
			yesNo(a.EmailVerified),
			TimeAgo(a.AppliedAt),
		)
	}

	return nil
}

// PrintTasks prints tasks in a table format.
func (t *TablePrinter) PrintTasks(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := t.tab()
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tCOMPANY\tSTATUS\tPROGRESS\tSTARTED")
	for _, tk := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\n", tk.ID, tk.Company, tk.Status, tk.Progress, TimeAgo(tk.StartedAt))
	}

	return nil
}

// PrintTask prints the detailed task state.
func (t *TablePrinter) PrintTask(task model.Task) error {
	fmt.Fprintf(t.writer, "Task:       %s\n", task.ID)
	fmt.Fprintf(t.writer, "Company:    %s\n", task.Company)
	if task.Role != "" {
		fmt.Fprintf(t.writer, "Role:       %s\n", task.Role)
	}
	fmt.Fprintf(t.writer, "Job URL:    %s\n", task.JobURL)
	fmt.Fprintf(t.writer, "Status:     %s\n", task.Status)
	fmt.Fprintf(t.writer, "Progress:   %d%%\n", task.Progress)
	if task.CurrentStep != "" {
		fmt.Fprintf(t.writer, "Step:       %s\n", oneLine(task.CurrentStep))
	}
	if task.Steps > 0 {
		fmt.Fprintf(t.writer, "Steps:      %d\n", task.Steps)
	}
	if task.Cost > 0 {
		fmt.Fprintf(t.writer, "Cost:       $%.2f\n", task.Cost)
	}
	if task.Error != "" {
		fmt.Fprintf(t.writer, "Error:      %s\n", task.Error)
	}
	fmt.Fprintf(t.writer, "Started:    %s\n", FormatTimestamp(task.StartedAt))
	if task.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished:   %s\n", FormatTimestamp(*task.FinishedAt))
	}

	return nil
}

// PrintClassification prints an email classification.
func (t *TablePrinter) PrintClassification(c model.Classification, company string) error {
	fmt.Fprintf(t.writer, "Type:        %s\n", c.Type)
	fmt.Fprintf(t.writer, "Confidence:  %.2f\n", c.Confidence)
	if company != "" {
		fmt.Fprintf(t.writer, "Company:     %s\n", company)
	}
	return nil
}

// PrintSyncResults prints email sync results in a table format.
func (t *TablePrinter) PrintSyncResults(results []model.EmailSyncResult) error {
	if len(results) == 0 {
		return nil
	}

	tw := t.tab()
	defer tw.Flush()

	fmt.Fprintln(tw, "EMAIL\tTYPE\tCOMPANY\tAPPLICATION\tSTATUS\tACTION")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.EmailID,
			dash(string(r.Classification.Type)),
			dash(r.Company),
			dash(r.ApplicationID),
			dash(r.Status),
			r.Action,
		)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// oneLine collapses agent step text to its first line.
func oneLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + "..."
	}
	return s
}
