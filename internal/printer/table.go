package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/slok/revdeprun/internal/model"
)

// TablePrinter prints run information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintRunList prints runs in a table format.
func (t *TablePrinter) PrintRunList(runs []model.RunOverview) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tREPOSITORY\tSTATUS\tPHASES\tTODO\tDURATION\tCREATED")
	for _, o := range runs {
		r := o.Run
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Repository,
			r.Status,
			o.Progress,
			todoCount(r),
			FormatDuration(r.CreatedAt, r.FinishedAt),
			TimeAgo(r.CreatedAt),
		)
	}

	return nil
}

// PrintRun prints the detail of a run and its phases.
func (t *TablePrinter) PrintRun(o model.RunOverview, phases []model.PhaseRecord) error {
	run := o.Run
	fmt.Fprintf(t.writer, "ID:          %s\n", run.ID)
	fmt.Fprintf(t.writer, "Repository:  %s\n", run.Repository)
	if run.RepositoryPath != "" {
		fmt.Fprintf(t.writer, "Path:        %s\n", run.RepositoryPath)
	}
	fmt.Fprintf(t.writer, "Workers:     %d\n", run.Workers)
	fmt.Fprintf(t.writer, "Status:      %s\n", run.Status)
	fmt.Fprintf(t.writer, "Phases:      %s\n", o.Progress)
	if run.Error != "" {
		fmt.Fprintf(t.writer, "Error:       %s\n", run.Error)
	}
	fmt.Fprintf(t.writer, "Created:     %s\n", FormatTimestamp(run.CreatedAt))
	if run.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished:    %s\n", FormatTimestamp(*run.FinishedAt))
		fmt.Fprintf(t.writer, "Duration:    %s\n", FormatDuration(run.CreatedAt, run.FinishedAt))
	}

	if s := run.Summary; s != nil {
		fmt.Fprintf(t.writer, "Todo:        %d\n", s.TodoCount)
		if len(s.PrecacheFailed) > 0 {
			fmt.Fprintf(t.writer, "Precache:    %s\n", strings.Join(s.PrecacheFailed, ", "))
		}
		for _, w := range s.Warnings {
			fmt.Fprintf(t.writer, "Warning:     %s\n", w)
		}
	}

	if len(phases) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "#\tPHASE\tSTATUS\tERROR")
	for _, p := range phases {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.Sequence, p.Name, p.Status, p.Error)
	}

	return nil
}

// PrintChecks prints preflight check results with a final summary line.
func (t *TablePrinter) PrintChecks(results []model.CheckResult) error {
	for _, r := range results {
		fmt.Fprintf(t.writer, "  %s %-20s %s\n", statusIcon(r.Status), r.ID, r.Message)
	}

	fmt.Fprintln(t.writer)
	_, warnings, errors := model.CountByStatus(results)
	if errors == 0 && warnings == 0 {
		fmt.Fprintln(t.writer, "All checks passed!")
		return nil
	}

	var summary []string
	if errors > 0 {
		summary = append(summary, fmt.Sprintf("%d error(s)", errors))
	}
	if warnings > 0 {
		summary = append(summary, fmt.Sprintf("%d warning(s)", warnings))
	}
	fmt.Fprintln(t.writer, strings.Join(summary, ", "))

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func statusIcon(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusOK:
		return "OK"
	case model.CheckStatusWarning:
		return "!!"
	case model.CheckStatusError:
		return "XX"
	default:
		return "??"
	}
}

func todoCount(r model.Run) string {
	if r.Summary == nil {
		return "-"
	}
	return fmt.Sprintf("%d", r.Summary.TodoCount)
}
