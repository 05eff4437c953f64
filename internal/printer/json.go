package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/revdeprun/internal/model"
)

// JSONPrinter prints run information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents a run in the list output (subset of fields).
type listItem struct {
	ID         string         `json:"id"`
	Repository string         `json:"repository"`
	Status     string         `json:"status"`
	Progress   progressOutput `json:"progress"`
	TodoCount  *int           `json:"todo_count"`
	CreatedAt  time.Time      `json:"created_at"`
	FinishedAt *time.Time     `json:"finished_at"`
}

// runOutput represents the full run output.
type runOutput struct {
	ID             string         `json:"id"`
	Repository     string         `json:"repository"`
	RepositoryPath string         `json:"repository_path"`
	Workers        int            `json:"workers"`
	Status         string         `json:"status"`
	Progress       progressOutput `json:"progress"`
	Error          string         `json:"error,omitempty"`
	Summary        *summaryOutput `json:"summary"`
	Phases         []phaseOutput  `json:"phases"`
	CreatedAt      time.Time      `json:"created_at"`
	FinishedAt     *time.Time     `json:"finished_at"`
}

// summaryOutput uses the same field names the prepare phase emits.
type summaryOutput struct {
	TodoCount      int      `json:"todo_count"`
	PrecacheFailed []string `json:"precache_failed"`
	Warnings       []string `json:"warnings"`
}

type progressOutput struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

type phaseOutput struct {
	Sequence int    `json:"sequence"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

type checkOutput struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintRunList prints runs in JSON format with a subset of fields.
func (j *JSONPrinter) PrintRunList(runs []model.RunOverview) error {
	items := make([]listItem, len(runs))
	for i, o := range runs {
		r := o.Run
		items[i] = listItem{
			ID:         r.ID,
			Repository: r.Repository,
			Status:     string(r.Status),
			Progress:   progressOutput{Done: o.Progress.Done, Total: o.Progress.Total},
			CreatedAt:  r.CreatedAt.UTC(),
			FinishedAt: utcPtr(r.FinishedAt),
		}
		if r.Summary != nil {
			todo := r.Summary.TodoCount
			items[i].TodoCount = &todo
		}
	}

	return j.encode(items)
}

// PrintRun prints the detail of a run and its phases in JSON format.
func (j *JSONPrinter) PrintRun(o model.RunOverview, phases []model.PhaseRecord) error {
	run := o.Run
	output := runOutput{
		ID:             run.ID,
		Repository:     run.Repository,
		RepositoryPath: run.RepositoryPath,
		Workers:        run.Workers,
		Status:         string(run.Status),
		Progress:       progressOutput{Done: o.Progress.Done, Total: o.Progress.Total},
		Error:          run.Error,
		Phases:         make([]phaseOutput, 0, len(phases)),
		CreatedAt:      run.CreatedAt.UTC(),
		FinishedAt:     utcPtr(run.FinishedAt),
	}

	if s := run.Summary; s != nil {
		output.Summary = &summaryOutput{
			TodoCount:      s.TodoCount,
			PrecacheFailed: nonNil(s.PrecacheFailed),
			Warnings:       nonNil(s.Warnings),
		}
	}

	for _, p := range phases {
		output.Phases = append(output.Phases, phaseOutput{
			Sequence: p.Sequence,
			Name:     p.Name,
			Status:   string(p.Status),
			Error:    p.Error,
		})
	}

	return j.encode(output)
}

// PrintChecks prints preflight check results in JSON format.
func (j *JSONPrinter) PrintChecks(results []model.CheckResult) error {
	items := make([]checkOutput, len(results))
	for i, r := range results {
		items[i] = checkOutput{ID: r.ID, Status: string(r.Status), Message: r.Message}
	}

	return j.encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
