package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	apphistory "github.com/slok/revdeprun/internal/app/history"
	"github.com/slok/revdeprun/internal/model"
)

// NewHistoryCommand returns the parent command of the run history commands.
func NewHistoryCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("history", "Inspect the run history.")
}

type HistoryListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	statusFilter string
	limit        int
	format       string
}

// NewHistoryListCommand returns the history list command.
func NewHistoryListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *HistoryListCommand {
	c := &HistoryListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List the recorded runs, newest first.").Alias("ls")
	c.Cmd.Flag("status", "Filter by status (running, succeeded, failed).").StringVar(&c.statusFilter)
	c.Cmd.Flag("limit", "Maximum number of runs to show (0 shows all).").Default("0").IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c HistoryListCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryListCommand) Run(ctx context.Context) error {
	statusFilter, err := parseRunStatus(c.statusFilter)
	if err != nil {
		return err
	}

	svc, closeFn, err := c.rootCmd.historyService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	runs, err := svc.List(ctx, apphistory.ListRequest{StatusFilter: statusFilter, Limit: c.limit})
	if err != nil {
		return fmt.Errorf("could not list runs: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintRunList(runs); err != nil {
		return fmt.Errorf("could not print list: %w", err)
	}

	return nil
}

type HistoryShowCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	format string
}

// NewHistoryShowCommand returns the history show command.
func NewHistoryShowCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *HistoryShowCommand {
	c := &HistoryShowCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("show", "Show a run and its phases.")
	c.Cmd.Arg("id", "Run ID or a unique prefix of it.").Required().StringVar(&c.id)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c HistoryShowCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryShowCommand) Run(ctx context.Context) error {
	svc, closeFn, err := c.rootCmd.historyService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	detail, err := svc.Show(ctx, c.id)
	if err != nil {
		return fmt.Errorf("could not get run: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintRun(detail.RunOverview, detail.Phases); err != nil {
		return fmt.Errorf("could not print run: %w", err)
	}

	return nil
}

type HistoryRmCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id string
}

// NewHistoryRmCommand returns the history rm command.
func NewHistoryRmCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *HistoryRmCommand {
	c := &HistoryRmCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("rm", "Remove a run from the history.")
	c.Cmd.Arg("id", "Run ID or a unique prefix of it.").Required().StringVar(&c.id)

	return c
}

func (c HistoryRmCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryRmCommand) Run(ctx context.Context) error {
	svc, closeFn, err := c.rootCmd.historyService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	run, err := svc.Remove(ctx, c.id)
	if err != nil {
		return fmt.Errorf("could not remove run: %w", err)
	}

	return c.rootCmd.printer(formatTable).PrintMessage(fmt.Sprintf("Run %s removed", run.ID))
}

func (c *RootCommand) historyService(ctx context.Context) (*apphistory.Service, func() error, error) {
	hist, err := c.openHistory(ctx)
	if err != nil {
		return nil, nil, err
	}

	svc, err := apphistory.NewService(apphistory.ServiceConfig{
		Repository:      hist.Runs,
		PhaseRepository: hist.Phases,
		Logger:          c.Logger,
	})
	if err != nil {
		hist.Close()
		return nil, nil, fmt.Errorf("could not create service: %w", err)
	}

	return svc, hist.Close, nil
}

func parseRunStatus(s string) (*model.RunStatus, error) {
	if s == "" {
		return nil, nil
	}

	status := model.RunStatus(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case model.RunStatusRunning, model.RunStatusSucceeded, model.RunStatusFailed:
		return &status, nil
	default:
		return nil, fmt.Errorf("invalid status filter: %s (must be: running, succeeded, failed)", s)
	}
}
