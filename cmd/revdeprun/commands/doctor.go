package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/revdeprun/internal/app/doctor"
	"github.com/slok/revdeprun/internal/environment"
	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/phase"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	interpreter string
	format      string
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks of the host.")
	c.Cmd.Flag("interpreter", "Interpreter the phase scripts are run with.").Default(phase.DefaultInterpreter).StringVar(&c.interpreter)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	svc, err := doctor.NewService(doctor.ServiceConfig{
		Interpreter: c.interpreter,
		Environment: environment.Detect(environment.Config{Logger: logger}),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	results := svc.Check(ctx)
	if err := c.rootCmd.printer(c.format).PrintChecks(results); err != nil {
		return fmt.Errorf("could not print checks: %w", err)
	}

	if _, _, errs := model.CountByStatus(results); errs > 0 {
		return fmt.Errorf("preflight checks failed with %d error(s)", errs)
	}

	return nil
}
