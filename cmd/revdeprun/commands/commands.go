package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/revdeprun/internal/conventions"
	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/printer"
	"github.com/slok/revdeprun/internal/progress"
	"github.com/slok/revdeprun/internal/storage"
	"github.com/slok/revdeprun/internal/storage/memory"
	"github.com/slok/revdeprun/internal/storage/sqlite"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

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
	DBPath     string
	NoHistory  bool

	// Global instances.
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   log.Logger
	Progress *progress.Progress
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDBPath := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir, conventions.DBFile)
	app.Flag("db-path", "Path to the run history SQLite database file.").Default(defaultDBPath).StringVar(&c.DBPath)
	app.Flag("no-history", "Don't record the runs in the history database.").BoolVar(&c.NoHistory)

	return c
}

// history is the run history storage used by the commands.
type history struct {
	Runs   storage.Repository
	Phases storage.PhaseRepository
	Close  func() error
}

// openHistory opens the run history database, or an in-memory one when the
// history is disabled.
func (c *RootCommand) openHistory(ctx context.Context) (*history, error) {
	if c.NoHistory {
		repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: c.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create memory repository: %w", err)
		}
		return &history{Runs: repo, Phases: repo, Close: func() error { return nil }}, nil
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.DBPath,
		Logger: c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	phases, err := sqlite.NewPhaseRepository(sqlite.PhaseRepositoryConfig{DB: repo.DB(), Logger: c.Logger})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("could not create phase repository: %w", err)
	}

	return &history{Runs: repo, Phases: phases, Close: repo.Close}, nil
}

func (c *RootCommand) printer(format string) printer.Printer {
	if format == formatJSON {
		return printer.NewJSONPrinter(c.Stdout)
	}
	return printer.NewTablePrinter(c.Stdout)
}
