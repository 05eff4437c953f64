package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/slok/revdeprun/internal/log"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// SchemaVersion is the run history schema version this binary writes.
const SchemaVersion uint = 2

// SchemaError is returned when the run history database schema can't be
// brought up to date.
type SchemaError struct {
	// DBPath is the history database the migration ran against.
	DBPath string
	// Version is the schema version found before failing, 0 if unknown.
	Version uint
	// Dirty is set when a previous migration was interrupted halfway.
	Dirty bool
	Err   error
}

func (e *SchemaError) Error() string {
	state := fmt.Sprintf("schema version %d", e.Version)
	if e.Dirty {
		state += " (dirty)"
	}
	return fmt.Sprintf("history database %s at %s: %s", e.DBPath, state, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Up migrates the run history database to SchemaVersion and returns the
// resulting version. dbPath only identifies the database in logs and errors.
func Up(ctx context.Context, db *sql.DB, dbPath string, logger log.Logger) (uint, error) {
	if db == nil {
		return 0, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = log.Noop
	}
	logger = logger.WithValues(log.Kv{"db": dbPath})

	if err := ctx.Err(); err != nil {
		return 0, &SchemaError{DBPath: dbPath, Err: err}
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return 0, &SchemaError{DBPath: dbPath, Err: fmt.Errorf("could not create driver: %w", err)}
	}

	src, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return 0, &SchemaError{DBPath: dbPath, Err: fmt.Errorf("could not load migrations: %w", err)}
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warningf("could not close migrations source: %s", err)
		}
	}()

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return 0, &SchemaError{DBPath: dbPath, Err: fmt.Errorf("could not create migration instance: %w", err)}
	}

	from, dirty, err := version(m)
	if err != nil {
		return 0, &SchemaError{DBPath: dbPath, Err: err}
	}
	if from > SchemaVersion {
		return from, &SchemaError{DBPath: dbPath, Version: from, Dirty: dirty, Err: fmt.Errorf("written by a newer revdeprun (supported up to %d)", SchemaVersion)}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return from, &SchemaError{DBPath: dbPath, Version: from, Dirty: dirty, Err: err}
	}

	to, _, err := version(m)
	if err != nil {
		return from, &SchemaError{DBPath: dbPath, Version: from, Err: err}
	}

	if to != from {
		logger.Infof("History schema migrated from version %d to %d", from, to)
	} else {
		logger.Debugf("History schema up to date at version %d", to)
	}

	return to, nil
}

// version returns the current schema version, 0 on a fresh database.
func version(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("could not read schema version: %w", err)
	}
	return v, dirty, nil
}
