package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Runner drives schema migrations over an open database handle. The
// ledger tables are introduced this way, which is why the capability
// detector re-checks the schema on every call instead of at boot.
type Runner struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New builds a Runner reading .sql pairs from dir.
func New(db *sql.DB, dir string, logger *zap.Logger) (*Runner, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration source %s: %w", dir, err)
	}
	return &Runner{m: m, logger: logger}, nil
}

// Up applies every pending migration.
func (r *Runner) Up() error {
	return r.run("up", r.m.Up())
}

// Down rolls back every applied migration.
func (r *Runner) Down() error {
	return r.run("down", r.m.Down())
}

// Steps applies n migrations; negative n rolls back.
func (r *Runner) Steps(n int) error {
	return r.run(fmt.Sprintf("step %d", n), r.m.Steps(n))
}

func (r *Runner) run(op string, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("schema already current", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s: %w", op, err)
	}

	version, dirty, verr := r.Version()
	if verr != nil {
		return verr
	}
	r.logger.Info("migrations applied",
		zap.String("op", op),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Version reports the current schema version. A pristine database
// reports version zero.
func (r *Runner) Version() (uint, bool, error) {
	version, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force overwrites the recorded version without running anything. The
// escape hatch for a dirty state after a failed migration.
func (r *Runner) Force(version int) error {
	if err := r.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	r.logger.Warn("migration version forced", zap.Int("version", version))
	return nil
}

// Close releases the source and database handles.
func (r *Runner) Close() error {
	sourceErr, dbErr := r.m.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}
