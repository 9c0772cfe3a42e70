package migrations

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/uptrace/bun"
)

// Runner applies the SQL migrations under migrations/ against the service
// database.
type Runner struct {
	bunDB    *bun.DB
	dir      string
	migrator *migrate.Migrate
}

func NewRunner(bunDB *bun.DB, dir string) *Runner {
	if dir == "" {
		dir = "./migrations"
	}
	return &Runner{bunDB: bunDB, dir: dir}
}

func (r *Runner) init() error {
	if r.migrator != nil {
		return nil
	}
	driver, err := postgres.WithInstance(r.bunDB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres migration driver: %w", err)
	}
	migrator, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", r.dir), "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	r.migrator = migrator
	return nil
}

// Up applies all pending migrations.
func (r *Runner) Up() error {
	if err := r.init(); err != nil {
		return err
	}
	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	if version, _, err := r.migrator.Version(); err == nil {
		log.Printf("Schema at version %d", version)
	}
	return nil
}

// Down rolls everything back.
func (r *Runner) Down() error {
	if err := r.init(); err != nil {
		return err
	}
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Close frees the migrator's resources.
func (r *Runner) Close() error {
	if r.migrator == nil {
		return nil
	}
	sourceErr, databaseErr := r.migrator.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migrator source: %w", sourceErr)
	}
	if databaseErr != nil {
		return fmt.Errorf("close migrator database: %w", databaseErr)
	}
	return nil
}
