package db

import (
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gatekeep/authserver/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema for one database driver. It opens its
// own connection, so it never competes with the serving pool.
type Migrator struct {
	cfg config.Config
}

func NewMigrator(cfg config.Config) *Migrator {
	return &Migrator{cfg: cfg}
}

// Up applies pending migrations. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	return m.run(func(mg *migrate.Migrate) error { return mg.Up() }, "up")
}

// Down reverts every migration.
func (m *Migrator) Down() error {
	return m.run(func(mg *migrate.Migrate) error { return mg.Down() }, "down")
}

func (m *Migrator) run(step func(*migrate.Migrate) error, name string) error {
	migrator, err := m.open()
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := step(migrator); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate %s failed: %w", name, err)
	}
	return nil
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	dir, databaseURL, err := m.target()
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		_ = source.Close()
		return nil, err
	}
	return migrator, nil
}

func (m *Migrator) target() (dir string, databaseURL string, err error) {
	switch m.cfg.Database.Driver {
	case config.DriverPostgres:
		return "migrations/postgres", PostgresURL(m.cfg), nil
	case config.DriverSQLite, "":
		path := filepath.ToSlash(filepath.Clean(m.cfg.Database.Path))
		return "migrations/sqlite", "sqlite://" + path, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", m.cfg.Database.Driver)
	}
}
