package database

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/koustreak/realms/internal/errs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies every pending up migration for cfg.Driver.
func Migrate(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(cfg.Driver))
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "load migration source", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, MigrationURL(cfg))
	if err != nil {
		return errs.Wrap(errs.ErrKindConnectionFailed, "create migrator", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errs.Wrap(errs.ErrKindQueryFailed, "apply migrations", err)
	}
	return nil
}

// MigrationURL turns the driver DSN into the URL golang-migrate expects.
// Postgres DSNs are already URLs; go-sql-driver DSNs need a scheme.
func MigrationURL(cfg *Config) string {
	if cfg.Driver == DriverMySQL && !strings.HasPrefix(cfg.DSN, "mysql://") {
		return "mysql://" + cfg.DSN
	}
	return cfg.DSN
}
