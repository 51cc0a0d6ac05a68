package repository

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate brings the schema up to date. Takes the same postgres:// DSN
// the pool connects with; golang-migrate's pgx driver wants its own
// pgx5 scheme, rewritten here.
func Migrate(dsn string) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	migrateURL := dsn
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(migrateURL, scheme) {
			migrateURL = "pgx5://" + strings.TrimPrefix(migrateURL, scheme)
			break
		}
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL)
	if err != nil {
		return fmt.Errorf("open migration target: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
