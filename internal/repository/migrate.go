package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers pgx5://
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrate applies every pending up migration in fsys and returns the schema
// version afterwards. A schema that is already current is not an error.
func (r *Repository) Migrate(ctx context.Context, fsys fs.FS) (uint, error) {
	return MigrateUp(ctx, r.pool.Config().ConnString(), fsys)
}

// MigrateUp applies every pending up migration in fsys to databaseURL.
func MigrateUp(ctx context.Context, databaseURL string, fsys fs.FS) (uint, error) {
	m, err := newMigrator(databaseURL, fsys)
	if err != nil {
		return 0, err
	}
	defer closeMigrator(m)

	stop := context.AfterFunc(ctx, func() { m.GracefulStop <- true })
	defer stop()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// MigrateDown reverts every applied migration in fsys on databaseURL.
func MigrateDown(ctx context.Context, databaseURL string, fsys fs.FS) error {
	m, err := newMigrator(databaseURL, fsys)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	stop := context.AfterFunc(ctx, func() { m.GracefulStop <- true })
	defer stop()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}
	return nil
}

func newMigrator(databaseURL string, fsys fs.FS) (*migrate.Migrate, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("failed to open migration target: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	_, _ = m.Close()
}

// migrateURL points a postgres connection string at the pgx/v5 driver.
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}
