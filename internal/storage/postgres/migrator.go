package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

// newMigrationProvider собирает goose-провайдер поверх встроенных миграций.
func (s *Store) newMigrationProvider() (*goose.Provider, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNotInitialized
	}

	migrations, err := fs.Sub(migrationsFS, "sql/migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, s.db, migrations)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return provider, nil
}

// MigrateUp применяет up-миграции.
// steps=0 означает "применить все доступные".
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	provider, err := s.newMigrationProvider()
	if err != nil {
		return err
	}

	if steps <= 0 {
		if _, err := provider.Up(ctx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	}

	for i := 0; i < steps; i++ {
		if _, err := provider.UpByOne(ctx); err != nil {
			if errors.Is(err, goose.ErrNoNextVersion) {
				return nil
			}
			return fmt.Errorf("apply migration step %d: %w", i+1, err)
		}
	}
	return nil
}

// MigrateDown откатывает миграции.
// steps<=0 интерпретируется как 1 шаг.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	provider, err := s.newMigrationProvider()
	if err != nil {
		return err
	}

	if steps <= 0 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		if _, err := provider.Down(ctx); err != nil {
			if errors.Is(err, goose.ErrNoNextVersion) {
				return nil
			}
			return fmt.Errorf("rollback migration step %d: %w", i+1, err)
		}
	}
	return nil
}

// MigrationStatus возвращает текущую версию схемы и количество применённых миграций.
func (s *Store) MigrationStatus(ctx context.Context) (int64, int, error) {
	provider, err := s.newMigrationProvider()
	if err != nil {
		return 0, 0, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("query migration status: %w", err)
	}

	var (
		version int64
		applied int
	)
	for _, st := range statuses {
		if st.State != goose.StateApplied {
			continue
		}
		applied++
		if st.Source.Version > version {
			version = st.Source.Version
		}
	}
	return version, applied, nil
}
