package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

func newProvider(db *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationsFS, migrationsDir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// RunMigrations applies every pending migration
func RunMigrations(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}

	logger.Info("Checking for pending migrations...")

	results, err := provider.Up(ctx)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, result := range results {
		logger.Info("Applied migration",
			zap.String("source", result.Source.Path),
			zap.Duration("duration", result.Duration),
		)
	}
	logger.Info("Migrations completed successfully", zap.Int("applied", len(results)))
	return nil
}

// RollbackMigration reverts the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}

	result, err := provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	logger.Info("Rolled back migration", zap.String("source", result.Source.Path))
	return nil
}

// MigrationStatus logs the state of every known migration
func MigrationStatus(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	for _, status := range statuses {
		logger.Info("Migration",
			zap.String("source", status.Source.Path),
			zap.String("state", string(status.State)),
			zap.Time("applied_at", status.AppliedAt),
		)
	}
	return nil
}
