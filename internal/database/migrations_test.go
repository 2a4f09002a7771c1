package database

import (
	"context"
	"testing"
	"time"

	"qpinta/internal/config"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	cfg := config.DatabaseConfig{User: "user", Password: "password", Database: "testdb", Schema: "public"}

	container, err := postgres.Run(
		ctx,
		"postgres:15",
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.User),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Host = host
	cfg.Port = port.Port()
	return cfg
}

func TestMigrationsApplyAndRollBack(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(ctx, db, logger); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	if err := MigrationStatus(ctx, db, logger); err != nil {
		t.Fatalf("status failed: %v", err)
	}

	var categoryID int64
	if err := db.QueryRowContext(ctx, `INSERT INTO categories (name) VALUES ('Jackets') RETURNING id`).Scan(&categoryID); err != nil {
		t.Fatalf("insert category failed: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO products (price, size, "categoryId", image) VALUES (59.90, 'L', $1, 'x.jpg')`, categoryID); err != nil {
		t.Fatalf("insert product failed: %v", err)
	}

	// Deleting a referenced category is not blocked by the database.
	if _, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, categoryID); err != nil {
		t.Fatalf("delete category failed: %v", err)
	}
	var orphaned bool
	if err := db.QueryRowContext(ctx, `SELECT "categoryId" IS NULL FROM products`).Scan(&orphaned); err != nil || !orphaned {
		t.Errorf("expected product category to be cleared, got %v (%v)", orphaned, err)
	}

	if err := RollbackMigration(ctx, db, logger); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
	var exists bool
	db.QueryRowContext(ctx, `SELECT to_regclass('public.products') IS NOT NULL`).Scan(&exists)
	if exists {
		t.Error("products table should be gone after rollback")
	}
}
