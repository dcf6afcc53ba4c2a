//go:build integration

// Package testdb provides utilities for database integration tests.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DatabaseURLEnvVar is the environment variable holding the test database URL.
const DatabaseURLEnvVar = "LEARNTRAC_TEST_DB_URL"

// IsIntegrationTestEnvironment reports whether a test database is configured.
// Tests call this to skip when no database is available.
func IsIntegrationTestEnvironment() bool {
	return os.Getenv(DatabaseURLEnvVar) != ""
}

// GetTestDB opens the test database, verifies connectivity, and applies all
// migrations. Tests share the returned pool; isolation comes from WithTx.
func GetTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv(DatabaseURLEnvVar)
	if dbURL == "" {
		t.Skipf("%s not set, skipping integration test", DatabaseURLEnvVar)
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	if err := applyMigrations(db); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// never persist changes and can run against a shared database.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Errorf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// applyMigrations runs all goose migrations from the project's migrations
// directory.
func applyMigrations(db *sql.DB) error {
	dir, err := findMigrationsDir()
	if err != nil {
		return err
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	return goose.Up(db, dir)
}

// findMigrationsDir walks up from the working directory until it finds the
// module root (marked by go.mod) and returns its migrations directory.
func findMigrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find module root from working directory")
		}
		dir = parent
	}
}
