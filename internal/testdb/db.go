package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/phrazzld/summa/migrations"
	"github.com/pressly/goose/v3"
)

// DatabaseURLEnv names the environment variable holding the test database DSN.
const DatabaseURLEnv = "SUMMA_TEST_DATABASE_URL"

// GetTestDatabaseURL returns the test database DSN, or "" when none is configured.
func GetTestDatabaseURL() string {
	return strings.TrimSpace(os.Getenv(DatabaseURLEnv))
}

// ShouldSkipDatabaseTest reports whether database tests cannot run here.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}

// Open returns a connection to the test database with every migration
// applied. The test is skipped when no database is configured.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dsn := GetTestDatabaseURL()
	if dsn == "" {
		t.Skipf("%s not set, skipping database test", DatabaseURLEnv)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("test database unreachable: %v", err)
	}
	if err := migrate(ctx, db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName("schema_migrations")
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// WithTx runs fn inside a transaction that is rolled back afterwards, so
// tests leave no rows behind.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}
