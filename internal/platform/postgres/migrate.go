package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/summa/migrations"
	"github.com/pressly/goose/v3"
)

// MigrationTableName is the name of the table used by goose to track migrations.
const MigrationTableName = "schema_migrations"

// ErrUnknownMigrationCommand is returned by Migrate for unsupported commands.
var ErrUnknownMigrationCommand = errors.New("unknown migration command")

// MigrationCommands lists the commands accepted by Migrate.
var MigrationCommands = []string{"up", "down", "reset", "status", "version"}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs at error level without exiting; Migrate returns the error.
func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// Migrate runs a goose command against the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	log := logger.With("component", "migrations", "command", command)

	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName(MigrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	var run func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error
	switch command {
	case "up":
		run = goose.UpContext
	case "down":
		run = goose.DownContext
	case "reset":
		run = goose.ResetContext
	case "status":
		run = goose.StatusContext
	case "version":
		run = goose.VersionContext
	default:
		return fmt.Errorf("%w: %q (expected one of %v)", ErrUnknownMigrationCommand, command, MigrationCommands)
	}

	start := time.Now()
	log.Info("starting migration command")
	if err := run(ctx, db, "."); err != nil {
		log.Error("migration command failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("migration command '%s' failed: %w", command, err)
	}
	log.Info("migration command completed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
