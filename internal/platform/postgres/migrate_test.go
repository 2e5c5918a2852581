package postgres

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"testing"

	"github.com/phrazzld/summa/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_UnknownCommand(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := Migrate(context.Background(), nil, "sideways", logger)
	assert.ErrorIs(t, err, ErrUnknownMigrationCommand)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"00001_create_documents.sql",
		"00002_create_summaries.sql",
		"00003_create_jobs.sql",
		"00004_create_job_steps.sql",
	}, files)

	for _, name := range files {
		body, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}
}
