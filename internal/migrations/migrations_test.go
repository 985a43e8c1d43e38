package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(embedMigrations, "*.sql")
	require.NoError(t, err)

	assert.Equal(t, []string{"00001_otp_records.sql", "00002_otp_delivery_log.sql"}, files)

	for _, f := range files {
		body, err := fs.ReadFile(embedMigrations, f)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", f)
		assert.Contains(t, string(body), "-- +goose Down", f)
	}
}
