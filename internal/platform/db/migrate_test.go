package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	data, err := fs.ReadFile(migrations, "migrations/00001_create_users.sql")
	require.NoError(t, err)
	sql := string(data)
	assert.True(t, strings.HasPrefix(sql, "-- +goose Up"))
	assert.Contains(t, sql, "-- +goose Down")
	assert.Contains(t, sql, "UNIQUE (username)")
}
