package db

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bmark/internal/config"
	"github.com/xxxsen/bmark/internal/pkg/dbutil"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	conn, dialect, err := Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.Equal(t, dbutil.SQLite, dialect)

	require.NoError(t, ApplyMigrations(conn))
	// second run is a no-op
	require.NoError(t, ApplyMigrations(conn))

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(1) FROM bookmarks").Scan(&count))
	require.Equal(t, 0, count)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(config.DatabaseConfig{Driver: "mysql"})
	require.Error(t, err)
}
