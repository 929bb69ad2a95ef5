package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/bmark/internal/config"
	"github.com/xxxsen/bmark/internal/db"
	"github.com/xxxsen/bmark/internal/pkg/dbutil"
)

// OpenTestDB returns a migrated database. Postgres is used when
// TEST_DB_HOST is set, otherwise an in-memory sqlite database.
func OpenTestDB(t *testing.T) (*sql.DB, dbutil.Dialect, func()) {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}
	if host := os.Getenv("TEST_DB_HOST"); host != "" {
		cfg = config.DatabaseConfig{
			Driver:   "postgres",
			Host:     host,
			Port:     5432,
			User:     "bmark",
			Password: "bmark_pass",
			DBName:   "bmark_test",
			SSLMode:  "disable",
		}
	}
	conn, dialect, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if dialect == dbutil.Postgres {
		for _, table := range []string{"bookmarks", "oauth_accounts", "users"} {
			if _, err := conn.Exec("DELETE FROM " + table); err != nil {
				t.Fatalf("reset %s: %v", table, err)
			}
		}
	}
	return conn, dialect, func() {
		_ = conn.Close()
	}
}
