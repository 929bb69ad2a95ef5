package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_JSONDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"database": {"driver": "sqlite", "path": "/tmp/bmark.db"},
		"jwt_secret": "k",
		"port": 8080
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 72, cfg.JWTTTLHours)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, "memory", cfg.Notify.Type)
	require.Equal(t, 64, cfg.Notify.QueueSize)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, 30, cfg.Purge.RetentionDays)
	require.Equal(t, "0 3 * * *", cfg.Backup.Cron)
	require.Equal(t, "https://www.google.com/s2/favicons", cfg.FaviconBase)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
database:
  host: db.internal
  user: bmark
jwt_secret: k
port: 9000
notify:
  type: redis
  redis:
    addr: 127.0.0.1:6379
properties:
  enable_github_oauth: true
cors_allowlist:
  - http://localhost:3000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, "bmark:changes", cfg.Notify.Redis.Channel)
	require.True(t, cfg.Properties.EnableGithubOauth)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowlist)
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"missing secret": `{"database": {"driver": "sqlite", "path": "x"}, "port": 1}`,
		"missing port":   `{"database": {"driver": "sqlite", "path": "x"}, "jwt_secret": "k"}`,
		"bad driver":     `{"database": {"driver": "mysql"}, "jwt_secret": "k", "port": 1}`,
		"sqlite no path": `{"database": {"driver": "sqlite"}, "jwt_secret": "k", "port": 1}`,
		"redis no addr":  `{"database": {"driver": "sqlite", "path": "x"}, "jwt_secret": "k", "port": 1, "notify": {"type": "redis"}}`,
		"ai no provider": `{"database": {"driver": "sqlite", "path": "x"}, "jwt_secret": "k", "port": 1, "properties": {"enable_ai_tag": true}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.json", body))
			require.Error(t, err)
		})
	}
}
