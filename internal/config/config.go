package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database          DatabaseConfig   `json:"database"`
	JWTSecret         string           `json:"jwt_secret"`
	Port              int              `json:"port"`
	JWTTTLHours       int              `json:"jwt_ttl_hours"`
	LogConfig         logger.LogConfig `json:"log_config"`
	Properties        Properties       `json:"properties"`
	OAuth             OAuthConfig      `json:"oauth"`
	Notify            NotifyConfig     `json:"notify"`
	FileStore         FileStoreConfig  `json:"file_store"`
	Backup            BackupConfig     `json:"backup"`
	Purge             PurgeConfig      `json:"purge"`
	AI                AIConfig         `json:"ai"`
	FaviconBase       string           `json:"favicon_base"`
	MaxImportBytes    int64            `json:"max_import_bytes"`
	CORSAllowlist     []string         `json:"cors_allowlist"`
	RedirectAllowlist []string         `json:"redirect_allowlist"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
	Path     string `json:"path"`
}

type Properties struct {
	EnableUserRegister bool `json:"enable_user_register"`
	EnableGithubOauth  bool `json:"enable_github_oauth"`
	EnableGoogleOauth  bool `json:"enable_google_oauth"`
	EnableAITag        bool `json:"enable_ai_tag"`
}

type OAuthConfig struct {
	Github OAuthProviderConfig `json:"github"`
	Google OAuthProviderConfig `json:"google"`
}

type OAuthProviderConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURL  string   `json:"redirect_url"`
	Scopes       []string `json:"scopes"`
}

type NotifyConfig struct {
	Type      string      `json:"type"`
	Redis     RedisConfig `json:"redis"`
	QueueSize int         `json:"queue_size"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Channel  string `json:"channel"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type BackupConfig struct {
	Enabled bool   `json:"enabled"`
	Cron    string `json:"cron"`
	Prefix  string `json:"prefix"`
}

type PurgeConfig struct {
	Cron          string `json:"cron"`
	RetentionDays int    `json:"retention_days"`
}

type AIConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Timeout  int         `json:"timeout"`
	Data     interface{} `json:"data"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	var cfg Config
	if err := decode(path, raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decode reads JSON, or YAML when the file extension says so. YAML is
// round-tripped through JSON so both formats share the json tags.
func decode(path string, raw []byte, dst *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var tree interface{}
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return err
		}
		data, err := json.Marshal(tree)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, dst)
	default:
		return json.Unmarshal(raw, dst)
	}
}

func (cfg *Config) normalize() error {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required")
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
	case "sqlite":
		if cfg.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Notify.Type == "" {
		cfg.Notify.Type = "memory"
	}
	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = 64
	}
	switch cfg.Notify.Type {
	case "memory":
	case "redis":
		if cfg.Notify.Redis.Addr == "" {
			return fmt.Errorf("notify.redis.addr is required for redis notify")
		}
		if cfg.Notify.Redis.Channel == "" {
			cfg.Notify.Redis.Channel = "bmark:changes"
		}
	default:
		return fmt.Errorf("notify.type must be memory or redis")
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.Backup.Enabled && cfg.FileStore.Data == nil {
		return fmt.Errorf("file_store.data is required when backup is enabled")
	}
	if cfg.Backup.Cron == "" {
		cfg.Backup.Cron = "0 3 * * *"
	}
	if cfg.Backup.Prefix == "" {
		cfg.Backup.Prefix = "backups"
	}
	if cfg.Purge.Cron == "" {
		cfg.Purge.Cron = "30 4 * * *"
	}
	if cfg.Purge.RetentionDays <= 0 {
		cfg.Purge.RetentionDays = 30
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 15
	}
	if cfg.FaviconBase == "" {
		cfg.FaviconBase = "https://www.google.com/s2/favicons"
	}
	if cfg.Properties.EnableAITag && cfg.AI.Provider == "" {
		return fmt.Errorf("ai.provider is required when enable_ai_tag is set")
	}
	return nil
}
