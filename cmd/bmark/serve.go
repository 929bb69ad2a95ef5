package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/ai"
	"github.com/xxxsen/bmark/internal/config"
	"github.com/xxxsen/bmark/internal/db"
	"github.com/xxxsen/bmark/internal/filestore"
	"github.com/xxxsen/bmark/internal/handler"
	"github.com/xxxsen/bmark/internal/job"
	"github.com/xxxsen/bmark/internal/middleware"
	"github.com/xxxsen/bmark/internal/notify"
	"github.com/xxxsen/bmark/internal/oauth"
	"github.com/xxxsen/bmark/internal/pkg/dbutil"
	"github.com/xxxsen/bmark/internal/repo"
	"github.com/xxxsen/bmark/internal/schedule"
	"github.com/xxxsen/bmark/internal/service"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the bookmark backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, dialect, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer func() { _ = conn.Close() }()
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn, dialect)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json or config.yaml")
	return cmd
}

func runServer(cfg *config.Config, conn *sql.DB, dialect dbutil.Dialect) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("notify", cfg.Notify.Type),
		zap.String("file_store", cfg.FileStore.Type),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo := repo.NewUserRepo(conn, dialect)
	oauthRepo := repo.NewOAuthRepo(conn, dialect)
	bookmarkRepo := repo.NewBookmarkRepo(conn, dialect)

	hub := notify.NewHub(cfg.Notify.QueueSize)
	defer hub.Close()
	var notifier notify.Notifier = hub
	if cfg.Notify.Type == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Notify.Redis.Addr,
			Password: cfg.Notify.Redis.Password,
			DB:       cfg.Notify.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		broker := notify.NewRedisBroker(rdb, cfg.Notify.Redis.Channel, hub)
		notifier = broker
		go func() {
			if err := broker.Run(ctx); err != nil {
				logutil.GetLogger(ctx).Error("redis change relay stopped", zap.Error(err))
			}
		}()
	}

	ttl := time.Hour * time.Duration(cfg.JWTTTLHours)
	secret := []byte(cfg.JWTSecret)
	identities := service.NewIdentityCache(1024, time.Minute)
	authService := service.NewAuthService(userRepo, identities, secret, ttl, cfg.Properties.EnableUserRegister)
	oauthService := service.NewOAuthService(userRepo, oauthRepo, identities, secret, ttl, buildOAuthProviders(cfg))
	bookmarkService := service.NewBookmarkService(bookmarkRepo, notifier)
	exportService := service.NewExportService(bookmarkRepo)
	importService := service.NewImportService(bookmarkService)

	var classifier ai.Classifier
	if cfg.Properties.EnableAITag {
		providerArgs := cfg.AI.Data
		if providerArgs == nil {
			providerArgs = cfg.AI
		}
		provider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
		if err != nil {
			return fmt.Errorf("init ai provider: %w", err)
		}
		classifier = ai.NewClassifier(provider, cfg.AI.Model)
	}
	aiService := service.NewAIService(classifier, time.Duration(cfg.AI.Timeout)*time.Second)

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewPurgeJob(bookmarkService, cfg.Purge.RetentionDays), cfg.Purge.Cron); err != nil {
		return fmt.Errorf("schedule purge: %w", err)
	}
	if cfg.Backup.Enabled {
		store, err := filestore.New(cfg.FileStore)
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
		if err := scheduler.AddJob(job.NewBackupJob(userRepo, bookmarkRepo, exportService, store, cfg.Backup.Prefix), cfg.Backup.Cron); err != nil {
			return fmt.Errorf("schedule backup: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Auth:       handler.NewAuthHandler(authService),
		OAuth:      handler.NewOAuthHandler(oauthService, cfg.RedirectAllowlist),
		Properties: handler.NewPropertiesHandler(cfg.Properties, oauthService.Providers(), cfg.FaviconBase),
		Bookmarks:  handler.NewBookmarkHandler(bookmarkService),
		Realtime:   handler.NewRealtimeHandler(notifier, handler.DefaultRealtimeSettings()),
		Export:     handler.NewExportHandler(exportService),
		Import:     handler.NewImportHandler(importService, cfg.MaxImportBytes),
		AI:         handler.NewAIHandler(aiService),
		JWTSecret:  secret,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			middleware.AccessLog(),
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/realtime"})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func buildOAuthProviders(cfg *config.Config) map[string]oauth.Provider {
	providers := map[string]oauth.Provider{}
	client := &http.Client{Timeout: 10 * time.Second}
	enabled := map[string]bool{
		"github": cfg.Properties.EnableGithubOauth,
		"google": cfg.Properties.EnableGoogleOauth,
	}
	settings := map[string]config.OAuthProviderConfig{
		"github": cfg.OAuth.Github,
		"google": cfg.OAuth.Google,
	}
	for name, on := range enabled {
		if !on {
			continue
		}
		pc := settings[name]
		provider, err := oauth.NewProvider(name, oauth.ProviderArgs{Config: oauth.ProviderConfig{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  pc.RedirectURL,
			Scopes:       pc.Scopes,
		}, Client: client})
		if err != nil {
			logutil.GetLogger(context.Background()).Error("init oauth provider failed", zap.String("provider", name), zap.Error(err))
			continue
		}
		providers[name] = provider
	}
	return providers
}
