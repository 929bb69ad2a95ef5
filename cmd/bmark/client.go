package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/client"
	"github.com/xxxsen/bmark/internal/model"
)

const requestTimeout = 30 * time.Second

type clientOptions struct {
	server      string
	sessionPath string
	logFile     string
}

type session struct {
	client *client.Client
	auth   *client.Auth
}

// connect builds the API client and its sign-in collaborator. Client logs go
// to a file so they never land on the terminal the TUI draws on.
func (o *clientOptions) connect() (*session, error) {
	server := strings.TrimSpace(o.server)
	if server == "" {
		return nil, fmt.Errorf("--server or %s is required", serverEnv)
	}
	if err := o.initLogger(); err != nil {
		return nil, err
	}
	path := o.sessionPath
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	c := client.New(server)
	logutil.GetLogger(context.Background()).Debug("client ready", zap.String("server", c.Server()), zap.String("session", path))
	return &session{client: c, auth: client.NewAuth(c, path)}, nil
}

func (o *clientOptions) initLogger() error {
	file := o.logFile
	if file == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("locate cache dir: %w", err)
		}
		file = filepath.Join(dir, "bmark", "bmark.log")
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logger.Init(file, "info", 3, 10, 7, false)
	return nil
}

// identity resolves the signed-in user or fails with a hint to log in.
func (s *session) identity(ctx context.Context) (*model.Identity, error) {
	identity, err := s.auth.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, fmt.Errorf("not signed in, run `bmark login`")
	}
	return identity, nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}
