package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cli/browser"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
)

const sessionFileName = "session.json"

var (
	ErrOAuthDenied  = errors.New("sign-in was cancelled at the provider")
	ErrOAuthTimeout = errors.New("timed out waiting for sign-in")
)

// StoredSession is the on-disk sign-in state.
type StoredSession struct {
	Server   string         `json:"server"`
	Token    string         `json:"token"`
	User     model.Identity `json:"user"`
	Provider string         `json:"provider,omitempty"`
	SavedAt  int64          `json:"saved_at"`
}

// DefaultSessionPath is $XDG_CONFIG_HOME/bmark/session.json, or the
// platform equivalent.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "bmark", sessionFileName), nil
}

// Auth is the sign-in collaborator. It keeps the token in a session file
// and implements board.AuthService.
type Auth struct {
	client *Client
	path   string

	// OpenURL launches the consent page; defaults to the system browser.
	OpenURL      func(url string) error
	OAuthTimeout time.Duration

	mu        sync.Mutex
	session   *StoredSession
	listeners map[int]func(*model.Identity)
	next      int
}

// NewAuth loads any saved session for the client's server. A missing or
// unreadable file means signed out.
func NewAuth(c *Client, path string) *Auth {
	a := &Auth{
		client:       c,
		path:         path,
		OpenURL:      browser.OpenURL,
		OAuthTimeout: 5 * time.Minute,
		listeners:    make(map[int]func(*model.Identity)),
	}
	if stored, err := a.load(); err == nil && stored.Server == c.Server() && stored.Token != "" {
		a.session = stored
		c.SetToken(stored.Token)
	}
	return a
}

func (a *Auth) Stored() *StoredSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil
	}
	cp := *a.session
	return &cp
}

// GetSession validates the saved token with the server. A rejected token
// is discarded and reported as signed out, not as an error.
func (a *Auth) GetSession(ctx context.Context) (*model.Identity, error) {
	if a.client.Token() == "" {
		return nil, nil
	}
	identity, err := a.client.Session(ctx)
	if err != nil {
		if errors.Is(err, appErr.ErrUnauthorized) {
			logutil.GetLogger(ctx).Info("saved session rejected, signing out", zap.Error(err))
			a.clear(ctx)
			return nil, nil
		}
		return nil, err
	}
	a.mu.Lock()
	if a.session != nil {
		a.session.User = *identity
	}
	a.mu.Unlock()
	return identity, nil
}

func (a *Auth) OnIdentityChange(fn func(identity *model.Identity)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.next
	a.next++
	a.listeners[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

func (a *Auth) LoginPassword(ctx context.Context, email, password string) (*model.Identity, error) {
	res, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.signedIn(ctx, res.Token, res.User, "")
}

func (a *Auth) Register(ctx context.Context, email, password string) (*model.Identity, error) {
	res, err := a.client.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.signedIn(ctx, res.Token, res.User, "")
}

// LoginOAuth runs the browser sign-in: a loopback listener receives the
// server's final redirect carrying the token.
func (a *Auth) LoginOAuth(ctx context.Context, provider string) (*model.Identity, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for callback: %w", err)
	}
	defer ln.Close()
	redirect := fmt.Sprintf("http://%s/callback", ln.Addr().String())

	consentURL, err := a.client.OAuthURL(ctx, provider, redirect)
	if err != nil {
		return nil, err
	}

	results := make(chan oauthResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger := logutil.GetLogger(ctx).With(zap.String("provider", provider))
	logger.Debug("opening oauth consent page", zap.String("redirect", redirect))
	if err := a.OpenURL(consentURL); err != nil {
		logger.Warn("open browser failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Open this URL to sign in:\n%s\n", consentURL)
	}

	timeout := a.OAuthTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var res oauthResult
	select {
	case res = <-results:
	case <-timer.C:
		return nil, ErrOAuthTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != "" {
		if res.err == "denied" {
			return nil, ErrOAuthDenied
		}
		return nil, fmt.Errorf("oauth sign-in failed: %s", res.err)
	}

	a.client.SetToken(res.token)
	identity, err := a.client.Session(ctx)
	if err != nil {
		a.client.SetToken(a.currentToken())
		return nil, err
	}
	return a.signedIn(ctx, res.token, *identity, provider)
}

type oauthResult struct {
	token string
	err   string
}

func callbackHandler(results chan<- oauthResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res := oauthResult{token: q.Get("token"), err: q.Get("error")}
		if res.token == "" && res.err == "" {
			res.err = "invalid"
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if res.err != "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, "Sign-in failed. You can close this window.")
		} else {
			fmt.Fprintln(w, "Signed in to bmark. You can close this window.")
		}
		select {
		case results <- res:
		default:
		}
	})
	return mux
}

// Logout tells the server, forgets the token locally and notifies
// listeners. The local sign-out happens even if the server call fails.
func (a *Auth) Logout(ctx context.Context) error {
	var err error
	if a.client.Token() != "" {
		err = a.client.Logout(ctx)
		if err != nil {
			logutil.GetLogger(ctx).Warn("server logout failed", zap.Error(err))
		}
	}
	a.clear(ctx)
	return err
}

func (a *Auth) signedIn(ctx context.Context, token string, user model.Identity, provider string) (*model.Identity, error) {
	stored := &StoredSession{
		Server:   a.client.Server(),
		Token:    token,
		User:     user,
		Provider: provider,
		SavedAt:  time.Now().Unix(),
	}
	if err := a.save(stored); err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.session = stored
	a.mu.Unlock()
	a.client.SetToken(token)
	logutil.GetLogger(ctx).Info("signed in", zap.String("user_id", user.ID), zap.String("provider", provider))
	identity := user
	a.notify(&identity)
	return &identity, nil
}

func (a *Auth) clear(ctx context.Context) {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
	a.client.SetToken("")
	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		logutil.GetLogger(ctx).Warn("remove session file failed", zap.String("path", a.path), zap.Error(err))
	}
	a.notify(nil)
}

func (a *Auth) currentToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.Token
}

func (a *Auth) notify(identity *model.Identity) {
	a.mu.Lock()
	fns := make([]func(*model.Identity), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		var cp *model.Identity
		if identity != nil {
			v := *identity
			cp = &v
		}
		fn(cp)
	}
}

func (a *Auth) load() (*StoredSession, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, err
	}
	var stored StoredSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return &stored, nil
}

func (a *Auth) save(stored *StoredSession) error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
