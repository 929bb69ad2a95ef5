package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/pkg/errcode"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
	"github.com/xxxsen/bmark/internal/pkg/response"
	"github.com/xxxsen/bmark/internal/service"
)

const oauthStateTTL = 10 * time.Minute

type OAuthHandler struct {
	oauth      *service.OAuthService
	stateStore *oauthStateStore
	redirects  *redirectPolicy
}

// NewOAuthHandler builds the sign-in handler. Redirect targets must be
// loopback URLs or start with one of allowedPrefixes.
func NewOAuthHandler(oauth *service.OAuthService, allowedPrefixes []string) *OAuthHandler {
	return &OAuthHandler{
		oauth:      oauth,
		stateStore: newOAuthStateStore(),
		redirects:  newRedirectPolicy(allowedPrefixes),
	}
}

func (h *OAuthHandler) AuthURL(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))
	target := strings.TrimSpace(c.Query("redirect"))
	if !h.redirects.Allowed(target) {
		response.Error(c, errcode.ErrInvalid, "redirect target not allowed")
		return
	}
	state := h.stateStore.Create(provider, target)
	authURL, err := h.oauth.GetAuthURL(provider, state)
	if err != nil {
		h.stateStore.Consume(state)
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"url": authURL})
}

func (h *OAuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if state == "" {
		response.Error(c, errcode.ErrInvalid, "invalid oauth state")
		return
	}
	stored, ok := h.stateStore.Consume(state)
	if !ok {
		response.Error(c, errcode.ErrInvalid, "invalid oauth state")
		return
	}
	if stored.Provider != strings.ToLower(c.Param("provider")) {
		h.redirectResult(c, stored, url.Values{"error": {"invalid"}})
		return
	}
	if providerErr := c.Query("error"); providerErr != "" {
		h.redirectResult(c, stored, url.Values{"error": {"denied"}})
		return
	}
	if code == "" {
		h.redirectResult(c, stored, url.Values{"error": {"invalid"}})
		return
	}
	logger := logutil.GetLogger(c.Request.Context()).With(zap.String("provider", stored.Provider))
	profile, err := h.oauth.ExchangeCode(c.Request.Context(), stored.Provider, code)
	if err != nil {
		logger.Error("oauth code exchange failed", zap.Error(err))
		h.redirectResult(c, stored, url.Values{"error": {mapOAuthError(err)}})
		return
	}
	user, token, err := h.oauth.LoginOrCreate(c.Request.Context(), profile)
	if err != nil {
		logger.Error("oauth sign-in failed", zap.Error(err))
		h.redirectResult(c, stored, url.Values{"error": {mapOAuthError(err)}})
		return
	}
	h.redirectResult(c, stored, url.Values{
		"token": {token},
		"email": {user.Email},
	})
}

func (h *OAuthHandler) redirectResult(c *gin.Context, stored oauthState, params url.Values) {
	params.Set("provider", stored.Provider)
	redirect := stored.Target
	if strings.Contains(redirect, "?") {
		redirect += "&" + params.Encode()
	} else {
		redirect += "?" + params.Encode()
	}
	c.Redirect(http.StatusFound, redirect)
}

func mapOAuthError(err error) string {
	switch {
	case errors.Is(err, appErr.ErrConflict):
		return "conflict"
	case errors.Is(err, appErr.ErrInvalid):
		return "invalid"
	case errors.Is(err, appErr.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

type redirectPolicy struct {
	prefixes []string
}

func newRedirectPolicy(prefixes []string) *redirectPolicy {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return &redirectPolicy{prefixes: out}
}

func (p *redirectPolicy) Allowed(target string) bool {
	if target == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" || u.User != nil {
		return false
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		if isLoopbackHost(u.Hostname()) {
			return true
		}
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type oauthState struct {
	Provider  string
	Target    string
	ExpiresAt time.Time
}

type oauthStateStore struct {
	mu    sync.Mutex
	items map[string]oauthState
}

func newOAuthStateStore() *oauthStateStore {
	return &oauthStateStore{items: make(map[string]oauthState)}
}

func (s *oauthStateStore) Create(provider, target string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	state := randomState()
	s.items[state] = oauthState{
		Provider:  provider,
		Target:    target,
		ExpiresAt: time.Now().Add(oauthStateTTL),
	}
	return state
}

func (s *oauthStateStore) Consume(state string) (oauthState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	item, ok := s.items[state]
	if !ok {
		return oauthState{}, false
	}
	delete(s.items, state)
	if time.Now().After(item.ExpiresAt) {
		return oauthState{}, false
	}
	return item, true
}

func (s *oauthStateStore) cleanupLocked() {
	if len(s.items) == 0 {
		return
	}
	now := time.Now()
	for key, item := range s.items {
		if now.After(item.ExpiresAt) {
			delete(s.items, key)
		}
	}
}

func randomState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
