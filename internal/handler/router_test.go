package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bmark/internal/config"
	"github.com/xxxsen/bmark/internal/handler"
	"github.com/xxxsen/bmark/internal/notify"
	"github.com/xxxsen/bmark/internal/oauth"
	"github.com/xxxsen/bmark/internal/pkg/response"
	"github.com/xxxsen/bmark/internal/repo"
	"github.com/xxxsen/bmark/internal/service"
	"github.com/xxxsen/bmark/internal/testutil"
)

var testSecret = []byte("test-secret")

type fakeProvider struct{}

func (fakeProvider) Name() string { return "github" }

func (fakeProvider) AuthURL(state string) (string, error) {
	return "https://github.example/authorize?state=" + url.QueryEscape(state), nil
}

func (fakeProvider) ExchangeCode(ctx context.Context, code string) (*oauth.Profile, error) {
	return &oauth.Profile{
		Provider:       "github",
		ProviderUserID: "gh-" + code,
		Email:          code + "@example.com",
		Login:          code,
		Name:           "User " + code,
	}, nil
}

type testEnv struct {
	router *gin.Engine
	hub    *notify.Hub
}

func setupRouter(t *testing.T) (*testEnv, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, dialect, cleanup := testutil.OpenTestDB(t)

	users := repo.NewUserRepo(conn, dialect)
	oauths := repo.NewOAuthRepo(conn, dialect)
	bookmarks := repo.NewBookmarkRepo(conn, dialect)
	identities := service.NewIdentityCache(64, time.Minute)
	hub := notify.NewHub(16)

	authService := service.NewAuthService(users, identities, testSecret, time.Hour, true)
	oauthService := service.NewOAuthService(users, oauths, identities, testSecret, time.Hour,
		map[string]oauth.Provider{"github": fakeProvider{}})
	bookmarkService := service.NewBookmarkService(bookmarks, hub)

	deps := handler.RouterDeps{
		Auth:       handler.NewAuthHandler(authService),
		OAuth:      handler.NewOAuthHandler(oauthService, []string{"https://app.example.com/"}),
		Properties: handler.NewPropertiesHandler(config.Properties{EnableGithubOauth: true}, oauthService.Providers(), "https://icons.example"),
		Bookmarks:  handler.NewBookmarkHandler(bookmarkService),
		Realtime:   handler.NewRealtimeHandler(hub, handler.DefaultRealtimeSettings()),
		Export:     handler.NewExportHandler(service.NewExportService(bookmarks)),
		Import:     handler.NewImportHandler(service.NewImportService(bookmarkService), 0),
		AI:         handler.NewAIHandler(service.NewAIService(nil, 0)),
		JWTSecret:  testSecret,
	}
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"), deps)
	return &testEnv{router: router, hub: hub}, func() {
		hub.Close()
		cleanup()
	}
}

func doJSON(t *testing.T, router http.Handler, method, target, token string, body interface{}) *response.Envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	env, err := response.Decode(w.Body.Bytes())
	require.NoError(t, err)
	return env
}

func register(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	env := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret-password",
	})
	require.Equal(t, 0, env.Code, env.Msg)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestProperties(t *testing.T) {
	env, cleanup := setupRouter(t)
	defer cleanup()
	res := doJSON(t, env.router, http.MethodGet, "/api/v1/properties", "", nil)
	require.Equal(t, 0, res.Code)
	var data struct {
		Providers []string `json:"oauth_providers"`
		Tags      []struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"tags"`
		FaviconBase string `json:"favicon_base"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &data))
	require.Equal(t, []string{"github"}, data.Providers)
	require.Len(t, data.Tags, 6)
	require.Equal(t, "Dev", data.Tags[0].Name)
	require.Equal(t, "#3B82F6", data.Tags[0].Color)
	require.Equal(t, "https://icons.example", data.FaviconBase)
}

func TestAIUnavailable(t *testing.T) {
	env, cleanup := setupRouter(t)
	defer cleanup()
	token := register(t, env.router, "ai@example.com")
	res := doJSON(t, env.router, http.MethodPost, "/api/v1/ai/suggest-tag", token, map[string]string{"title": "x", "url": "https://x"})
	require.NotEqual(t, 0, res.Code)
	require.True(t, strings.Contains(res.Msg, "ai"))
}
