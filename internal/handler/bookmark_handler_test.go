package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/pkg/errcode"
	"github.com/xxxsen/bmark/internal/pkg/jwt"
)

type bookmarkData struct {
	Bookmark model.Bookmark `json:"bookmark"`
}

type listData struct {
	Bookmarks []model.Bookmark `json:"bookmarks"`
}

func TestBookmarkHandlers(t *testing.T) {
	env, cleanup := setupRouter(t)
	defer cleanup()
	token := register(t, env.router, "owner@example.com")
	other := register(t, env.router, "other@example.com")

	invalid := doJSON(t, env.router, http.MethodPost, "/api/v1/bookmarks", token, map[string]string{"title": " ", "url": "https://a"})
	require.Equal(t, errcode.ErrInvalid, invalid.Code)
	badTag := doJSON(t, env.router, http.MethodPost, "/api/v1/bookmarks", token, map[string]string{"title": "A", "url": "https://a", "tag": "Games"})
	require.Equal(t, errcode.ErrInvalid, badTag.Code)

	created := doJSON(t, env.router, http.MethodPost, "/api/v1/bookmarks", token, map[string]string{
		"title": " Go ", "url": "https://go.dev", "note": "docs", "tag": "dev",
	})
	require.Equal(t, 0, created.Code, created.Msg)
	var item bookmarkData
	require.NoError(t, json.Unmarshal(created.Data, &item))
	require.Equal(t, "Go", item.Bookmark.Title)
	require.Equal(t, model.TagDev, item.Bookmark.Tag)
	require.NotEmpty(t, item.Bookmark.ID)

	list := doJSON(t, env.router, http.MethodGet, "/api/v1/bookmarks", token, nil)
	var items listData
	require.NoError(t, json.Unmarshal(list.Data, &items))
	require.Len(t, items.Bookmarks, 1)

	otherList := doJSON(t, env.router, http.MethodGet, "/api/v1/bookmarks", other, nil)
	require.NoError(t, json.Unmarshal(otherList.Data, &items))
	require.Empty(t, items.Bookmarks)

	foreign := doJSON(t, env.router, http.MethodPut, "/api/v1/bookmarks/"+item.Bookmark.ID, other, map[string]string{"title": "x", "url": "https://x"})
	require.Equal(t, errcode.ErrNotFound, foreign.Code)

	updated := doJSON(t, env.router, http.MethodPut, "/api/v1/bookmarks/"+item.Bookmark.ID, token, map[string]string{
		"title": "Go Dev", "url": "https://go.dev", "tag": "Reading",
	})
	require.Equal(t, 0, updated.Code)
	require.NoError(t, json.Unmarshal(updated.Data, &item))
	require.Equal(t, "Go Dev", item.Bookmark.Title)
	require.Equal(t, model.TagReading, item.Bookmark.Tag)

	foreignDelete := doJSON(t, env.router, http.MethodDelete, "/api/v1/bookmarks/"+item.Bookmark.ID, other, nil)
	require.Equal(t, errcode.ErrNotFound, foreignDelete.Code)

	deleted := doJSON(t, env.router, http.MethodDelete, "/api/v1/bookmarks/"+item.Bookmark.ID, token, nil)
	require.Equal(t, 0, deleted.Code)
	again := doJSON(t, env.router, http.MethodDelete, "/api/v1/bookmarks/"+item.Bookmark.ID, token, nil)
	require.Equal(t, errcode.ErrNotFound, again.Code)

	list = doJSON(t, env.router, http.MethodGet, "/api/v1/bookmarks", token, nil)
	require.NoError(t, json.Unmarshal(list.Data, &items))
	require.Empty(t, items.Bookmarks)
}

func TestRealtimeStream(t *testing.T) {
	env, cleanup := setupRouter(t)
	defer cleanup()
	token := register(t, env.router, "live@example.com")
	other := register(t, env.router, "quiet@example.com")
	claims, err := jwt.ParseToken(token, testSecret)
	require.NoError(t, err)

	srv := httptest.NewServer(env.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/realtime?kinds=insert,delete&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.SubscriberCount(claims.UserID()) == 1 }, 2*time.Second, 10*time.Millisecond)

	doJSON(t, env.router, http.MethodPost, "/api/v1/bookmarks", other, map[string]string{"title": "Other", "url": "https://other"})
	created := doJSON(t, env.router, http.MethodPost, "/api/v1/bookmarks", token, map[string]string{"title": "Mine", "url": "https://mine"})
	var item bookmarkData
	require.NoError(t, json.Unmarshal(created.Data, &item))
	doJSON(t, env.router, http.MethodPut, "/api/v1/bookmarks/"+item.Bookmark.ID, token, map[string]string{"title": "Mine 2", "url": "https://mine"})
	doJSON(t, env.router, http.MethodDelete, "/api/v1/bookmarks/"+item.Bookmark.ID, token, nil)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt model.ChangeEvent
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, model.EventInsert, evt.Kind)
	require.Equal(t, "Mine", evt.Record.Title)
	require.Equal(t, claims.UserID(), evt.UserID)

	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, model.EventDelete, evt.Kind)
	require.Equal(t, item.Bookmark.ID, evt.Record.ID)
}

func TestRealtimeRejectsBadKinds(t *testing.T) {
	env, cleanup := setupRouter(t)
	defer cleanup()
	token := register(t, env.router, "kinds@example.com")
	res := doJSON(t, env.router, http.MethodGet, "/api/v1/realtime?kinds=truncate", token, nil)
	require.Equal(t, errcode.ErrInvalid, res.Code)
}
