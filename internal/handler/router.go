package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/bmark/internal/middleware"
)

type RouterDeps struct {
	Auth       *AuthHandler
	OAuth      *OAuthHandler
	Properties *PropertiesHandler
	Bookmarks  *BookmarkHandler
	Realtime   *RealtimeHandler
	Export     *ExportHandler
	Import     *ImportHandler
	AI         *AIHandler
	JWTSecret  []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/properties", deps.Properties.Get)
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)
	api.GET("/auth/oauth/:provider/url", deps.OAuth.AuthURL)
	api.GET("/auth/oauth/:provider/callback", deps.OAuth.Callback)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/auth/logout", deps.Auth.Logout)
	authGroup.GET("/auth/session", deps.Auth.Session)

	authGroup.GET("/bookmarks", deps.Bookmarks.List)
	authGroup.POST("/bookmarks", deps.Bookmarks.Create)
	authGroup.PUT("/bookmarks/:id", deps.Bookmarks.Update)
	authGroup.DELETE("/bookmarks/:id", deps.Bookmarks.Delete)
	authGroup.GET("/realtime", deps.Realtime.Stream)

	authGroup.GET("/export", deps.Export.Export)
	authGroup.POST("/import", deps.Import.Import)
	if deps.AI != nil {
		authGroup.POST("/ai/suggest-tag", deps.AI.SuggestTag)
	}
}
