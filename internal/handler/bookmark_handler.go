package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/bmark/internal/pkg/errcode"
	"github.com/xxxsen/bmark/internal/pkg/response"
	"github.com/xxxsen/bmark/internal/service"
)

type BookmarkHandler struct {
	bookmarks *service.BookmarkService
}

func NewBookmarkHandler(bookmarks *service.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks}
}

type bookmarkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Note  string `json:"note"`
	Tag   string `json:"tag"`
}

func (r bookmarkRequest) input() service.BookmarkInput {
	return service.BookmarkInput{Title: r.Title, URL: r.URL, Note: r.Note, Tag: r.Tag}
}

func (h *BookmarkHandler) List(c *gin.Context) {
	items, err := h.bookmarks.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"bookmarks": items})
}

func (h *BookmarkHandler) Create(c *gin.Context) {
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	item, err := h.bookmarks.Create(c.Request.Context(), getUserID(c), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"bookmark": item})
}

func (h *BookmarkHandler) Update(c *gin.Context) {
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	item, err := h.bookmarks.Update(c.Request.Context(), getUserID(c), c.Param("id"), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"bookmark": item})
}

func (h *BookmarkHandler) Delete(c *gin.Context) {
	if err := h.bookmarks.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
