package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/bmark/internal/pkg/errcode"
	"github.com/xxxsen/bmark/internal/pkg/response"
	"github.com/xxxsen/bmark/internal/service"
)

type AIHandler struct {
	ai *service.AIService
}

func NewAIHandler(ai *service.AIService) *AIHandler {
	return &AIHandler{ai: ai}
}

type suggestTagRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Note  string `json:"note"`
}

func (h *AIHandler) SuggestTag(c *gin.Context) {
	var req suggestTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	tag, err := h.ai.SuggestTag(c.Request.Context(), req.Title, req.URL, req.Note)
	if err != nil {
		if errors.Is(err, service.ErrAIUnavailable) {
			response.Error(c, errcode.ErrAIUnavailable, "ai not configured")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"tag": tag, "color": tag.Color()})
}
