package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/bmark/internal/pkg/errcode"
	"github.com/xxxsen/bmark/internal/pkg/response"
	"github.com/xxxsen/bmark/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *authRequest) valid() bool {
	r.Email = strings.TrimSpace(r.Email)
	return r.Email != "" && r.Password != ""
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	user, token, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user.Identity(), "token": token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user.Identity(), "token": token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context(), getUserID(c))
	response.Success(c, gin.H{"ok": true})
}

func (h *AuthHandler) Session(c *gin.Context) {
	user, err := h.auth.Session(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user.Identity()})
}
