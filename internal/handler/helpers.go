package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/middleware"
	"github.com/xxxsen/bmark/internal/pkg/errcode"
	"github.com/xxxsen/bmark/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserIDKey)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
	)
	code, msg, known := errcode.FromError(err)
	response.Error(c, code, msg)
	if !known {
		logger.Error("request failed", zap.Error(err))
		return
	}
	logger.Debug("request rejected", zap.Error(err))
}
