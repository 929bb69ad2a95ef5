package handler

import (
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/bmark/internal/pkg/errcode"
	"github.com/xxxsen/bmark/internal/pkg/response"
	"github.com/xxxsen/bmark/internal/service"
)

const defaultMaxImportSize = 10 * 1024 * 1024

type ImportHandler struct {
	imports       *service.ImportService
	maxUploadSize int64
}

func NewImportHandler(imports *service.ImportService, maxUploadSize int64) *ImportHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxImportSize
	}
	return &ImportHandler{imports: imports, maxUploadSize: maxUploadSize}
}

// Import accepts a Netscape bookmark file either as the multipart field
// "file" or as the raw request body.
func (h *ImportHandler) Import(c *gin.Context) {
	var reader io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			response.Error(c, errcode.ErrImportFormat, "file is required")
			return
		}
		if file.Size > h.maxUploadSize {
			response.Error(c, errcode.ErrImportFormat, "file too large (max "+formatUploadLimit(h.maxUploadSize)+")")
			return
		}
		opened, err := file.Open()
		if err != nil {
			response.Error(c, errcode.ErrImportFormat, "failed to open file")
			return
		}
		defer opened.Close()
		reader = opened
	} else {
		if c.Request.ContentLength > h.maxUploadSize {
			response.Error(c, errcode.ErrImportFormat, "file too large (max "+formatUploadLimit(h.maxUploadSize)+")")
			return
		}
		reader = io.LimitReader(c.Request.Body, h.maxUploadSize)
	}
	result, err := h.imports.ImportNetscape(c.Request.Context(), getUserID(c), reader)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func formatUploadLimit(bytes int64) string {
	const mb = 1024 * 1024
	if bytes <= 0 {
		return "0MB"
	}
	value := bytes / mb
	if value <= 0 {
		value = 1
	}
	return strconv.FormatInt(value, 10) + "MB"
}
