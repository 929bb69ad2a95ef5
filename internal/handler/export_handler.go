package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/bmark/internal/service"
)

type ExportHandler struct {
	export *service.ExportService
}

func NewExportHandler(export *service.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

func (h *ExportHandler) Export(c *gin.Context) {
	file, err := h.export.Export(c.Request.Context(), getUserID(c), c.Query("format"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(200, file.ContentType, file.Data)
}
