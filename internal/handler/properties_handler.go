package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/bmark/internal/config"
	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/pkg/response"
)

type PropertiesHandler struct {
	properties  config.Properties
	providers   []string
	faviconBase string
}

func NewPropertiesHandler(properties config.Properties, providers []string, faviconBase string) *PropertiesHandler {
	return &PropertiesHandler{properties: properties, providers: providers, faviconBase: faviconBase}
}

func (h *PropertiesHandler) Get(c *gin.Context) {
	providers := h.providers
	if providers == nil {
		providers = []string{}
	}
	response.Success(c, gin.H{
		"properties":      h.properties,
		"oauth_providers": providers,
		"tags":            model.TagPalette(),
		"favicon_base":    h.faviconBase,
	})
}
