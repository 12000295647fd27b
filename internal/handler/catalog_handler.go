package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpilot/curricula-api/internal/service"
	"github.com/classpilot/curricula-api/pkg/response"
)

// CatalogHandler exposes read-only curriculum browsing.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Tree godoc
// @Summary Fetch the subject/chapter/subtopic tree for a grade
// @Tags Catalog
// @Produce json
// @Param grade path string true "Grade label"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /catalog/{grade} [get]
func (h *CatalogHandler) Tree(c *gin.Context) {
	tree, err := h.catalog.Tree(c.Request.Context(), c.Param("grade"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tree, nil)
}
