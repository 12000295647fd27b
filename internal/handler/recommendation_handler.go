package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpilot/curricula-api/internal/service"
	"github.com/classpilot/curricula-api/pkg/response"
)

// RecommendationHandler exposes the teaching frontier endpoint.
type RecommendationHandler struct {
	recommendations *service.RecommendationService
}

// NewRecommendationHandler constructs handler.
func NewRecommendationHandler(recommendations *service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendations: recommendations}
}

// NextTopics godoc
// @Summary Recommend the next untaught subtopic per grade and subject
// @Tags Recommendations
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cohorts/{id}/recommendations [get]
func (h *RecommendationHandler) NextTopics(c *gin.Context) {
	recommendations, err := h.recommendations.NextTopics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, recommendations, nil)
}
