package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classpilot/curricula-api/internal/models"
	"github.com/classpilot/curricula-api/internal/service"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
	"github.com/classpilot/curricula-api/pkg/response"
)

// CohortHandler exposes cohort, schedule and membership endpoints.
type CohortHandler struct {
	cohorts *service.CohortService
}

// NewCohortHandler constructs handler.
func NewCohortHandler(cohorts *service.CohortService) *CohortHandler {
	return &CohortHandler{cohorts: cohorts}
}

// List godoc
// @Summary List cohorts
// @Tags Cohorts
// @Produce json
// @Param search query string false "Name search"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cohorts [get]
func (h *CohortHandler) List(c *gin.Context) {
	filter := models.CohortFilter{Search: c.Query("search")}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	cohorts, pagination, err := h.cohorts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohorts, pagination)
}

// Create godoc
// @Summary Create a cohort
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param payload body service.CreateCohortRequest true "Cohort payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /cohorts [post]
func (h *CohortHandler) Create(c *gin.Context) {
	var req service.CreateCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cohort, err := h.cohorts.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cohort)
}

// Get godoc
// @Summary Fetch a cohort with schedule segments and members
// @Tags Cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cohorts/{id} [get]
func (h *CohortHandler) Get(c *gin.Context) {
	detail, err := h.cohorts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ReplaceSegments godoc
// @Summary Replace the cohort's ordered teaching schedule
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.ReplaceSegmentsRequest true "Segments payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cohorts/{id}/segments [put]
func (h *CohortHandler) ReplaceSegments(c *gin.Context) {
	var req service.ReplaceSegmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	segments, err := h.cohorts.ReplaceSegments(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, segments, nil)
}

// AssignStudent godoc
// @Summary Assign a student to the cohort
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.AssignStudentRequest true "Assignment payload"
// @Success 204
// @Security BearerAuth
// @Router /cohorts/{id}/students [post]
func (h *CohortHandler) AssignStudent(c *gin.Context) {
	var req service.AssignStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.cohorts.AssignStudent(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveStudent godoc
// @Summary Remove a student from the cohort
// @Tags Cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Security BearerAuth
// @Router /cohorts/{id}/students/{studentId} [delete]
func (h *CohortHandler) RemoveStudent(c *gin.Context) {
	if err := h.cohorts.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Deactivate godoc
// @Summary Deactivate an empty cohort
// @Tags Cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 204
// @Security BearerAuth
// @Router /cohorts/{id} [delete]
func (h *CohortHandler) Deactivate(c *gin.Context) {
	if err := h.cohorts.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
