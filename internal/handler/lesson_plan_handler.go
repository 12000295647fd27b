package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classpilot/curricula-api/internal/service"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
	"github.com/classpilot/curricula-api/pkg/response"
)

// LessonPlanHandler exposes daily plan and scheduling endpoints.
type LessonPlanHandler struct {
	plans *service.LessonPlanService
}

// NewLessonPlanHandler constructs handler.
func NewLessonPlanHandler(plans *service.LessonPlanService) *LessonPlanHandler {
	return &LessonPlanHandler{plans: plans}
}

type toggleCompletionRequest struct {
	Completed bool `json:"completed"`
}

// DailyPlan godoc
// @Summary Build the daily plan: today's sessions, carried-forward backlog, fresh recommendations
// @Tags LessonPlans
// @Produce json
// @Param id path string true "Cohort ID"
// @Param date query string false "Plan date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cohorts/{id}/daily-plan [get]
func (h *LessonPlanHandler) DailyPlan(c *gin.Context) {
	day := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	plan, err := h.plans.DailyPlan(c.Request.Context(), c.Param("id"), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// ScheduleManual godoc
// @Summary Schedule a manual lesson session
// @Tags LessonPlans
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.ScheduleManualRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /cohorts/{id}/lesson-plans [post]
func (h *LessonPlanHandler) ScheduleManual(c *gin.Context) {
	var req service.ScheduleManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	plan, err := h.plans.ScheduleManual(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// ScheduleFromRecommendation godoc
// @Summary Schedule a session from a recommendation payload
// @Tags LessonPlans
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.ScheduleRecommendationRequest true "Recommendation payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /cohorts/{id}/lesson-plans/from-recommendation [post]
func (h *LessonPlanHandler) ScheduleFromRecommendation(c *gin.Context) {
	var req service.ScheduleRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	plan, err := h.plans.ScheduleFromRecommendation(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// ToggleCompletion godoc
// @Summary Set the completion state of a lesson session
// @Tags LessonPlans
// @Accept json
// @Produce json
// @Param id path string true "Lesson plan ID"
// @Param payload body handler.toggleCompletionRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lesson-plans/{id}/completion [patch]
func (h *LessonPlanHandler) ToggleCompletion(c *gin.Context) {
	var req toggleCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	plan, err := h.plans.ToggleCompletion(c.Request.Context(), c.Param("id"), req.Completed)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}
