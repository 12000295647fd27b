package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpilot/curricula-api/internal/service"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
	"github.com/classpilot/curricula-api/pkg/response"
)

// StudentHandler exposes student registration, reads and progress endpoints.
type StudentHandler struct {
	students *service.StudentService
	progress *service.ProgressService
}

// NewStudentHandler constructs handler.
func NewStudentHandler(students *service.StudentService, progress *service.ProgressService) *StudentHandler {
	return &StudentHandler{students: students, progress: progress}
}

// Register godoc
// @Summary Register a student and place them into a cohort
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.RegisterStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope "no cohort exists for the resolved band"
// @Router /students/register [post]
func (h *StudentHandler) Register(c *gin.Context) {
	var req service.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Get godoc
// @Summary Fetch a student with cohort context
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Progress godoc
// @Summary Aggregate a student's chapter progress and best quiz scores
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/progress [get]
func (h *StudentHandler) Progress(c *gin.Context) {
	overview, err := h.progress.Overview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// RecordQuizResult godoc
// @Summary Record a quiz score for a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.RecordQuizResultRequest true "Quiz result payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/quiz-results [post]
func (h *StudentHandler) RecordQuizResult(c *gin.Context) {
	var req service.RecordQuizResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.progress.RecordQuizResult(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// SetChapterProgress godoc
// @Summary Set a student's explicit chapter progress status
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param chapterId path string true "Chapter ID"
// @Param payload body service.SetChapterProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/chapters/{chapterId}/progress [put]
func (h *StudentHandler) SetChapterProgress(c *gin.Context) {
	var req service.SetChapterProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	progress, err := h.progress.SetChapterProgress(c.Request.Context(), c.Param("id"), c.Param("chapterId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}
