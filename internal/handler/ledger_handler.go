package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpilot/curricula-api/internal/service"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
	"github.com/classpilot/curricula-api/pkg/response"
)

// LedgerHandler exposes the taught-subtopic ledger endpoints.
type LedgerHandler struct {
	ledger *service.LedgerService
}

// NewLedgerHandler constructs handler.
func NewLedgerHandler(ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// List godoc
// @Summary List taught entries for a cohort
// @Tags Ledger
// @Produce json
// @Param id path string true "Cohort ID"
// @Param grade query string false "Filter by grade label"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /cohorts/{id}/ledger [get]
func (h *LedgerHandler) List(c *gin.Context) {
	entries, err := h.ledger.List(c.Request.Context(), c.Param("id"), c.Query("grade"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Mark godoc
// @Summary Mark a subtopic as taught for a cohort
// @Tags Ledger
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.ToggleTaughtRequest true "Ledger tuple"
// @Success 204
// @Security BearerAuth
// @Router /cohorts/{id}/ledger [post]
func (h *LedgerHandler) Mark(c *gin.Context) {
	var req service.ToggleTaughtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.ledger.Mark(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unmark godoc
// @Summary Unmark a previously taught subtopic
// @Tags Ledger
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.ToggleTaughtRequest true "Ledger tuple"
// @Success 204
// @Security BearerAuth
// @Router /cohorts/{id}/ledger [delete]
func (h *LedgerHandler) Unmark(c *gin.Context) {
	var req service.ToggleTaughtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.ledger.Unmark(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
