package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpilot/curricula-api/internal/models"
	"github.com/classpilot/curricula-api/internal/service"
	"github.com/classpilot/curricula-api/pkg/response"
)

type ledgerRepoStub struct {
	entries map[string]models.TaughtEntry
}

func stubKey(cohortID, gradeLabel, chapterID, subtopic string) string {
	return cohortID + "|" + gradeLabel + "|" + chapterID + "|" + subtopic
}

func (m *ledgerRepoStub) Mark(ctx context.Context, entry *models.TaughtEntry) error {
	if m.entries == nil {
		m.entries = make(map[string]models.TaughtEntry)
	}
	m.entries[stubKey(entry.CohortID, entry.GradeLabel, entry.ChapterID, entry.Subtopic)] = *entry
	return nil
}

func (m *ledgerRepoStub) Unmark(ctx context.Context, cohortID, gradeLabel, chapterID, subtopic string) error {
	delete(m.entries, stubKey(cohortID, gradeLabel, chapterID, subtopic))
	return nil
}

func (m *ledgerRepoStub) Exists(ctx context.Context, cohortID, gradeLabel, chapterID, subtopic string) (bool, error) {
	_, ok := m.entries[stubKey(cohortID, gradeLabel, chapterID, subtopic)]
	return ok, nil
}

func (m *ledgerRepoStub) ListByCohort(ctx context.Context, cohortID string, gradeLabel string) ([]models.TaughtEntry, error) {
	var list []models.TaughtEntry
	for _, entry := range m.entries {
		if entry.CohortID == cohortID {
			list = append(list, entry)
		}
	}
	return list, nil
}

type cohortRepoStub struct {
	cohorts map[string]*models.Cohort
}

func (m *cohortRepoStub) FindByID(ctx context.Context, id string) (*models.Cohort, error) {
	if c, ok := m.cohorts[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func newLedgerHandler(repo *ledgerRepoStub) *LedgerHandler {
	cohorts := &cohortRepoStub{cohorts: map[string]*models.Cohort{"coh-1": {ID: "coh-1", Name: "Junior"}}}
	svc := service.NewLedgerService(repo, cohorts, validator.New(), zap.NewNop())
	return NewLedgerHandler(svc)
}

func TestLedgerHandlerMark(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &ledgerRepoStub{}
	handler := newLedgerHandler(repo)

	payload, _ := json.Marshal(service.ToggleTaughtRequest{GradeLabel: "7", ChapterID: "ch-1", Subtopic: "Roots"})
	c, w := newGinContext(http.MethodPost, "/cohorts/coh-1/ledger", payload)
	c.Params = gin.Params{{Key: "id", Value: "coh-1"}}

	handler.Mark(c)
	// gin defers writing the status until a body is written; flush it so the
	// recorder sees the 204 set by response.NoContent.
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, repo.entries, 1)
}

func TestLedgerHandlerMarkUnknownCohort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newLedgerHandler(&ledgerRepoStub{})

	payload, _ := json.Marshal(service.ToggleTaughtRequest{GradeLabel: "7", ChapterID: "ch-1", Subtopic: "Roots"})
	c, w := newGinContext(http.MethodPost, "/cohorts/ghost/ledger", payload)
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.Mark(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLedgerHandlerMarkBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newLedgerHandler(&ledgerRepoStub{})

	c, w := newGinContext(http.MethodPost, "/cohorts/coh-1/ledger", []byte("{not json"))
	c.Params = gin.Params{{Key: "id", Value: "coh-1"}}

	handler.Mark(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &ledgerRepoStub{}
	handler := newLedgerHandler(repo)
	require.NoError(t, repo.Mark(context.Background(), &models.TaughtEntry{CohortID: "coh-1", GradeLabel: "7", ChapterID: "ch-1", Subtopic: "Roots"}))

	c, w := newGinContext(http.MethodGet, "/cohorts/coh-1/ledger", nil)
	c.Params = gin.Params{{Key: "id", Value: "coh-1"}}

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotNil(t, envelope.Data)
}
