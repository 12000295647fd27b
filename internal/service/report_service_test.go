package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpilot/curricula-api/internal/models"
	"github.com/classpilot/curricula-api/internal/repository"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
	"github.com/classpilot/curricula-api/pkg/jobs"
	"github.com/classpilot/curricula-api/pkg/storage"
)

type mockReportStore struct {
	jobsByID map[string]*models.ReportJob
	nextID   int
}

func (m *mockReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	if m.jobsByID == nil {
		m.jobsByID = make(map[string]*models.ReportJob)
	}
	m.nextID++
	job.ID = fmt.Sprintf("job-%d", m.nextID)
	job.CreatedAt = time.Now().UTC()
	stored := *job
	m.jobsByID[job.ID] = &stored
	return nil
}

func (m *mockReportStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if job, ok := m.jobsByID[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := m.jobsByID[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultPath != nil {
		job.ResultPath = params.ResultPath
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func newReportFixture(t *testing.T) (*ReportService, *mockReportStore, *mockDispatcher, *mockRecLedgerRepo) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("report-secret", time.Hour)

	cohorts := &mockRecCohortRepo{
		cohorts: map[string]*models.Cohort{"coh-1": {ID: "coh-1", Name: "Junior"}},
		grades:  map[string][]string{"coh-1": {"7"}},
	}
	catalog := &mockCatalogRepo{byGrade: map[string][]models.SubjectChapters{"7": plantCatalog(t)}}
	ledger := &mockRecLedgerRepo{}
	jobStore := &mockReportStore{}
	queue := &mockDispatcher{}

	svc := NewReportService(jobStore, cohorts, catalog, ledger, queue, store, signer, nil, zap.NewNop())
	return svc, jobStore, queue, ledger
}

func TestReportCreateJobEnqueues(t *testing.T) {
	svc, jobStore, queue, _ := newReportFixture(t)

	job, err := svc.CreateJob(context.Background(), CreateReportRequest{CohortID: "coh-1", Format: models.ReportFormatCSV}, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.Equal(t, "u1", job.CreatedBy)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
	assert.Equal(t, "coverage-report", queue.enqueued[0].Type)
	assert.Len(t, jobStore.jobsByID, 1)
}

func TestReportCreateJobUnknownCohort(t *testing.T) {
	svc, _, _, _ := newReportFixture(t)

	_, err := svc.CreateJob(context.Background(), CreateReportRequest{CohortID: "ghost", Format: models.ReportFormatCSV}, "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	svc, jobStore, queue, _ := newReportFixture(t)
	queue.err = fmt.Errorf("queue stopped")

	_, err := svc.CreateJob(context.Background(), CreateReportRequest{CohortID: "coh-1", Format: models.ReportFormatCSV}, "u1")
	require.Error(t, err)
	require.Len(t, jobStore.jobsByID, 1)
	for _, job := range jobStore.jobsByID {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestReportProcessJobEndToEnd(t *testing.T) {
	svc, jobStore, queue, ledger := newReportFixture(t)
	ledger.entries = []models.TaughtEntry{
		{CohortID: "coh-1", GradeLabel: "7", ChapterID: "ch-plant", Subtopic: "Roots", CreatedAt: time.Now().UTC()},
	}

	job, err := svc.CreateJob(context.Background(), CreateReportRequest{CohortID: "coh-1", Format: models.ReportFormatCSV}, "u1")
	require.NoError(t, err)
	require.NoError(t, svc.ProcessJob(context.Background(), queue.enqueued[0]))

	stored := jobStore.jobsByID[job.ID]
	assert.Equal(t, models.ReportStatusFinished, stored.Status)
	require.NotNil(t, stored.ResultPath)
	require.NotNil(t, stored.FinishedAt)

	status, err := svc.GetStatus(context.Background(), job.ID, "u1", models.RoleTeacher)
	require.NoError(t, err)
	require.NotNil(t, status.DownloadURL)
	assert.Contains(t, *status.DownloadURL, "/api/v1/reports/"+job.ID+"/download?token=")

	token := (*status.DownloadURL)[strings.Index(*status.DownloadURL, "token=")+len("token="):]
	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()

	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	content := string(body)
	assert.Contains(t, content, "Grade,Subject,Chapter,Subtopic,Covered,Covered At")
	assert.Contains(t, content, "Roots,yes")
	assert.Contains(t, content, "Stems,no")
	assert.Equal(t, models.ReportFormatCSV, download.Format)
}

func TestReportGetStatusOwnership(t *testing.T) {
	svc, _, _, _ := newReportFixture(t)

	job, err := svc.CreateJob(context.Background(), CreateReportRequest{CohortID: "coh-1", Format: models.ReportFormatCSV}, "u1")
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), job.ID, "someone-else", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Admins can inspect any job.
	status, err := svc.GetStatus(context.Background(), job.ID, "someone-else", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, status.Status)
	assert.Nil(t, status.DownloadURL)
}

func TestReportResolveDownloadRejectsBadToken(t *testing.T) {
	svc, _, _, _ := newReportFixture(t)

	_, err := svc.ResolveDownload(context.Background(), "garbage")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
