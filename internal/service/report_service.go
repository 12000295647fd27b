package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/classpilot/curricula-api/internal/models"
	"github.com/classpilot/curricula-api/internal/repository"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
	"github.com/classpilot/curricula-api/pkg/export"
	"github.com/classpilot/curricula-api/pkg/jobs"
	"github.com/classpilot/curricula-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
}

type reportCohortRepository interface {
	FindByID(ctx context.Context, id string) (*models.Cohort, error)
	ListSegments(ctx context.Context, cohortID string) ([]models.ScheduleSegment, error)
	MemberGradeLabels(ctx context.Context, cohortID string) ([]string, error)
}

type reportCatalogRepository interface {
	ListSubjectsWithChapters(ctx context.Context, gradeLabel string) ([]models.SubjectChapters, error)
}

type reportLedgerRepository interface {
	ListByCohort(ctx context.Context, cohortID string, gradeLabel string) ([]models.TaughtEntry, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// CreateReportRequest asks for a coverage export for one cohort.
type CreateReportRequest struct {
	CohortID string              `json:"cohort_id" validate:"required"`
	Format   models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ReportStatusResponse exposes job state to clients.
type ReportStatusResponse struct {
	ID          string              `json:"id"`
	Status      models.ReportStatus `json:"status"`
	DownloadURL *string             `json:"download_url,omitempty"`
	Error       *string             `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService orchestrates coverage report jobs: a report walks the catalog
// for each of the cohort's relevant grades and marks every subtopic covered or
// outstanding, then renders the table to CSV or PDF on a background worker.
type ReportService struct {
	repo    reportJobStore
	cohorts reportCohortRepository
	catalog reportCatalogRepository
	ledger  reportLedgerRepository
	queue   jobDispatcher
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	metrics *MetricsService
	logger  *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, cohorts reportCohortRepository, catalog reportCatalogRepository, ledger reportLedgerRepository, queue jobDispatcher, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:    repo,
		cohorts: cohorts,
		catalog: catalog,
		ledger:  ledger,
		queue:   queue,
		store:   store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		metrics: metrics,
		logger:  logger,
	}
}

// CreateJob validates the request, persists the job, and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, req CreateReportRequest, actorID string) (*models.ReportJob, error) {
	if req.CohortID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cohort_id is required")
	}
	if req.Format != models.ReportFormatCSV && req.Format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if _, err := s.cohorts.FindByID(ctx, req.CohortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	job := &models.ReportJob{
		Params:    models.ReportJobParams{CohortID: req.CohortID, Format: req.Format},
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "coverage-report"}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// GetStatus exposes job metadata, enforcing ownership for non-admin actors.
// A finished job gets a freshly signed download URL on every status read.
func (s *ReportService) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if role != models.RoleAdmin && job.CreatedBy != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report belongs to another user")
	}

	resp := &ReportStatusResponse{
		ID:         job.ID,
		Status:     job.Status,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
		Error:      job.ErrorMessage,
	}
	if job.Status == models.ReportStatusFinished && job.ResultPath != nil {
		token, _, err := s.signer.Generate(job.ID, *job.ResultPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
		}
		url := "/api/v1/reports/" + job.ID + "/download?token=" + token
		resp.DownloadURL = &url
	}
	return resp, nil
}

// ResolveDownload validates a signed token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.Status != models.ReportStatusFinished || job.ResultPath == nil || *job.ResultPath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// ProcessJob is the queue handler. It renders the coverage table and stores
// the result, or records a failure on the job row.
func (s *ReportService) ProcessJob(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", job.ID, err)
	}
	processing := models.ReportStatusProcessing
	if err := s.repo.Update(ctx, record.ID, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		return fmt.Errorf("mark report job processing: %w", err)
	}

	relPath, err := s.generate(ctx, record)
	now := time.Now().UTC()
	if err != nil {
		s.logger.Error("coverage report generation failed", zap.String("job_id", record.ID), zap.Error(err))
		status := models.ReportStatusFailed
		msg := err.Error()
		_ = s.repo.Update(ctx, record.ID, repository.UpdateReportJobParams{
			Status:       &status,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		if s.metrics != nil {
			s.metrics.ObserveReportFinished(string(status))
		}
		return err
	}

	status := models.ReportStatusFinished
	if err := s.repo.Update(ctx, record.ID, repository.UpdateReportJobParams{
		Status:     &status,
		ResultPath: &relPath,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark report job finished: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveReportFinished(string(status))
	}
	s.logger.Info("coverage report ready", zap.String("job_id", record.ID), zap.String("path", relPath))
	return nil
}

func (s *ReportService) generate(ctx context.Context, job *models.ReportJob) (string, error) {
	cohort, err := s.cohorts.FindByID(ctx, job.Params.CohortID)
	if err != nil {
		return "", fmt.Errorf("load cohort: %w", err)
	}

	grades, err := s.relevantGrades(ctx, cohort.ID)
	if err != nil {
		return "", err
	}

	table := export.Table{
		Title:   fmt.Sprintf("Coverage Report - %s", cohort.Name),
		Columns: []string{"Grade", "Subject", "Chapter", "Subtopic", "Covered", "Covered At"},
	}
	for _, grade := range grades {
		rows, err := s.gradeRows(ctx, cohort.ID, grade)
		if err != nil {
			return "", err
		}
		table.Rows = append(table.Rows, rows...)
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(table)
	default:
		payload, err = s.csv.Render(table)
	}
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	filename := fmt.Sprintf("coverage-%s-%s.%s", cohort.ID, time.Now().UTC().Format("20060102T150405"), job.Params.Format)
	if _, err := s.store.Save(filename, payload); err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}
	return filename, nil
}

// relevantGrades mirrors recommendation grade resolution: schedule segments
// first, member grade labels as the fallback.
func (s *ReportService) relevantGrades(ctx context.Context, cohortID string) ([]string, error) {
	segments, err := s.cohorts.ListSegments(ctx, cohortID)
	if err != nil {
		return nil, fmt.Errorf("load schedule segments: %w", err)
	}
	if len(segments) > 0 {
		seen := make(map[string]struct{}, len(segments))
		grades := make([]string, 0, len(segments))
		for _, segment := range segments {
			if _, ok := seen[segment.GradeLabel]; ok {
				continue
			}
			seen[segment.GradeLabel] = struct{}{}
			grades = append(grades, segment.GradeLabel)
		}
		return grades, nil
	}
	labels, err := s.cohorts.MemberGradeLabels(ctx, cohortID)
	if err != nil {
		return nil, fmt.Errorf("load member grades: %w", err)
	}
	return labels, nil
}

func (s *ReportService) gradeRows(ctx context.Context, cohortID, gradeLabel string) ([][]string, error) {
	subjects, err := s.catalog.ListSubjectsWithChapters(ctx, gradeLabel)
	if err != nil {
		return nil, fmt.Errorf("load catalog for %s: %w", gradeLabel, err)
	}
	entries, err := s.ledger.ListByCohort(ctx, cohortID, gradeLabel)
	if err != nil {
		return nil, fmt.Errorf("load ledger for %s: %w", gradeLabel, err)
	}
	taughtAt := make(map[string]time.Time, len(entries))
	for _, entry := range entries {
		taughtAt[entry.ChapterID+"\x00"+entry.Subtopic] = entry.CreatedAt
	}

	rows := make([][]string, 0)
	for _, subject := range subjects {
		for _, chapter := range subject.Chapters {
			subtopics, err := chapter.Subtopics()
			if err != nil {
				s.logger.Warn("skipping chapter with malformed subtopic list",
					zap.String("chapter_id", chapter.ID),
					zap.String("grade_label", gradeLabel),
					zap.Error(err),
				)
				continue
			}
			for _, subtopic := range subtopics {
				row := []string{gradeLabel, subject.Subject.Name, chapter.Title, subtopic, "no", ""}
				if ts, ok := taughtAt[chapter.ID+"\x00"+subtopic]; ok {
					row[4] = "yes"
					row[5] = ts.UTC().Format(time.RFC3339)
				}
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}
