package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classpilot/curricula-api/internal/models"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
)

type cohortRepository interface {
	List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error)
	FindByID(ctx context.Context, id string) (*models.Cohort, error)
	FindByName(ctx context.Context, name string) (*models.Cohort, error)
	Create(ctx context.Context, cohort *models.Cohort) error
	ListSegments(ctx context.Context, cohortID string) ([]models.ScheduleSegment, error)
	ReplaceSegments(ctx context.Context, cohortID string, segments []models.ScheduleSegment) error
	ListMembers(ctx context.Context, cohortID string) ([]models.Student, error)
	CountMembers(ctx context.Context, cohortID string) (int, error)
	Deactivate(ctx context.Context, id string) error
}

type cohortStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	UpdateCohort(ctx context.Context, id string, cohortID *string) error
}

// SegmentRequest is one schedule segment in a replace payload; order in the
// request body becomes the teaching order.
type SegmentRequest struct {
	GradeLabel   string `json:"grade_label" validate:"required"`
	PlannedWeeks int    `json:"planned_weeks" validate:"min=1"`
}

// ReplaceSegmentsRequest swaps the cohort's whole schedule.
type ReplaceSegmentsRequest struct {
	Segments []SegmentRequest `json:"segments" validate:"dive"`
}

// AssignStudentRequest adds a student to the cohort.
type AssignStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// CreateCohortRequest opens a new cohort. Placement resolves cohorts by name,
// so names are unique.
type CreateCohortRequest struct {
	Name      string  `json:"name" validate:"required"`
	TeacherID *string `json:"teacher_id,omitempty"`
}

// CohortService handles cohort reads, schedule edits and membership.
type CohortService struct {
	repo      cohortRepository
	students  cohortStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCohortService constructs the cohort service.
func NewCohortService(repo cohortRepository, students cohortStudentRepository, validate *validator.Validate, logger *zap.Logger) *CohortService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CohortService{repo: repo, students: students, validator: validate, logger: logger}
}

// List returns cohorts and pagination metadata.
func (s *CohortService) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, *models.Pagination, error) {
	cohorts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohorts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return cohorts, pagination, nil
}

// Create opens a new cohort, rejecting duplicate names.
func (s *CohortService) Create(ctx context.Context, req CreateCohortRequest) (*models.Cohort, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort payload")
	}

	if _, err := s.repo.FindByName(ctx, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cohort name already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check cohort name")
	}

	cohort := &models.Cohort{Name: req.Name, TeacherID: req.TeacherID, Active: true}
	if err := s.repo.Create(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cohort")
	}
	s.logger.Info("cohort created", zap.String("cohort_id", cohort.ID), zap.String("name", cohort.Name))
	return cohort, nil
}

// Get returns the cohort with its ordered segments and member students.
func (s *CohortService) Get(ctx context.Context, id string) (*models.CohortDetail, error) {
	cohort, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	segments, err := s.repo.ListSegments(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule segments")
	}
	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort members")
	}

	return &models.CohortDetail{Cohort: *cohort, Segments: segments, Members: members}, nil
}

// ReplaceSegments swaps the cohort's schedule with the ordered payload.
func (s *CohortService) ReplaceSegments(ctx context.Context, id string, req ReplaceSegmentsRequest) ([]models.ScheduleSegment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid segments payload")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	segments := make([]models.ScheduleSegment, len(req.Segments))
	for i, segment := range req.Segments {
		segments[i] = models.ScheduleSegment{
			CohortID:     id,
			GradeLabel:   segment.GradeLabel,
			PlannedWeeks: segment.PlannedWeeks,
			Rank:         i,
		}
	}
	if err := s.repo.ReplaceSegments(ctx, id, segments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace segments")
	}

	saved, err := s.repo.ListSegments(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload segments")
	}
	return saved, nil
}

// AssignStudent moves a student into the cohort.
func (s *CohortService) AssignStudent(ctx context.Context, cohortID string, req AssignStudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if _, err := s.repo.FindByID(ctx, cohortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.students.UpdateCohort(ctx, req.StudentID, &cohortID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign student")
	}
	return nil
}

// RemoveStudent clears the student's cohort reference.
func (s *CohortService) RemoveStudent(ctx context.Context, cohortID, studentID string) error {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.CohortID == nil || *student.CohortID != cohortID {
		return appErrors.Clone(appErrors.ErrNotFound, "student is not a member of this cohort")
	}
	if err := s.students.UpdateCohort(ctx, studentID, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student")
	}
	return nil
}

// Deactivate marks an empty cohort inactive. Cohorts with members stay live.
func (s *CohortService) Deactivate(ctx context.Context, id string) error {
	count, err := s.repo.CountMembers(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count members")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "cohort still has members")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate cohort")
	}
	return nil
}
