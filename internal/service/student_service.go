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

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateSkillLevel(ctx context.Context, id string, level models.SkillLevel) error
}

type placementCohortRepository interface {
	FindByName(ctx context.Context, name string) (*models.Cohort, error)
}

// RegisterStudentRequest holds the registration payload. Placement consumes
// the age and entrance score; the grade label seeds the member-grade fallback
// for recommendations.
type RegisterStudentRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Age           int    `json:"age" validate:"required,min=1"`
	EntranceScore int    `json:"entrance_score" validate:"min=0,max=100"`
	GradeLabel    string `json:"grade_label" validate:"required"`
}

// StudentService handles registration and student reads.
type StudentService struct {
	repo      studentRepository
	cohorts   placementCohortRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, cohorts placementCohortRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cohorts: cohorts, validator: validate, logger: logger}
}

// Register creates a student and places them into the band cohort resolved
// from age and entrance score. Placement never creates cohorts: a missing band
// cohort is a seed-data problem surfaced as PLACEMENT_TARGET_MISSING.
func (s *StudentService) Register(ctx context.Context, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	band := ResolvePlacementBand(req.Age, req.EntranceScore)
	cohort, err := s.cohorts.FindByName(ctx, band)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPlacementTargetMissing, "no cohort named "+band+" exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve placement cohort")
	}

	student := &models.Student{
		FullName:      req.FullName,
		Email:         req.Email,
		Age:           req.Age,
		EntranceScore: req.EntranceScore,
		SkillLevel:    DeriveSkillLevel(req.EntranceScore),
		GradeLabel:    req.GradeLabel,
		CohortID:      &cohort.ID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.logger.Info("student placed",
		zap.String("student_id", student.ID),
		zap.String("band", band),
		zap.String("cohort_id", cohort.ID),
	)
	return student, nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
