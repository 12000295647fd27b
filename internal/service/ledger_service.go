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

type ledgerRepository interface {
	Mark(ctx context.Context, entry *models.TaughtEntry) error
	Unmark(ctx context.Context, cohortID, gradeLabel, chapterID, subtopic string) error
	Exists(ctx context.Context, cohortID, gradeLabel, chapterID, subtopic string) (bool, error)
	ListByCohort(ctx context.Context, cohortID string, gradeLabel string) ([]models.TaughtEntry, error)
}

type ledgerCohortRepository interface {
	FindByID(ctx context.Context, id string) (*models.Cohort, error)
}

// ToggleTaughtRequest identifies one ledger tuple.
type ToggleTaughtRequest struct {
	GradeLabel string `json:"grade_label" validate:"required"`
	ChapterID  string `json:"chapter_id" validate:"required"`
	Subtopic   string `json:"subtopic" validate:"required"`
}

// LedgerService owns the taught-subtopic ledger. Both mutators are idempotent:
// marking an existing tuple and unmarking an absent one are no-ops, which is
// what lets concurrent completion write-throughs land safely.
type LedgerService struct {
	repo      ledgerRepository
	cohorts   ledgerCohortRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLedgerService constructs the ledger service.
func NewLedgerService(repo ledgerRepository, cohorts ledgerCohortRepository, validate *validator.Validate, logger *zap.Logger) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{repo: repo, cohorts: cohorts, validator: validate, logger: logger}
}

func (s *LedgerService) resolveCohort(ctx context.Context, cohortID string) error {
	if _, err := s.cohorts.FindByID(ctx, cohortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	return nil
}

// Mark records a subtopic as taught for the cohort.
func (s *LedgerService) Mark(ctx context.Context, cohortID string, req ToggleTaughtRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ledger payload")
	}
	if err := s.resolveCohort(ctx, cohortID); err != nil {
		return err
	}
	entry := &models.TaughtEntry{
		CohortID:   cohortID,
		GradeLabel: req.GradeLabel,
		ChapterID:  req.ChapterID,
		Subtopic:   req.Subtopic,
	}
	if err := s.repo.Mark(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark taught")
	}
	return nil
}

// Unmark removes a taught tuple. Only an explicit un-toggle removes ledger
// entries; completion rollbacks never reach here.
func (s *LedgerService) Unmark(ctx context.Context, cohortID string, req ToggleTaughtRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ledger payload")
	}
	if err := s.resolveCohort(ctx, cohortID); err != nil {
		return err
	}
	if err := s.repo.Unmark(ctx, cohortID, req.GradeLabel, req.ChapterID, req.Subtopic); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unmark taught")
	}
	return nil
}

// IsTaught reports whether the tuple is present.
func (s *LedgerService) IsTaught(ctx context.Context, cohortID, gradeLabel, chapterID, subtopic string) (bool, error) {
	taught, err := s.repo.Exists(ctx, cohortID, gradeLabel, chapterID, subtopic)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check taught status")
	}
	return taught, nil
}

// List returns the cohort's ledger, optionally scoped to one grade.
func (s *LedgerService) List(ctx context.Context, cohortID string, gradeLabel string) ([]models.TaughtEntry, error) {
	if err := s.resolveCohort(ctx, cohortID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByCohort(ctx, cohortID, gradeLabel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list taught entries")
	}
	return entries, nil
}
