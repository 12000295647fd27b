package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classpilot/curricula-api/internal/models"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
)

type lessonPlanRepository interface {
	Create(ctx context.Context, plan *models.LessonPlan) error
	FindByID(ctx context.Context, id string) (*models.LessonPlan, error)
	ListByDate(ctx context.Context, cohortID string, day time.Time) ([]models.LessonPlan, error)
	ListIncompleteBefore(ctx context.Context, cohortID string, day time.Time) ([]models.LessonPlan, error)
	SetCompletion(ctx context.Context, id string, completed bool) error
}

type lessonPlanLedger interface {
	Mark(ctx context.Context, entry *models.TaughtEntry) error
}

type lessonPlanRecommender interface {
	NextTopics(ctx context.Context, cohortID string) ([]models.Recommendation, error)
}

// ScheduleManualRequest creates a teacher-authored lesson session.
type ScheduleManualRequest struct {
	PlanDate   time.Time `json:"plan_date" validate:"required"`
	GradeLabel string    `json:"grade_label" validate:"required"`
	Topic      string    `json:"topic" validate:"required"`
	ChapterID  *string   `json:"chapter_id,omitempty"`
	Subtopic   *string   `json:"subtopic,omitempty"`
}

// ScheduleRecommendationRequest turns a recommendation payload into a session.
type ScheduleRecommendationRequest struct {
	PlanDate       time.Time             `json:"plan_date" validate:"required"`
	Recommendation models.Recommendation `json:"recommendation" validate:"required"`
}

// LessonPlanService maintains dated lesson sessions. Entries only move from
// scheduled to completed; completing a session with a chapter and subtopic
// writes through to the taught ledger.
type LessonPlanService struct {
	repo        lessonPlanRepository
	ledger      lessonPlanLedger
	recommender lessonPlanRecommender
	cohorts     ledgerCohortRepository
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewLessonPlanService constructs the lesson plan service.
func NewLessonPlanService(repo lessonPlanRepository, ledger lessonPlanLedger, recommender lessonPlanRecommender, cohorts ledgerCohortRepository, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *LessonPlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonPlanService{
		repo:        repo,
		ledger:      ledger,
		recommender: recommender,
		cohorts:     cohorts,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
	}
}

// DailyPlan assembles the agenda for one cohort and day: the day's entries,
// the carry-forward backlog of every older incomplete session, and the live
// recommendation frontier.
func (s *LessonPlanService) DailyPlan(ctx context.Context, cohortID string, day time.Time) (*models.DailyPlan, error) {
	if _, err := s.cohorts.FindByID(ctx, cohortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	today, err := s.repo.ListByDate(ctx, cohortID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's plan")
	}

	carried, err := s.repo.ListIncompleteBefore(ctx, cohortID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load carried-forward plan")
	}

	recommendations, err := s.recommender.NextTopics(ctx, cohortID)
	if err != nil {
		return nil, err
	}

	return &models.DailyPlan{Today: today, CarriedForward: carried, Recommendations: recommendations}, nil
}

// ScheduleManual creates a manually-authored session.
func (s *LessonPlanService) ScheduleManual(ctx context.Context, cohortID string, req ScheduleManualRequest) (*models.LessonPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson plan payload")
	}
	if _, err := s.cohorts.FindByID(ctx, cohortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	plan := &models.LessonPlan{
		CohortID:   cohortID,
		PlanDate:   req.PlanDate,
		GradeLabel: req.GradeLabel,
		Topic:      req.Topic,
		ChapterID:  req.ChapterID,
		Subtopic:   req.Subtopic,
		IsManual:   true,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson plan")
	}
	return plan, nil
}

// ScheduleFromRecommendation converts a recommendation payload into a session,
// copying grade, topic, chapter and subtopic so completion can write through.
func (s *LessonPlanService) ScheduleFromRecommendation(ctx context.Context, cohortID string, req ScheduleRecommendationRequest) (*models.LessonPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson plan payload")
	}
	rec := req.Recommendation
	if rec.GradeLabel == "" || rec.Subtopic == "" || rec.ChapterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recommendation payload incomplete")
	}
	if _, err := s.cohorts.FindByID(ctx, cohortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	chapterID := rec.ChapterID
	subtopic := rec.Subtopic
	plan := &models.LessonPlan{
		CohortID:   cohortID,
		PlanDate:   req.PlanDate,
		GradeLabel: rec.GradeLabel,
		Topic:      rec.Subject + ": " + rec.ChapterTitle,
		ChapterID:  &chapterID,
		Subtopic:   &subtopic,
		IsManual:   false,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson plan")
	}
	return plan, nil
}

// ToggleCompletion sets the completion flag. Completion of a session carrying
// both a chapter and a subtopic is the authoritative signal that the subtopic
// was covered, so it marks the ledger. Un-completing never retracts the ledger
// entry; the write-through is one-way.
func (s *LessonPlanService) ToggleCompletion(ctx context.Context, planID string, completed bool) (*models.LessonPlan, error) {
	plan, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson plan")
	}

	if err := s.repo.SetCompletion(ctx, planID, completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson plan")
	}
	plan.IsCompleted = completed

	if completed && plan.ChapterID != nil && plan.Subtopic != nil {
		entry := &models.TaughtEntry{
			CohortID:   plan.CohortID,
			GradeLabel: plan.GradeLabel,
			ChapterID:  *plan.ChapterID,
			Subtopic:   *plan.Subtopic,
		}
		if err := s.ledger.Mark(ctx, entry); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record taught subtopic")
		}
		if s.metrics != nil {
			s.metrics.ObserveLessonCompleted()
		}
	}

	return plan, nil
}
