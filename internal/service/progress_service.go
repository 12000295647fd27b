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

type progressRepository interface {
	InsertQuizResult(ctx context.Context, result *models.QuizResult) error
	BestScores(ctx context.Context, studentID string) ([]models.ChapterScore, error)
	UpsertProgress(ctx context.Context, progress *models.ChapterProgress) error
	ListCompletedChapters(ctx context.Context, studentID string) ([]string, error)
	IsChapterComplete(ctx context.Context, studentID, chapterID string) (bool, error)
}

type progressStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	UpdateSkillLevel(ctx context.Context, id string, level models.SkillLevel) error
}

// RecordQuizResultRequest appends one quiz attempt.
type RecordQuizResultRequest struct {
	QuizID    string `json:"quiz_id" validate:"required"`
	ChapterID string `json:"chapter_id" validate:"required"`
	Score     int    `json:"score" validate:"min=0,max=100"`
}

// SetChapterProgressRequest toggles the explicit completion state.
type SetChapterProgressRequest struct {
	Status models.ProgressStatus `json:"status" validate:"required,oneof=IN_PROGRESS COMPLETED"`
}

// ProgressService aggregates quiz results into best-per-chapter scores and
// tracks explicit chapter completion. Quiz scores inform recommended
// difficulty; completion stays a deliberate teacher/student action.
type ProgressService struct {
	repo      progressRepository
	students  progressStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgressService constructs the progress service.
func NewProgressService(repo progressRepository, students progressStudentRepository, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{repo: repo, students: students, validator: validate, logger: logger}
}

func (s *ProgressService) resolveStudent(ctx context.Context, studentID string) error {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return nil
}

// BestScores returns the maximum score per chapter across all attempts.
func (s *ProgressService) BestScores(ctx context.Context, studentID string) (map[string]int, error) {
	if err := s.resolveStudent(ctx, studentID); err != nil {
		return nil, err
	}
	scores, err := s.repo.BestScores(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate scores")
	}
	best := make(map[string]int, len(scores))
	for _, score := range scores {
		best[score.ChapterID] = score.BestScore
	}
	return best, nil
}

// IsChapterComplete reports the explicit completion flag, independent of quiz
// performance.
func (s *ProgressService) IsChapterComplete(ctx context.Context, studentID, chapterID string) (bool, error) {
	complete, err := s.repo.IsChapterComplete(ctx, studentID, chapterID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check completion")
	}
	return complete, nil
}

// RecordQuizResult appends a quiz attempt and revises the student's skill
// level from the new best-score average.
func (s *ProgressService) RecordQuizResult(ctx context.Context, studentID string, req RecordQuizResultRequest) (*models.QuizResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz result payload")
	}
	if err := s.resolveStudent(ctx, studentID); err != nil {
		return nil, err
	}

	result := &models.QuizResult{
		StudentID: studentID,
		QuizID:    req.QuizID,
		ChapterID: req.ChapterID,
		Score:     req.Score,
	}
	if err := s.repo.InsertQuizResult(ctx, result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record quiz result")
	}

	if err := s.reviseSkillLevel(ctx, studentID); err != nil {
		s.logger.Warn("failed to revise skill level", zap.String("student_id", studentID), zap.Error(err))
	}
	return result, nil
}

// SetChapterProgress upserts the explicit completion toggle, last write wins.
func (s *ProgressService) SetChapterProgress(ctx context.Context, studentID, chapterID string, req SetChapterProgressRequest) (*models.ChapterProgress, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}
	if err := s.resolveStudent(ctx, studentID); err != nil {
		return nil, err
	}

	progress := &models.ChapterProgress{
		StudentID: studentID,
		ChapterID: chapterID,
		Status:    req.Status,
	}
	if req.Status == models.ProgressCompleted {
		now := time.Now().UTC()
		progress.CompletedAt = &now
	}
	if err := s.repo.UpsertProgress(ctx, progress); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save chapter progress")
	}
	return progress, nil
}

// Overview assembles the aggregated progress view for one student.
func (s *ProgressService) Overview(ctx context.Context, studentID string) (*models.StudentProgress, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	scores, err := s.repo.BestScores(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate scores")
	}
	best := make(map[string]int, len(scores))
	for _, score := range scores {
		best[score.ChapterID] = score.BestScore
	}

	completed, err := s.repo.ListCompletedChapters(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list completed chapters")
	}

	return &models.StudentProgress{
		StudentID:  studentID,
		SkillLevel: student.SkillLevel,
		BestScores: best,
		Completed:  completed,
	}, nil
}

// reviseSkillLevel recomputes the skill band from the average best score.
func (s *ProgressService) reviseSkillLevel(ctx context.Context, studentID string) error {
	scores, err := s.repo.BestScores(ctx, studentID)
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		return nil
	}
	sum := 0
	for _, score := range scores {
		sum += score.BestScore
	}
	level := DeriveSkillLevel(sum / len(scores))
	return s.students.UpdateSkillLevel(ctx, studentID, level)
}
