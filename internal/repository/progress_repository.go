package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classpilot/curricula-api/internal/models"
)

// ProgressRepository persists quiz results and explicit chapter progress.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// InsertQuizResult appends a quiz attempt. Results are never updated or removed.
func (r *ProgressRepository) InsertQuizResult(ctx context.Context, result *models.QuizResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO quiz_results (id, student_id, quiz_id, chapter_id, score, created_at)
        VALUES (:id, :student_id, :quiz_id, :chapter_id, :score, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	return nil
}

// BestScores aggregates the maximum score per chapter across every attempt.
func (r *ProgressRepository) BestScores(ctx context.Context, studentID string) ([]models.ChapterScore, error) {
	const query = `SELECT chapter_id, MAX(score) AS best_score FROM quiz_results WHERE student_id = $1 GROUP BY chapter_id`
	var scores []models.ChapterScore
	if err := r.db.SelectContext(ctx, &scores, query, studentID); err != nil {
		return nil, fmt.Errorf("aggregate best scores: %w", err)
	}
	return scores, nil
}

// FindProgress returns the explicit progress row for (student, chapter).
func (r *ProgressRepository) FindProgress(ctx context.Context, studentID, chapterID string) (*models.ChapterProgress, error) {
	const query = `SELECT id, student_id, chapter_id, status, completed_at, updated_at
        FROM chapter_progress WHERE student_id = $1 AND chapter_id = $2`
	var progress models.ChapterProgress
	if err := r.db.GetContext(ctx, &progress, query, studentID, chapterID); err != nil {
		return nil, err
	}
	return &progress, nil
}

// UpsertProgress writes the explicit progress toggle, last write wins.
func (r *ProgressRepository) UpsertProgress(ctx context.Context, progress *models.ChapterProgress) error {
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	progress.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO chapter_progress (id, student_id, chapter_id, status, completed_at, updated_at)
        VALUES (:id, :student_id, :chapter_id, :status, :completed_at, :updated_at)
        ON CONFLICT (student_id, chapter_id) DO UPDATE
        SET status = EXCLUDED.status, completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, progress); err != nil {
		return fmt.Errorf("upsert chapter progress: %w", err)
	}
	return nil
}

// ListCompletedChapters returns chapter IDs with an explicit COMPLETED row.
func (r *ProgressRepository) ListCompletedChapters(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT chapter_id FROM chapter_progress WHERE student_id = $1 AND status = $2 ORDER BY chapter_id ASC`
	var chapters []string
	if err := r.db.SelectContext(ctx, &chapters, query, studentID, models.ProgressCompleted); err != nil {
		return nil, fmt.Errorf("list completed chapters: %w", err)
	}
	return chapters, nil
}

// IsChapterComplete reports whether the explicit COMPLETED row exists.
func (r *ProgressRepository) IsChapterComplete(ctx context.Context, studentID, chapterID string) (bool, error) {
	const query = `SELECT 1 FROM chapter_progress WHERE student_id = $1 AND chapter_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, chapterID, models.ProgressCompleted); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check chapter completion: %w", err)
	}
	return true, nil
}
