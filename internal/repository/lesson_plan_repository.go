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

// LessonPlanRepository persists dated lesson sessions for cohorts.
type LessonPlanRepository struct {
	db *sqlx.DB
}

// NewLessonPlanRepository constructs a LessonPlanRepository.
func NewLessonPlanRepository(db *sqlx.DB) *LessonPlanRepository {
	return &LessonPlanRepository{db: db}
}

// Create inserts a new lesson plan entry. Dates are truncated to day granularity.
func (r *LessonPlanRepository) Create(ctx context.Context, plan *models.LessonPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	plan.PlanDate = plan.PlanDate.UTC().Truncate(24 * time.Hour)
	const query = `INSERT INTO lesson_plans (id, cohort_id, plan_date, grade_label, topic, chapter_id, subtopic, is_manual, is_completed, created_at)
        VALUES (:id, :cohort_id, :plan_date, :grade_label, :topic, :chapter_id, :subtopic, :is_manual, :is_completed, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("create lesson plan: %w", err)
	}
	return nil
}

// FindByID fetches a lesson plan entry.
func (r *LessonPlanRepository) FindByID(ctx context.Context, id string) (*models.LessonPlan, error) {
	const query = `SELECT id, cohort_id, plan_date, grade_label, topic, chapter_id, subtopic, is_manual, is_completed, created_at
        FROM lesson_plans WHERE id = $1`
	var plan models.LessonPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListByDate returns every entry for the cohort on the exact day.
func (r *LessonPlanRepository) ListByDate(ctx context.Context, cohortID string, day time.Time) ([]models.LessonPlan, error) {
	const query = `SELECT id, cohort_id, plan_date, grade_label, topic, chapter_id, subtopic, is_manual, is_completed, created_at
        FROM lesson_plans WHERE cohort_id = $1 AND plan_date = $2 ORDER BY created_at ASC`
	var plans []models.LessonPlan
	if err := r.db.SelectContext(ctx, &plans, query, cohortID, day.UTC().Truncate(24*time.Hour)); err != nil {
		return nil, fmt.Errorf("list lesson plans by date: %w", err)
	}
	return plans, nil
}

// ListIncompleteBefore returns incomplete entries strictly before the day,
// oldest first. No limit: the backlog is intentionally unbounded and visible.
func (r *LessonPlanRepository) ListIncompleteBefore(ctx context.Context, cohortID string, day time.Time) ([]models.LessonPlan, error) {
	const query = `SELECT id, cohort_id, plan_date, grade_label, topic, chapter_id, subtopic, is_manual, is_completed, created_at
        FROM lesson_plans WHERE cohort_id = $1 AND plan_date < $2 AND is_completed = false ORDER BY plan_date ASC, created_at ASC`
	var plans []models.LessonPlan
	if err := r.db.SelectContext(ctx, &plans, query, cohortID, day.UTC().Truncate(24*time.Hour)); err != nil {
		return nil, fmt.Errorf("list carried-forward lesson plans: %w", err)
	}
	return plans, nil
}

// SetCompletion updates the completion flag.
func (r *LessonPlanRepository) SetCompletion(ctx context.Context, id string, completed bool) error {
	const query = `UPDATE lesson_plans SET is_completed = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, completed)
	if err != nil {
		return fmt.Errorf("set lesson plan completion: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
