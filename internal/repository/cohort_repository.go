package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classpilot/curricula-api/internal/models"
)

// CohortRepository manages persistence for cohorts, their schedule segments,
// and membership.
type CohortRepository struct {
	db *sqlx.DB
}

// NewCohortRepository constructs a CohortRepository.
func NewCohortRepository(db *sqlx.DB) *CohortRepository {
	return &CohortRepository{db: db}
}

// List returns cohorts matching the provided filters.
func (r *CohortRepository) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error) {
	base := "FROM cohorts"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, teacher_id, active, created_at, updated_at %s ORDER BY name %s LIMIT %d OFFSET %d", base, order, size, offset)

	var cohorts []models.Cohort
	if err := r.db.SelectContext(ctx, &cohorts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cohorts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cohorts: %w", err)
	}
	return cohorts, total, nil
}

// FindByID fetches a cohort by ID.
func (r *CohortRepository) FindByID(ctx context.Context, id string) (*models.Cohort, error) {
	const query = `SELECT id, name, teacher_id, active, created_at, updated_at FROM cohorts WHERE id = $1`
	var cohort models.Cohort
	if err := r.db.GetContext(ctx, &cohort, query, id); err != nil {
		return nil, err
	}
	return &cohort, nil
}

// FindByName fetches a cohort by its unique name. Placement resolves band
// names through this lookup.
func (r *CohortRepository) FindByName(ctx context.Context, name string) (*models.Cohort, error) {
	const query = `SELECT id, name, teacher_id, active, created_at, updated_at FROM cohorts WHERE name = $1`
	var cohort models.Cohort
	if err := r.db.GetContext(ctx, &cohort, query, name); err != nil {
		return nil, err
	}
	return &cohort, nil
}

// Create inserts a new cohort record.
func (r *CohortRepository) Create(ctx context.Context, cohort *models.Cohort) error {
	if cohort.ID == "" {
		cohort.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cohort.CreatedAt.IsZero() {
		cohort.CreatedAt = now
	}
	cohort.UpdatedAt = now
	const query = `INSERT INTO cohorts (id, name, teacher_id, active, created_at, updated_at)
        VALUES (:id, :name, :teacher_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cohort); err != nil {
		return fmt.Errorf("create cohort: %w", err)
	}
	return nil
}

// ListSegments returns the cohort's schedule segments in rank order.
func (r *CohortRepository) ListSegments(ctx context.Context, cohortID string) ([]models.ScheduleSegment, error) {
	const query = `SELECT id, cohort_id, grade_label, planned_weeks, rank FROM schedule_segments WHERE cohort_id = $1 ORDER BY rank ASC`
	var segments []models.ScheduleSegment
	if err := r.db.SelectContext(ctx, &segments, query, cohortID); err != nil {
		return nil, fmt.Errorf("list schedule segments: %w", err)
	}
	return segments, nil
}

// ReplaceSegments swaps the cohort's segment list atomically, assigning ranks
// from slice order.
func (r *CohortRepository) ReplaceSegments(ctx context.Context, cohortID string, segments []models.ScheduleSegment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace segments: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_segments WHERE cohort_id = $1`, cohortID); err != nil {
		return fmt.Errorf("clear schedule segments: %w", err)
	}
	const insert = `INSERT INTO schedule_segments (id, cohort_id, grade_label, planned_weeks, rank) VALUES ($1, $2, $3, $4, $5)`
	for i, segment := range segments {
		id := segment.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, insert, id, cohortID, segment.GradeLabel, segment.PlannedWeeks, i); err != nil {
			return fmt.Errorf("insert schedule segment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace segments: %w", err)
	}
	return nil
}

// ListMembers returns the students currently assigned to the cohort.
func (r *CohortRepository) ListMembers(ctx context.Context, cohortID string) ([]models.Student, error) {
	const query = `SELECT id, full_name, email, age, entrance_score, skill_level, grade_label, cohort_id, created_at, updated_at
        FROM students WHERE cohort_id = $1 ORDER BY full_name ASC`
	var members []models.Student
	if err := r.db.SelectContext(ctx, &members, query, cohortID); err != nil {
		return nil, fmt.Errorf("list cohort members: %w", err)
	}
	return members, nil
}

// MemberGradeLabels returns the distinct grade labels of current members,
// used as the fallback grade set when a cohort has no schedule segments.
func (r *CohortRepository) MemberGradeLabels(ctx context.Context, cohortID string) ([]string, error) {
	const query = `SELECT DISTINCT grade_label FROM students WHERE cohort_id = $1 AND grade_label <> '' ORDER BY grade_label ASC`
	var labels []string
	if err := r.db.SelectContext(ctx, &labels, query, cohortID); err != nil {
		return nil, fmt.Errorf("list member grade labels: %w", err)
	}
	return labels, nil
}

// CountMembers returns how many students reference the cohort.
func (r *CohortRepository) CountMembers(ctx context.Context, cohortID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE cohort_id = $1`, cohortID); err != nil {
		return 0, fmt.Errorf("count cohort members: %w", err)
	}
	return count, nil
}

// Deactivate marks a cohort inactive. Cohorts with members are never removed.
func (r *CohortRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE cohorts SET active = false, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate cohort: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
