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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student detail by ID including the resolved cohort name.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.full_name, s.email, s.age, s.entrance_score, s.skill_level, s.grade_label, s.cohort_id, s.created_at, s.updated_at,
        c.name AS cohort_name
        FROM students s
        LEFT JOIN cohorts c ON c.id = s.cohort_id
        WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByEmail checks if a student with the given email exists.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM students WHERE email = $1 LIMIT 1", email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student email: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, full_name, email, age, entrance_score, skill_level, grade_label, cohort_id, created_at, updated_at)
        VALUES (:id, :full_name, :email, :age, :entrance_score, :skill_level, :grade_label, :cohort_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateSkillLevel revises the student's derived skill level.
func (r *StudentRepository) UpdateSkillLevel(ctx context.Context, id string, level models.SkillLevel) error {
	const query = `UPDATE students SET skill_level = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, level, time.Now().UTC()); err != nil {
		return fmt.Errorf("update skill level: %w", err)
	}
	return nil
}

// UpdateCohort moves the student into (or out of) a cohort.
func (r *StudentRepository) UpdateCohort(ctx context.Context, id string, cohortID *string) error {
	const query = `UPDATE students SET cohort_id = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, cohortID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student cohort: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateGradeLabel revises the student's grade label after assessment.
func (r *StudentRepository) UpdateGradeLabel(ctx context.Context, id string, gradeLabel string) error {
	const query = `UPDATE students SET grade_label = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, gradeLabel, time.Now().UTC()); err != nil {
		return fmt.Errorf("update grade label: %w", err)
	}
	return nil
}
