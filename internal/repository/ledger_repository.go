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

// LedgerRepository persists taught-subtopic tuples. Uniqueness on the full
// (cohort, grade, chapter, subtopic) tuple is enforced by the table constraint;
// both mutators lean on it for idempotence, so concurrent calls for the same
// tuple succeed without coordination.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs a LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Mark records a taught tuple. Marking an already-present tuple is a no-op.
func (r *LedgerRepository) Mark(ctx context.Context, entry *models.TaughtEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO taught_entries (id, cohort_id, grade_label, chapter_id, subtopic, created_at)
        VALUES (:id, :cohort_id, :grade_label, :chapter_id, :subtopic, :created_at)
        ON CONFLICT (cohort_id, grade_label, chapter_id, subtopic) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("mark taught: %w", err)
	}
	return nil
}

// Unmark removes a taught tuple. Unmarking an absent tuple is a no-op.
func (r *LedgerRepository) Unmark(ctx context.Context, cohortID, gradeLabel, chapterID, subtopic string) error {
	const query = `DELETE FROM taught_entries WHERE cohort_id = $1 AND grade_label = $2 AND chapter_id = $3 AND subtopic = $4`
	if _, err := r.db.ExecContext(ctx, query, cohortID, gradeLabel, chapterID, subtopic); err != nil {
		return fmt.Errorf("unmark taught: %w", err)
	}
	return nil
}

// Exists reports whether the exact tuple is present.
func (r *LedgerRepository) Exists(ctx context.Context, cohortID, gradeLabel, chapterID, subtopic string) (bool, error) {
	const query = `SELECT 1 FROM taught_entries WHERE cohort_id = $1 AND grade_label = $2 AND chapter_id = $3 AND subtopic = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, cohortID, gradeLabel, chapterID, subtopic); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check taught: %w", err)
	}
	return true, nil
}

// ListByCohort returns the cohort's ledger entries, optionally restricted to a
// grade. Reads always hit the store directly; taught status gates
// recommendations and must never be served stale.
func (r *LedgerRepository) ListByCohort(ctx context.Context, cohortID string, gradeLabel string) ([]models.TaughtEntry, error) {
	query := `SELECT id, cohort_id, grade_label, chapter_id, subtopic, created_at FROM taught_entries WHERE cohort_id = $1`
	args := []interface{}{cohortID}
	if gradeLabel != "" {
		query += " AND grade_label = $2"
		args = append(args, gradeLabel)
	}
	query += " ORDER BY created_at ASC"

	var entries []models.TaughtEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list taught entries: %w", err)
	}
	return entries, nil
}
