package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpilot/curricula-api/internal/models"
)

func TestCohortFindByName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCohortRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "teacher_id", "active", "created_at", "updated_at"}).
		AddRow("coh-1", "Junior", nil, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, teacher_id, active, created_at, updated_at FROM cohorts WHERE name = $1`)).
		WithArgs("Junior").
		WillReturnRows(rows)

	cohort, err := repo.FindByName(context.Background(), "Junior")
	require.NoError(t, err)
	assert.Equal(t, "coh-1", cohort.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCohortReplaceSegments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCohortRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM schedule_segments WHERE cohort_id = $1`)).
		WithArgs("coh-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	insert := regexp.QuoteMeta(`INSERT INTO schedule_segments (id, cohort_id, grade_label, planned_weeks, rank) VALUES ($1, $2, $3, $4, $5)`)
	mock.ExpectExec(insert).
		WithArgs(sqlmock.AnyArg(), "coh-1", "8", 6, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insert).
		WithArgs(sqlmock.AnyArg(), "coh-1", "7", 4, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ReplaceSegments(context.Background(), "coh-1", []models.ScheduleSegment{
		{GradeLabel: "8", PlannedWeeks: 6},
		{GradeLabel: "7", PlannedWeeks: 4},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCohortMemberGradeLabels(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCohortRepository(db)

	rows := sqlmock.NewRows([]string{"grade_label"}).AddRow("7").AddRow("8")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT grade_label FROM students WHERE cohort_id = $1 AND grade_label <> '' ORDER BY grade_label ASC`)).
		WithArgs("coh-1").
		WillReturnRows(rows)

	labels, err := repo.MemberGradeLabels(context.Background(), "coh-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "8"}, labels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCohortDeactivate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCohortRepository(db)

	query := regexp.QuoteMeta(`UPDATE cohorts SET active = false, updated_at = $2 WHERE id = $1`)
	mock.ExpectExec(query).
		WithArgs("coh-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "coh-1"))

	mock.ExpectExec(query).
		WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCohortCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCohortRepository(db)

	mock.ExpectExec("INSERT INTO cohorts").WillReturnResult(sqlmock.NewResult(1, 1))

	cohort := &models.Cohort{Name: "Senior", Active: true}
	require.NoError(t, repo.Create(context.Background(), cohort))
	assert.NotEmpty(t, cohort.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
