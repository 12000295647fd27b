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

func TestLessonPlanCreateTruncatesDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	mock.ExpectExec("INSERT INTO lesson_plans").WillReturnResult(sqlmock.NewResult(1, 1))

	plan := &models.LessonPlan{
		CohortID:   "coh-1",
		PlanDate:   time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC),
		GradeLabel: "7",
		Topic:      "Plant Structure",
	}
	require.NoError(t, repo.Create(context.Background(), plan))
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), plan.PlanDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonPlanListIncompleteBefore(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "cohort_id", "plan_date", "grade_label", "topic", "chapter_id", "subtopic", "is_manual", "is_completed", "created_at"}).
		AddRow("p1", "coh-1", day.AddDate(0, 0, -10), "7", "Old lesson", nil, nil, true, false, day.AddDate(0, 0, -10))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, cohort_id, plan_date, grade_label, topic, chapter_id, subtopic, is_manual, is_completed, created_at
        FROM lesson_plans WHERE cohort_id = $1 AND plan_date < $2 AND is_completed = false ORDER BY plan_date ASC, created_at ASC`)).
		WithArgs("coh-1", day).
		WillReturnRows(rows)

	plans, err := repo.ListIncompleteBefore(context.Background(), "coh-1", day)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Old lesson", plans[0].Topic)
	assert.False(t, plans[0].IsCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonPlanListByDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "cohort_id", "plan_date", "grade_label", "topic", "chapter_id", "subtopic", "is_manual", "is_completed", "created_at"}).
		AddRow("p1", "coh-1", day, "7", "Today's lesson", "ch-1", "Roots", false, false, day)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, cohort_id, plan_date, grade_label, topic, chapter_id, subtopic, is_manual, is_completed, created_at
        FROM lesson_plans WHERE cohort_id = $1 AND plan_date = $2 ORDER BY created_at ASC`)).
		WithArgs("coh-1", day).
		WillReturnRows(rows)

	plans, err := repo.ListByDate(context.Background(), "coh-1", day.Add(9*time.Hour))
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.NotNil(t, plans[0].ChapterID)
	assert.Equal(t, "ch-1", *plans[0].ChapterID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonPlanSetCompletion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonPlanRepository(db)

	query := regexp.QuoteMeta(`UPDATE lesson_plans SET is_completed = $2 WHERE id = $1`)
	mock.ExpectExec(query).WithArgs("p1", true).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetCompletion(context.Background(), "p1", true))

	// Unknown id surfaces as sql.ErrNoRows for the service layer to map.
	mock.ExpectExec(query).WithArgs("ghost", true).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetCompletion(context.Background(), "ghost", true)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
