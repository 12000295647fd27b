package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpilot/curricula-api/internal/models"
)

func TestInsertQuizResult(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	mock.ExpectExec("INSERT INTO quiz_results").WillReturnResult(sqlmock.NewResult(1, 1))

	result := &models.QuizResult{StudentID: "stu-1", QuizID: "q1", ChapterID: "ch-1", Score: 80}
	require.NoError(t, repo.InsertQuizResult(context.Background(), result))
	assert.NotEmpty(t, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBestScores(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	rows := sqlmock.NewRows([]string{"chapter_id", "best_score"}).
		AddRow("ch-1", 90).
		AddRow("ch-2", 45)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT chapter_id, MAX(score) AS best_score FROM quiz_results WHERE student_id = $1 GROUP BY chapter_id`)).
		WithArgs("stu-1").
		WillReturnRows(rows)

	scores, err := repo.BestScores(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 90, scores[0].BestScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertProgress(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	mock.ExpectExec("INSERT INTO chapter_progress").WillReturnResult(sqlmock.NewResult(1, 1))

	progress := &models.ChapterProgress{StudentID: "stu-1", ChapterID: "ch-1", Status: models.ProgressCompleted}
	require.NoError(t, repo.UpsertProgress(context.Background(), progress))
	assert.NotEmpty(t, progress.ID)
	assert.False(t, progress.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsChapterComplete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	query := regexp.QuoteMeta(`SELECT 1 FROM chapter_progress WHERE student_id = $1 AND chapter_id = $2 AND status = $3 LIMIT 1`)
	mock.ExpectQuery(query).
		WithArgs("stu-1", "ch-1", models.ProgressCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	complete, err := repo.IsChapterComplete(context.Background(), "stu-1", "ch-1")
	require.NoError(t, err)
	assert.True(t, complete)

	mock.ExpectQuery(query).
		WithArgs("stu-1", "ch-2", models.ProgressCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	complete, err = repo.IsChapterComplete(context.Background(), "stu-1", "ch-2")
	require.NoError(t, err)
	assert.False(t, complete)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCompletedChapters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	rows := sqlmock.NewRows([]string{"chapter_id"}).AddRow("ch-1").AddRow("ch-3")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT chapter_id FROM chapter_progress WHERE student_id = $1 AND status = $2 ORDER BY chapter_id ASC`)).
		WithArgs("stu-1", models.ProgressCompleted).
		WillReturnRows(rows)

	chapters, err := repo.ListCompletedChapters(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ch-1", "ch-3"}, chapters)
	assert.NoError(t, mock.ExpectationsWereMet())
}
