package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classpilot/curricula-api/internal/models"
)

// CurriculumRepository reads the curriculum taxonomy. Writes happen only
// through the seeder; the API itself never mutates the catalog.
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository constructs a CurriculumRepository.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

// FindGradeByLabel resolves a grade node by its standard label.
func (r *CurriculumRepository) FindGradeByLabel(ctx context.Context, label string) (*models.Grade, error) {
	const query = `SELECT id, label, created_at FROM grades WHERE label = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, label); err != nil {
		return nil, err
	}
	return &grade, nil
}

// ListSubjectsWithChapters loads every subject of a grade together with its
// chapters in catalog order. This is the batched read the frontier scan runs
// on: one query for subjects, one for all their chapters.
func (r *CurriculumRepository) ListSubjectsWithChapters(ctx context.Context, gradeLabel string) ([]models.SubjectChapters, error) {
	const subjectQuery = `SELECT sub.id, sub.grade_id, sub.name, sub.created_at
        FROM subjects sub
        JOIN grades g ON g.id = sub.grade_id
        WHERE g.label = $1
        ORDER BY sub.name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, subjectQuery, gradeLabel); err != nil {
		return nil, fmt.Errorf("list subjects for grade %s: %w", gradeLabel, err)
	}
	if len(subjects) == 0 {
		return nil, nil
	}

	ids := make([]string, len(subjects))
	for i, subject := range subjects {
		ids[i] = subject.ID
	}

	chapterQuery, args, err := sqlx.In(`SELECT id, subject_id, title, position, subtopics, created_at
        FROM chapters WHERE subject_id IN (?) ORDER BY position ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build chapter query: %w", err)
	}
	chapterQuery = r.db.Rebind(chapterQuery)

	var chapters []models.Chapter
	if err := r.db.SelectContext(ctx, &chapters, chapterQuery, args...); err != nil {
		return nil, fmt.Errorf("list chapters for grade %s: %w", gradeLabel, err)
	}

	bySubject := make(map[string][]models.Chapter, len(subjects))
	for _, chapter := range chapters {
		bySubject[chapter.SubjectID] = append(bySubject[chapter.SubjectID], chapter)
	}

	result := make([]models.SubjectChapters, 0, len(subjects))
	for _, subject := range subjects {
		result = append(result, models.SubjectChapters{Subject: subject, Chapters: bySubject[subject.ID]})
	}
	return result, nil
}

// UpsertGrade inserts or returns the grade with the given label.
func (r *CurriculumRepository) UpsertGrade(ctx context.Context, label string) (*models.Grade, error) {
	const query = `INSERT INTO grades (id, label)
        VALUES ($1, $2)
        ON CONFLICT (label) DO UPDATE SET label = EXCLUDED.label
        RETURNING id, label, created_at`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, uuid.NewString(), label); err != nil {
		return nil, fmt.Errorf("upsert grade %s: %w", label, err)
	}
	return &grade, nil
}

// UpsertSubject inserts or returns the subject by (grade, name).
func (r *CurriculumRepository) UpsertSubject(ctx context.Context, gradeID, name string) (*models.Subject, error) {
	const query = `INSERT INTO subjects (id, grade_id, name)
        VALUES ($1, $2, $3)
        ON CONFLICT (grade_id, name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id, grade_id, name, created_at`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, uuid.NewString(), gradeID, name); err != nil {
		return nil, fmt.Errorf("upsert subject %s: %w", name, err)
	}
	return &subject, nil
}

// UpsertChapter inserts or updates a chapter by (subject, title), refreshing
// its position and serialized subtopic list.
func (r *CurriculumRepository) UpsertChapter(ctx context.Context, chapter *models.Chapter) error {
	if chapter.ID == "" {
		chapter.ID = uuid.NewString()
	}
	const query = `INSERT INTO chapters (id, subject_id, title, position, subtopics)
        VALUES (:id, :subject_id, :title, :position, :subtopics)
        ON CONFLICT (subject_id, title) DO UPDATE
        SET position = EXCLUDED.position, subtopics = EXCLUDED.subtopics`
	if _, err := r.db.NamedExecContext(ctx, query, chapter); err != nil {
		return fmt.Errorf("upsert chapter %s: %w", chapter.Title, err)
	}
	return nil
}

// FindChapterByID fetches a single chapter.
func (r *CurriculumRepository) FindChapterByID(ctx context.Context, id string) (*models.Chapter, error) {
	const query = `SELECT id, subject_id, title, position, subtopics, created_at FROM chapters WHERE id = $1`
	var chapter models.Chapter
	if err := r.db.GetContext(ctx, &chapter, query, id); err != nil {
		return nil, err
	}
	return &chapter, nil
}
