package models

import "time"

// TaughtEntry marks one covered subtopic for a cohort in a grade context.
// Uniqueness is on the full (cohort, grade, chapter, subtopic) tuple; marking
// twice is a no-op and unmarking an absent tuple is a no-op.
type TaughtEntry struct {
	ID         string    `db:"id" json:"id"`
	CohortID   string    `db:"cohort_id" json:"cohort_id"`
	GradeLabel string    `db:"grade_label" json:"grade_label"`
	ChapterID  string    `db:"chapter_id" json:"chapter_id"`
	Subtopic   string    `db:"subtopic" json:"subtopic"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// TaughtKey identifies a ledger tuple without persistence metadata.
type TaughtKey struct {
	GradeLabel string `json:"grade_label"`
	ChapterID  string `json:"chapter_id"`
	Subtopic   string `json:"subtopic"`
}
