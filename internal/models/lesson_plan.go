package models

import "time"

// LessonPlan is a dated lesson session for a cohort. Sessions are scheduled
// manually or converted from a recommendation, and only ever transition from
// scheduled to completed. Incomplete entries never expire; past-dated ones are
// surfaced as carry-forward until a teacher completes them.
type LessonPlan struct {
	ID          string    `db:"id" json:"id"`
	CohortID    string    `db:"cohort_id" json:"cohort_id"`
	PlanDate    time.Time `db:"plan_date" json:"plan_date"`
	GradeLabel  string    `db:"grade_label" json:"grade_label"`
	Topic       string    `db:"topic" json:"topic"`
	ChapterID   *string   `db:"chapter_id" json:"chapter_id,omitempty"`
	Subtopic    *string   `db:"subtopic" json:"subtopic,omitempty"`
	IsManual    bool      `db:"is_manual" json:"is_manual"`
	IsCompleted bool      `db:"is_completed" json:"is_completed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Recommendation is one frontier candidate: the first untaught subtopic for a
// (grade, subject) pair of a cohort. Computed fresh on every call, never persisted.
type Recommendation struct {
	GradeLabel   string `json:"grade_label"`
	Subject      string `json:"subject"`
	ChapterID    string `json:"chapter_id"`
	ChapterTitle string `json:"chapter_title"`
	Subtopic     string `json:"subtopic"`
}

// DailyPlan is the scheduler's agenda for one cohort and day.
type DailyPlan struct {
	Today          []LessonPlan     `json:"today"`
	CarriedForward []LessonPlan     `json:"carried_forward"`
	Recommendations []Recommendation `json:"recommendations"`
}
