package models

import "time"

// Cohort represents a named group of students taught together. Placement looks
// cohorts up by name, so names are unique.
type Cohort struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleSegment is one entry of a cohort's ordered teaching schedule: a grade
// label and how many weeks the cohort is planned to spend on it. Rank preserves
// the teaching order.
type ScheduleSegment struct {
	ID          string `db:"id" json:"id"`
	CohortID    string `db:"cohort_id" json:"cohort_id"`
	GradeLabel  string `db:"grade_label" json:"grade_label"`
	PlannedWeeks int   `db:"planned_weeks" json:"planned_weeks"`
	Rank        int    `db:"rank" json:"rank"`
}

// CohortDetail aggregates a cohort with its segments and member students.
type CohortDetail struct {
	Cohort
	Segments []ScheduleSegment `json:"segments"`
	Members  []Student         `json:"members"`
}

// CohortFilter describes query params for listing cohorts.
type CohortFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
