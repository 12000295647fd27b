package models

import "time"

// SkillLevel classifies a student's current ability band.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "BEGINNER"
	SkillIntermediate SkillLevel = "INTERMEDIATE"
	SkillAdvanced     SkillLevel = "ADVANCED"
)

// Student represents a registered learner. CohortID stays nil until placement
// assigns the student to a band cohort.
type Student struct {
	ID            string     `db:"id" json:"id"`
	FullName      string     `db:"full_name" json:"full_name"`
	Email         string     `db:"email" json:"email"`
	Age           int        `db:"age" json:"age"`
	EntranceScore int        `db:"entrance_score" json:"entrance_score"`
	SkillLevel    SkillLevel `db:"skill_level" json:"skill_level"`
	GradeLabel    string     `db:"grade_label" json:"grade_label"`
	CohortID      *string    `db:"cohort_id" json:"cohort_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentDetail extends Student with the resolved cohort name.
type StudentDetail struct {
	Student
	CohortName *string `db:"cohort_name" json:"cohort_name,omitempty"`
}
