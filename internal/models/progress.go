package models

import "time"

// ProgressStatus enumerates explicit chapter completion states.
type ProgressStatus string

const (
	ProgressInProgress ProgressStatus = "IN_PROGRESS"
	ProgressCompleted  ProgressStatus = "COMPLETED"
)

// QuizResult is an append-only record of one quiz attempt. The aggregator
// derives best-per-chapter scores; individual attempts are never updated.
type QuizResult struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	QuizID    string    `db:"quiz_id" json:"quiz_id"`
	ChapterID string    `db:"chapter_id" json:"chapter_id"`
	Score     int       `db:"score" json:"score"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChapterProgress is the explicit per-chapter completion toggle, one row per
// (student, chapter), last write wins. Completion is a deliberate action and
// stays independent of quiz performance.
type ChapterProgress struct {
	ID          string         `db:"id" json:"id"`
	StudentID   string         `db:"student_id" json:"student_id"`
	ChapterID   string         `db:"chapter_id" json:"chapter_id"`
	Status      ProgressStatus `db:"status" json:"status"`
	CompletedAt *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ChapterScore carries one best-score aggregation row.
type ChapterScore struct {
	ChapterID string `db:"chapter_id" json:"chapter_id"`
	BestScore int    `db:"best_score" json:"best_score"`
}

// StudentProgress is the aggregated progress view returned to clients.
type StudentProgress struct {
	StudentID  string         `json:"student_id"`
	SkillLevel SkillLevel     `json:"skill_level"`
	BestScores map[string]int `json:"best_scores"`
	Completed  []string       `json:"completed_chapters"`
}
