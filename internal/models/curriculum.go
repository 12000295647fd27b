package models

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrMalformedSubtopics is returned when a chapter's serialized subtopic list
// cannot be parsed. The recommender treats such chapters as having no subtopics
// instead of failing the whole pass.
var ErrMalformedSubtopics = errors.New("malformed subtopic list")

// Grade is the top level of the curriculum taxonomy ("standard" label, e.g. "7").
type Grade struct {
	ID        string    `db:"id" json:"id"`
	Label     string    `db:"label" json:"label"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subject is a course module within a grade. Subjects carry no ordering among
// themselves but have stable identity.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	GradeID   string    `db:"grade_id" json:"grade_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Chapter is an ordered unit within a subject. Position is the catalog order
// the frontier scan follows. Subtopics are stored as a JSON-serialized ordered
// list attribute; list order is the coverage-selection order and must survive
// round-trips exactly.
type Chapter struct {
	ID           string    `db:"id" json:"id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	Title        string    `db:"title" json:"title"`
	Position     int       `db:"position" json:"position"`
	SubtopicsRaw string    `db:"subtopics" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Subtopics decodes the serialized subtopic list preserving order.
func (c *Chapter) Subtopics() ([]string, error) {
	if c.SubtopicsRaw == "" {
		return nil, nil
	}
	var subtopics []string
	if err := json.Unmarshal([]byte(c.SubtopicsRaw), &subtopics); err != nil {
		return nil, ErrMalformedSubtopics
	}
	return subtopics, nil
}

// SetSubtopics encodes the ordered subtopic list back into the serialized attribute.
func (c *Chapter) SetSubtopics(subtopics []string) error {
	raw, err := json.Marshal(subtopics)
	if err != nil {
		return err
	}
	c.SubtopicsRaw = string(raw)
	return nil
}

// SubjectChapters pairs a subject with its chapters in catalog order.
type SubjectChapters struct {
	Subject  Subject   `json:"subject"`
	Chapters []Chapter `json:"chapters"`
}

// CatalogChapter is the read-API shape of a chapter with decoded subtopics.
type CatalogChapter struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Position  int      `json:"position"`
	Subtopics []string `json:"subtopics"`
}

// CatalogSubject is the read-API shape of a subject with its chapters.
type CatalogSubject struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Chapters []CatalogChapter `json:"chapters"`
}

// CatalogTree is the full subject tree for one grade.
type CatalogTree struct {
	GradeLabel string           `json:"grade_label"`
	Subjects   []CatalogSubject `json:"subjects"`
}
