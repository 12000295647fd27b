package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpilot/curricula-api/internal/models"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
)

type mockFullCohortRepo struct {
	cohorts     map[string]*models.Cohort
	segments    map[string][]models.ScheduleSegment
	members     map[string][]models.Student
	deactivated []string
}

func (m *mockFullCohortRepo) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error) {
	var list []models.Cohort
	for _, c := range m.cohorts {
		list = append(list, *c)
	}
	return list, len(list), nil
}

func (m *mockFullCohortRepo) FindByID(ctx context.Context, id string) (*models.Cohort, error) {
	if c, ok := m.cohorts[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFullCohortRepo) FindByName(ctx context.Context, name string) (*models.Cohort, error) {
	for _, c := range m.cohorts {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockFullCohortRepo) Create(ctx context.Context, cohort *models.Cohort) error {
	if m.cohorts == nil {
		m.cohorts = make(map[string]*models.Cohort)
	}
	cohort.ID = "coh-new"
	m.cohorts[cohort.ID] = cohort
	return nil
}

func (m *mockFullCohortRepo) ListSegments(ctx context.Context, cohortID string) ([]models.ScheduleSegment, error) {
	return m.segments[cohortID], nil
}

func (m *mockFullCohortRepo) ReplaceSegments(ctx context.Context, cohortID string, segments []models.ScheduleSegment) error {
	if m.segments == nil {
		m.segments = make(map[string][]models.ScheduleSegment)
	}
	m.segments[cohortID] = segments
	return nil
}

func (m *mockFullCohortRepo) ListMembers(ctx context.Context, cohortID string) ([]models.Student, error) {
	return m.members[cohortID], nil
}

func (m *mockFullCohortRepo) CountMembers(ctx context.Context, cohortID string) (int, error) {
	return len(m.members[cohortID]), nil
}

func (m *mockFullCohortRepo) Deactivate(ctx context.Context, id string) error {
	c, ok := m.cohorts[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Active = false
	m.deactivated = append(m.deactivated, id)
	return nil
}

type mockCohortStudents struct {
	students map[string]*models.StudentDetail
	assigned map[string]*string
}

func (m *mockCohortStudents) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCohortStudents) UpdateCohort(ctx context.Context, id string, cohortID *string) error {
	if m.assigned == nil {
		m.assigned = make(map[string]*string)
	}
	m.assigned[id] = cohortID
	if s, ok := m.students[id]; ok {
		s.CohortID = cohortID
	}
	return nil
}

func TestCohortCreateRejectsDuplicateName(t *testing.T) {
	repo := &mockFullCohortRepo{cohorts: map[string]*models.Cohort{"coh-1": {ID: "coh-1", Name: "Junior", Active: true}}}
	svc := NewCohortService(repo, &mockCohortStudents{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateCohortRequest{Name: "Junior"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	cohort, err := svc.Create(context.Background(), CreateCohortRequest{Name: "Senior"})
	require.NoError(t, err)
	assert.True(t, cohort.Active)
}

func TestCohortReplaceSegmentsPreservesOrder(t *testing.T) {
	repo := &mockFullCohortRepo{cohorts: map[string]*models.Cohort{"coh-1": {ID: "coh-1", Name: "Junior"}}}
	svc := NewCohortService(repo, &mockCohortStudents{}, validator.New(), zap.NewNop())

	saved, err := svc.ReplaceSegments(context.Background(), "coh-1", ReplaceSegmentsRequest{Segments: []SegmentRequest{
		{GradeLabel: "8", PlannedWeeks: 6},
		{GradeLabel: "7", PlannedWeeks: 4},
	}})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "8", saved[0].GradeLabel)
	assert.Equal(t, 0, saved[0].Rank)
	assert.Equal(t, "7", saved[1].GradeLabel)
	assert.Equal(t, 1, saved[1].Rank)
}

func TestCohortAssignAndRemoveStudent(t *testing.T) {
	repo := &mockFullCohortRepo{cohorts: map[string]*models.Cohort{"coh-1": {ID: "coh-1", Name: "Junior"}}}
	students := &mockCohortStudents{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FullName: "Ayu Lestari"}},
	}}
	svc := NewCohortService(repo, students, validator.New(), zap.NewNop())

	require.NoError(t, svc.AssignStudent(context.Background(), "coh-1", AssignStudentRequest{StudentID: "stu-1"}))
	require.NotNil(t, students.assigned["stu-1"])
	assert.Equal(t, "coh-1", *students.assigned["stu-1"])

	require.NoError(t, svc.RemoveStudent(context.Background(), "coh-1", "stu-1"))
	assert.Nil(t, students.assigned["stu-1"])
}

func TestCohortRemoveStudentNotMember(t *testing.T) {
	repo := &mockFullCohortRepo{cohorts: map[string]*models.Cohort{"coh-1": {ID: "coh-1"}}}
	students := &mockCohortStudents{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1"}},
	}}
	svc := NewCohortService(repo, students, validator.New(), zap.NewNop())

	err := svc.RemoveStudent(context.Background(), "coh-1", "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCohortDeactivateGuardsMembers(t *testing.T) {
	cohortID := "coh-1"
	repo := &mockFullCohortRepo{
		cohorts: map[string]*models.Cohort{cohortID: {ID: cohortID, Name: "Junior", Active: true}},
		members: map[string][]models.Student{cohortID: {{ID: "stu-1"}}},
	}
	svc := NewCohortService(repo, &mockCohortStudents{}, validator.New(), zap.NewNop())

	err := svc.Deactivate(context.Background(), cohortID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.members[cohortID] = nil
	require.NoError(t, svc.Deactivate(context.Background(), cohortID))
	assert.False(t, repo.cohorts[cohortID].Active)
}

func TestCohortGetDetail(t *testing.T) {
	repo := &mockFullCohortRepo{
		cohorts:  map[string]*models.Cohort{"coh-1": {ID: "coh-1", Name: "Junior"}},
		segments: map[string][]models.ScheduleSegment{"coh-1": {{GradeLabel: "7", Rank: 0}}},
		members:  map[string][]models.Student{"coh-1": {{ID: "stu-1"}}},
	}
	svc := NewCohortService(repo, &mockCohortStudents{}, validator.New(), zap.NewNop())

	detail, err := svc.Get(context.Background(), "coh-1")
	require.NoError(t, err)
	assert.Len(t, detail.Segments, 1)
	assert.Len(t, detail.Members, 1)

	_, err = svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
