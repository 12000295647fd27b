package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpilot/curricula-api/internal/models"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
)

type mockPlanRepo struct {
	plans  map[string]*models.LessonPlan
	nextID int
}

func (m *mockPlanRepo) Create(ctx context.Context, plan *models.LessonPlan) error {
	if m.plans == nil {
		m.plans = make(map[string]*models.LessonPlan)
	}
	m.nextID++
	plan.ID = fmt.Sprintf("plan-%d", m.nextID)
	plan.PlanDate = plan.PlanDate.UTC().Truncate(24 * time.Hour)
	stored := *plan
	m.plans[plan.ID] = &stored
	return nil
}

func (m *mockPlanRepo) FindByID(ctx context.Context, id string) (*models.LessonPlan, error) {
	if p, ok := m.plans[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPlanRepo) ListByDate(ctx context.Context, cohortID string, day time.Time) ([]models.LessonPlan, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	var list []models.LessonPlan
	for _, p := range m.plans {
		if p.CohortID == cohortID && p.PlanDate.Equal(day) {
			list = append(list, *p)
		}
	}
	return list, nil
}

func (m *mockPlanRepo) ListIncompleteBefore(ctx context.Context, cohortID string, day time.Time) ([]models.LessonPlan, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	var list []models.LessonPlan
	for _, p := range m.plans {
		if p.CohortID == cohortID && p.PlanDate.Before(day) && !p.IsCompleted {
			list = append(list, *p)
		}
	}
	return list, nil
}

func (m *mockPlanRepo) SetCompletion(ctx context.Context, id string, completed bool) error {
	p, ok := m.plans[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.IsCompleted = completed
	return nil
}

type mockPlanLedger struct {
	marked []models.TaughtEntry
}

func (m *mockPlanLedger) Mark(ctx context.Context, entry *models.TaughtEntry) error {
	m.marked = append(m.marked, *entry)
	return nil
}

type mockRecommender struct {
	recs []models.Recommendation
}

func (m *mockRecommender) NextTopics(ctx context.Context, cohortID string) ([]models.Recommendation, error) {
	return m.recs, nil
}

func newPlanService(repo *mockPlanRepo, ledger *mockPlanLedger, recommender *mockRecommender) *LessonPlanService {
	cohorts := &mockCohortByID{cohorts: map[string]*models.Cohort{"coh-1": {ID: "coh-1", Name: "Junior"}}}
	return NewLessonPlanService(repo, ledger, recommender, cohorts, validator.New(), nil, zap.NewNop())
}

func day(value string) time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestDailyPlanCarryForward(t *testing.T) {
	repo := &mockPlanRepo{}
	recommender := &mockRecommender{recs: []models.Recommendation{{GradeLabel: "7", Subject: "Science", ChapterID: "ch-1", ChapterTitle: "Plant Structure", Subtopic: "Roots"}}}
	svc := newPlanService(repo, &mockPlanLedger{}, recommender)

	// Old incomplete sessions, an old completed one, and one for the day.
	stale, err := svc.ScheduleManual(context.Background(), "coh-1", ScheduleManualRequest{PlanDate: day("2026-08-01"), GradeLabel: "7", Topic: "Old lesson"})
	require.NoError(t, err)
	done, err := svc.ScheduleManual(context.Background(), "coh-1", ScheduleManualRequest{PlanDate: day("2026-08-10"), GradeLabel: "7", Topic: "Finished lesson"})
	require.NoError(t, err)
	_, err = svc.ToggleCompletion(context.Background(), done.ID, true)
	require.NoError(t, err)
	today, err := svc.ScheduleManual(context.Background(), "coh-1", ScheduleManualRequest{PlanDate: day("2026-08-20"), GradeLabel: "7", Topic: "Today's lesson"})
	require.NoError(t, err)

	plan, err := svc.DailyPlan(context.Background(), "coh-1", day("2026-08-20"))
	require.NoError(t, err)
	require.Len(t, plan.Today, 1)
	assert.Equal(t, today.ID, plan.Today[0].ID)
	require.Len(t, plan.CarriedForward, 1)
	assert.Equal(t, stale.ID, plan.CarriedForward[0].ID)
	assert.Len(t, plan.Recommendations, 1)
}

func TestDailyPlanUnknownCohort(t *testing.T) {
	svc := newPlanService(&mockPlanRepo{}, &mockPlanLedger{}, &mockRecommender{})

	_, err := svc.DailyPlan(context.Background(), "ghost", day("2026-08-20"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleManual(t *testing.T) {
	repo := &mockPlanRepo{}
	svc := newPlanService(repo, &mockPlanLedger{}, &mockRecommender{})

	plan, err := svc.ScheduleManual(context.Background(), "coh-1", ScheduleManualRequest{
		PlanDate:   day("2026-09-01"),
		GradeLabel: "7",
		Topic:      "Review session",
	})
	require.NoError(t, err)
	assert.True(t, plan.IsManual)
	assert.False(t, plan.IsCompleted)
	assert.Nil(t, plan.ChapterID)
}

func TestScheduleFromRecommendation(t *testing.T) {
	repo := &mockPlanRepo{}
	svc := newPlanService(repo, &mockPlanLedger{}, &mockRecommender{})

	plan, err := svc.ScheduleFromRecommendation(context.Background(), "coh-1", ScheduleRecommendationRequest{
		PlanDate: day("2026-09-01"),
		Recommendation: models.Recommendation{
			GradeLabel:   "7",
			Subject:      "Science",
			ChapterID:    "ch-plant",
			ChapterTitle: "Plant Structure",
			Subtopic:     "Stems",
		},
	})
	require.NoError(t, err)
	assert.False(t, plan.IsManual)
	assert.Equal(t, "Science: Plant Structure", plan.Topic)
	require.NotNil(t, plan.ChapterID)
	assert.Equal(t, "ch-plant", *plan.ChapterID)
	require.NotNil(t, plan.Subtopic)
	assert.Equal(t, "Stems", *plan.Subtopic)
}

func TestScheduleFromRecommendationIncomplete(t *testing.T) {
	svc := newPlanService(&mockPlanRepo{}, &mockPlanLedger{}, &mockRecommender{})

	_, err := svc.ScheduleFromRecommendation(context.Background(), "coh-1", ScheduleRecommendationRequest{
		PlanDate:       day("2026-09-01"),
		Recommendation: models.Recommendation{GradeLabel: "7", Subject: "Science"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestToggleCompletionWritesThroughToLedger(t *testing.T) {
	repo := &mockPlanRepo{}
	ledger := &mockPlanLedger{}
	svc := newPlanService(repo, ledger, &mockRecommender{})

	plan, err := svc.ScheduleFromRecommendation(context.Background(), "coh-1", ScheduleRecommendationRequest{
		PlanDate: day("2026-09-01"),
		Recommendation: models.Recommendation{
			GradeLabel:   "7",
			Subject:      "Science",
			ChapterID:    "ch-plant",
			ChapterTitle: "Plant Structure",
			Subtopic:     "Leaves",
		},
	})
	require.NoError(t, err)

	updated, err := svc.ToggleCompletion(context.Background(), plan.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)
	require.Len(t, ledger.marked, 1)
	assert.Equal(t, "coh-1", ledger.marked[0].CohortID)
	assert.Equal(t, "7", ledger.marked[0].GradeLabel)
	assert.Equal(t, "ch-plant", ledger.marked[0].ChapterID)
	assert.Equal(t, "Leaves", ledger.marked[0].Subtopic)
}

func TestToggleCompletionOneWay(t *testing.T) {
	repo := &mockPlanRepo{}
	ledger := &mockPlanLedger{}
	svc := newPlanService(repo, ledger, &mockRecommender{})

	plan, err := svc.ScheduleFromRecommendation(context.Background(), "coh-1", ScheduleRecommendationRequest{
		PlanDate: day("2026-09-01"),
		Recommendation: models.Recommendation{
			GradeLabel:   "7",
			Subject:      "Science",
			ChapterID:    "ch-plant",
			ChapterTitle: "Plant Structure",
			Subtopic:     "Flowers",
		},
	})
	require.NoError(t, err)

	_, err = svc.ToggleCompletion(context.Background(), plan.ID, true)
	require.NoError(t, err)
	require.Len(t, ledger.marked, 1)

	// Un-completing flips the session flag but never retracts the ledger.
	updated, err := svc.ToggleCompletion(context.Background(), plan.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsCompleted)
	assert.Len(t, ledger.marked, 1)
}

func TestToggleCompletionManualWithoutTupleSkipsLedger(t *testing.T) {
	repo := &mockPlanRepo{}
	ledger := &mockPlanLedger{}
	svc := newPlanService(repo, ledger, &mockRecommender{})

	plan, err := svc.ScheduleManual(context.Background(), "coh-1", ScheduleManualRequest{
		PlanDate:   day("2026-09-01"),
		GradeLabel: "7",
		Topic:      "Field trip",
	})
	require.NoError(t, err)

	_, err = svc.ToggleCompletion(context.Background(), plan.ID, true)
	require.NoError(t, err)
	assert.Empty(t, ledger.marked)
}

func TestToggleCompletionNotFound(t *testing.T) {
	svc := newPlanService(&mockPlanRepo{}, &mockPlanLedger{}, &mockRecommender{})

	_, err := svc.ToggleCompletion(context.Background(), "missing", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
