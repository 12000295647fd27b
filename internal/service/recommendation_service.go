package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/classpilot/curricula-api/internal/models"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
)

type recommendationCohortRepository interface {
	FindByID(ctx context.Context, id string) (*models.Cohort, error)
	ListSegments(ctx context.Context, cohortID string) ([]models.ScheduleSegment, error)
	MemberGradeLabels(ctx context.Context, cohortID string) ([]string, error)
}

type recommendationCatalogRepository interface {
	ListSubjectsWithChapters(ctx context.Context, gradeLabel string) ([]models.SubjectChapters, error)
}

type recommendationLedgerRepository interface {
	ListByCohort(ctx context.Context, cohortID string, gradeLabel string) ([]models.TaughtEntry, error)
}

// RecommendationService computes the teaching frontier: per relevant grade,
// per subject, the first subtopic in catalog order the cohort has not covered.
// Results are advisory and recomputed fresh on every call; overlapping calls
// may observe different ledgers, which is fine.
type RecommendationService struct {
	cohorts recommendationCohortRepository
	catalog recommendationCatalogRepository
	ledger  recommendationLedgerRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRecommendationService constructs the recommendation service.
func NewRecommendationService(cohorts recommendationCohortRepository, catalog recommendationCatalogRepository, ledger recommendationLedgerRepository, metrics *MetricsService, logger *zap.Logger) *RecommendationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationService{cohorts: cohorts, catalog: catalog, ledger: ledger, metrics: metrics, logger: logger}
}

// NextTopics returns one recommendation per (grade, subject) pair with an
// outstanding subtopic, ordered by grade then subject. An unknown cohort is a
// hard NotFound; every other empty condition degrades to an empty list.
func (s *RecommendationService) NextTopics(ctx context.Context, cohortID string) ([]models.Recommendation, error) {
	if _, err := s.cohorts.FindByID(ctx, cohortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	grades, err := s.relevantGrades(ctx, cohortID)
	if err != nil {
		return nil, err
	}

	recommendations := make([]models.Recommendation, 0)
	for _, grade := range grades {
		perGrade, err := s.gradeFrontier(ctx, cohortID, grade)
		if err != nil {
			return nil, err
		}
		recommendations = append(recommendations, perGrade...)
	}

	if s.metrics != nil {
		s.metrics.ObserveRecommendations(len(recommendations))
	}
	return recommendations, nil
}

// relevantGrades resolves the cohort's grade set: schedule segments first,
// falling back to member grade labels only when no segments exist.
func (s *RecommendationService) relevantGrades(ctx context.Context, cohortID string) ([]string, error) {
	segments, err := s.cohorts.ListSegments(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule segments")
	}
	if len(segments) > 0 {
		seen := make(map[string]struct{}, len(segments))
		grades := make([]string, 0, len(segments))
		for _, segment := range segments {
			if _, ok := seen[segment.GradeLabel]; ok {
				continue
			}
			seen[segment.GradeLabel] = struct{}{}
			grades = append(grades, segment.GradeLabel)
		}
		return grades, nil
	}

	labels, err := s.cohorts.MemberGradeLabels(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member grades")
	}
	return labels, nil
}

// gradeFrontier scans one grade's catalog against the cohort's ledger subset.
func (s *RecommendationService) gradeFrontier(ctx context.Context, cohortID, gradeLabel string) ([]models.Recommendation, error) {
	subjects, err := s.catalog.ListSubjectsWithChapters(ctx, gradeLabel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	if len(subjects) == 0 {
		return nil, nil
	}

	entries, err := s.ledger.ListByCohort(ctx, cohortID, gradeLabel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load taught ledger")
	}
	taught := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		taught[entry.ChapterID+"\x00"+entry.Subtopic] = struct{}{}
	}

	recommendations := make([]models.Recommendation, 0, len(subjects))
	for _, subject := range subjects {
		if rec, ok := s.subjectFrontier(subject, taught, gradeLabel); ok {
			recommendations = append(recommendations, rec)
		}
	}
	return recommendations, nil
}

// subjectFrontier walks chapters in catalog order and subtopics in list order,
// returning the first uncovered pair. Chapters with no parseable subtopics are
// skipped: they are neither taught nor recommendable.
func (s *RecommendationService) subjectFrontier(subject models.SubjectChapters, taught map[string]struct{}, gradeLabel string) (models.Recommendation, bool) {
	for _, chapter := range subject.Chapters {
		subtopics, err := chapter.Subtopics()
		if err != nil {
			s.logger.Warn("skipping chapter with malformed subtopic list",
				zap.String("chapter_id", chapter.ID),
				zap.String("grade_label", gradeLabel),
				zap.Error(err),
			)
			continue
		}
		for _, subtopic := range subtopics {
			if _, covered := taught[chapter.ID+"\x00"+subtopic]; covered {
				continue
			}
			return models.Recommendation{
				GradeLabel:   gradeLabel,
				Subject:      subject.Subject.Name,
				ChapterID:    chapter.ID,
				ChapterTitle: chapter.Title,
				Subtopic:     subtopic,
			}, true
		}
	}
	return models.Recommendation{}, false
}
