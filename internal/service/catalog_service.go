package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/classpilot/curricula-api/internal/models"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
)

type catalogRepository interface {
	ListSubjectsWithChapters(ctx context.Context, gradeLabel string) ([]models.SubjectChapters, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const catalogCacheKeyPrefix = "catalog:grade:"

// CatalogService serves the curriculum tree for browsing. The taxonomy is
// read-only here and changes only when the seeder runs, so it is the one
// dataset allowed through the cache.
type CatalogService struct {
	repo   catalogRepository
	cache  catalogCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(repo catalogRepository, cache catalogCache, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CatalogService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Tree returns the subject tree for one grade, decoding subtopic lists.
// Cache failures degrade to the database read.
func (s *CatalogService) Tree(ctx context.Context, gradeLabel string) (*models.CatalogTree, error) {
	cacheKey := catalogCacheKeyPrefix + gradeLabel
	if s.cache != nil {
		var cached models.CatalogTree
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.String("grade", gradeLabel), zap.Error(err))
		}
	}

	subjects, err := s.repo.ListSubjectsWithChapters(ctx, gradeLabel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}

	tree := &models.CatalogTree{GradeLabel: gradeLabel, Subjects: make([]models.CatalogSubject, 0, len(subjects))}
	for _, subject := range subjects {
		catalogSubject := models.CatalogSubject{
			ID:       subject.Subject.ID,
			Name:     subject.Subject.Name,
			Chapters: make([]models.CatalogChapter, 0, len(subject.Chapters)),
		}
		for _, chapter := range subject.Chapters {
			subtopics, err := chapter.Subtopics()
			if err != nil {
				s.logger.Warn("chapter has malformed subtopic list", zap.String("chapter_id", chapter.ID), zap.Error(err))
				subtopics = nil
			}
			catalogSubject.Chapters = append(catalogSubject.Chapters, models.CatalogChapter{
				ID:        chapter.ID,
				Title:     chapter.Title,
				Position:  chapter.Position,
				Subtopics: subtopics,
			})
		}
		tree.Subjects = append(tree.Subjects, catalogSubject)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, tree, s.ttl); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("grade", gradeLabel), zap.Error(err))
		}
	}
	return tree, nil
}

// Invalidate drops every cached grade tree. The seeder calls this after
// repopulating the taxonomy.
func (s *CatalogService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.DeleteByPattern(ctx, catalogCacheKeyPrefix+"*"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate catalog cache")
	}
	return nil
}
