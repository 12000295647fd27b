package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpilot/curricula-api/internal/models"
	appErrors "github.com/classpilot/curricula-api/pkg/errors"
)

type mockTreeCache struct {
	store   map[string][]byte
	getErr  error
	sets    int
	deletes []string
}

func (m *mockTreeCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockTreeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	m.sets++
	return nil
}

func (m *mockTreeCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes = append(m.deletes, pattern)
	m.store = nil
	return nil
}

type countingCatalogRepo struct {
	byGrade map[string][]models.SubjectChapters
	calls   int
}

func (m *countingCatalogRepo) ListSubjectsWithChapters(ctx context.Context, gradeLabel string) ([]models.SubjectChapters, error) {
	m.calls++
	return m.byGrade[gradeLabel], nil
}

func TestCatalogTreeCacheMissThenHit(t *testing.T) {
	repo := &countingCatalogRepo{byGrade: map[string][]models.SubjectChapters{"7": plantCatalog(t)}}
	cache := &mockTreeCache{}
	svc := NewCatalogService(repo, cache, time.Minute, zap.NewNop())

	tree, err := svc.Tree(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, tree.Subjects, 1)
	assert.Equal(t, []string{"Roots", "Stems", "Leaves", "Flowers"}, tree.Subjects[0].Chapters[0].Subtopics)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.sets)

	// Second read comes from the cache.
	cached, err := svc.Tree(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, tree.GradeLabel, cached.GradeLabel)
	assert.Equal(t, 1, repo.calls)
}

func TestCatalogTreeCacheErrorDegrades(t *testing.T) {
	repo := &countingCatalogRepo{byGrade: map[string][]models.SubjectChapters{"7": plantCatalog(t)}}
	cache := &mockTreeCache{getErr: errors.New("redis down")}
	svc := NewCatalogService(repo, cache, time.Minute, zap.NewNop())

	tree, err := svc.Tree(context.Background(), "7")
	require.NoError(t, err)
	assert.Len(t, tree.Subjects, 1)
	assert.Equal(t, 1, repo.calls)
}

func TestCatalogTreeWithoutCache(t *testing.T) {
	repo := &countingCatalogRepo{byGrade: map[string][]models.SubjectChapters{"7": plantCatalog(t)}}
	svc := NewCatalogService(repo, nil, time.Minute, zap.NewNop())

	tree, err := svc.Tree(context.Background(), "7")
	require.NoError(t, err)
	assert.Len(t, tree.Subjects, 1)
}

func TestCatalogTreeMalformedSubtopics(t *testing.T) {
	repo := &countingCatalogRepo{byGrade: map[string][]models.SubjectChapters{"7": {{
		Subject: models.Subject{ID: "sub-sci", Name: "Science"},
		Chapters: []models.Chapter{
			{ID: "ch-bad", Title: "Broken", Position: 1, SubtopicsRaw: "{not json"},
		},
	}}}}
	svc := NewCatalogService(repo, nil, time.Minute, zap.NewNop())

	tree, err := svc.Tree(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, tree.Subjects, 1)
	require.Len(t, tree.Subjects[0].Chapters, 1)
	assert.Empty(t, tree.Subjects[0].Chapters[0].Subtopics)
}

func TestCatalogInvalidate(t *testing.T) {
	repo := &countingCatalogRepo{byGrade: map[string][]models.SubjectChapters{"7": plantCatalog(t)}}
	cache := &mockTreeCache{}
	svc := NewCatalogService(repo, cache, time.Minute, zap.NewNop())

	_, err := svc.Tree(context.Background(), "7")
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background()))
	assert.Equal(t, []string{"catalog:grade:*"}, cache.deletes)

	_, err = svc.Tree(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}
