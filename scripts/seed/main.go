package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/classpilot/curricula-api/internal/models"
	"github.com/classpilot/curricula-api/internal/repository"
	"github.com/classpilot/curricula-api/pkg/cache"
	"github.com/classpilot/curricula-api/pkg/config"
	"github.com/classpilot/curricula-api/pkg/database"
)

type chapterSeed struct {
	Title     string   `json:"title"`
	Subtopics []string `json:"subtopics"`
}

type subjectSeed struct {
	Name     string        `json:"name"`
	Chapters []chapterSeed `json:"chapters"`
}

type gradeSeed struct {
	Label    string        `json:"label"`
	Subjects []subjectSeed `json:"subjects"`
}

type catalogSeed struct {
	Grades []gradeSeed `json:"grades"`
}

// Seeds the curriculum catalog from a JSON file. Chapter order within a
// subject and subtopic order within a chapter follow the file exactly; both
// orders drive recommendation selection.
func main() {
	var (
		seedPath   string
		flushCache bool
		timeout    time.Duration
	)
	flag.StringVar(&seedPath, "file", "scripts/seed/catalog.json", "Path to catalog seed JSON")
	flag.BoolVar(&flushCache, "flush-cache", true, "Invalidate cached catalog trees after seeding")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall seeding timeout")
	flag.Parse()

	seed, err := loadSeed(seedPath)
	if err != nil {
		log.Fatalf("failed to load seed file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	repo := repository.NewCurriculumRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var grades, subjects, chapters int
	for _, gradeSpec := range seed.Grades {
		grade, err := repo.UpsertGrade(ctx, gradeSpec.Label)
		if err != nil {
			log.Fatalf("seed grade %s: %v", gradeSpec.Label, err)
		}
		grades++

		for _, subjectSpec := range gradeSpec.Subjects {
			subject, err := repo.UpsertSubject(ctx, grade.ID, subjectSpec.Name)
			if err != nil {
				log.Fatalf("seed subject %s: %v", subjectSpec.Name, err)
			}
			subjects++

			for position, chapterSpec := range subjectSpec.Chapters {
				chapter := &models.Chapter{
					SubjectID: subject.ID,
					Title:     chapterSpec.Title,
					Position:  position + 1,
				}
				if err := chapter.SetSubtopics(chapterSpec.Subtopics); err != nil {
					log.Fatalf("encode subtopics for %s: %v", chapterSpec.Title, err)
				}
				if err := repo.UpsertChapter(ctx, chapter); err != nil {
					log.Fatalf("seed chapter %s: %v", chapterSpec.Title, err)
				}
				chapters++
			}
		}
	}

	if flushCache {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			log.Printf("redis unavailable, skipping cache flush: %v", err)
		} else {
			defer redisClient.Close()
			iter := redisClient.Scan(ctx, 0, "catalog:grade:*", 0).Iterator()
			for iter.Next(ctx) {
				if err := redisClient.Del(ctx, iter.Val()).Err(); err != nil {
					log.Printf("cache flush failed for %s: %v", iter.Val(), err)
				}
			}
			if err := iter.Err(); err != nil {
				log.Printf("cache scan failed: %v", err)
			}
		}
	}

	fmt.Printf("seeded %d grades, %d subjects, %d chapters\n", grades, subjects, chapters)
}

func loadSeed(path string) (*catalogSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed catalogSeed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &seed, nil
}
