package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classpilot/curricula-api/api/swagger"
	"github.com/classpilot/curricula-api/internal/handler"
	"github.com/classpilot/curricula-api/internal/middleware"
	"github.com/classpilot/curricula-api/internal/models"
	"github.com/classpilot/curricula-api/internal/repository"
	"github.com/classpilot/curricula-api/internal/service"
	"github.com/classpilot/curricula-api/pkg/cache"
	"github.com/classpilot/curricula-api/pkg/config"
	"github.com/classpilot/curricula-api/pkg/database"
	"github.com/classpilot/curricula-api/pkg/jobs"
	"github.com/classpilot/curricula-api/pkg/logger"
	corsmiddleware "github.com/classpilot/curricula-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classpilot/curricula-api/pkg/middleware/requestid"
	"github.com/classpilot/curricula-api/pkg/storage"
)

// @title Curricula API
// @version 1.0.0
// @description Adaptive curriculum tracking and teaching recommendation service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	cohortRepo := repository.NewCohortRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	lessonPlanRepo := repository.NewLessonPlanRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "curricula-api",
		Audience:           []string{"curricula"},
	})
	studentService := service.NewStudentService(studentRepo, cohortRepo, validate, logr)
	cohortService := service.NewCohortService(cohortRepo, studentRepo, validate, logr)
	ledgerService := service.NewLedgerService(ledgerRepo, cohortRepo, validate, logr)
	recommendationService := service.NewRecommendationService(cohortRepo, curriculumRepo, ledgerRepo, metricsService, logr)
	lessonPlanService := service.NewLessonPlanService(lessonPlanRepo, ledgerRepo, recommendationService, cohortRepo, validate, metricsService, logr)
	progressService := service.NewProgressService(progressRepo, studentRepo, validate, logr)
	catalogService := service.NewCatalogService(curriculumRepo, cacheRepo, cfg.Catalog.CacheTTL, logr)

	var reportService *service.ReportService
	reportQueue := jobs.NewQueue("coverage-reports", func(ctx context.Context, job jobs.Job) error {
		return reportService.ProcessJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportService = service.NewReportService(reportRepo, cohortRepo, curriculumRepo, ledgerRepo, reportQueue, store, signer, metricsService, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reportQueue.Start(ctx)
	defer reportQueue.Stop()

	// Prune report files past their retention window once an hour.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := store.Sweep(cfg.Reports.Retention); err != nil {
					logr.Sugar().Warnw("report sweep failed", "error", err)
				} else if removed > 0 {
					logr.Sugar().Infow("report files pruned", "removed", removed)
				}
			}
		}
	}()

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService, progressService)
	cohortHandler := handler.NewCohortHandler(cohortService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	recommendationHandler := handler.NewRecommendationHandler(recommendationService)
	lessonPlanHandler := handler.NewLessonPlanHandler(lessonPlanService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	reportHandler := handler.NewReportHandler(reportService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)
		api.POST("/students/register", studentHandler.Register)

		// Signed token grants access, no session required.
		api.GET("/reports/:id/download", reportHandler.Download)

		authed := api.Group("")
		authed.Use(middleware.JWT(authService))
		{
			authed.POST("/auth/logout", authHandler.Logout)
			authed.GET("/students/:id", studentHandler.Get)
			authed.GET("/students/:id/progress", studentHandler.Progress)
			authed.GET("/catalog/:grade", catalogHandler.Tree)

			staff := authed.Group("")
			staff.Use(middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
			{
				staff.POST("/students/:id/quiz-results", studentHandler.RecordQuizResult)
				staff.PUT("/students/:id/chapters/:chapterId/progress", studentHandler.SetChapterProgress)

				staff.GET("/cohorts", cohortHandler.List)
				staff.POST("/cohorts", cohortHandler.Create)
				staff.GET("/cohorts/:id", cohortHandler.Get)
				staff.DELETE("/cohorts/:id", cohortHandler.Deactivate)
				staff.PUT("/cohorts/:id/segments", cohortHandler.ReplaceSegments)
				staff.POST("/cohorts/:id/students", cohortHandler.AssignStudent)
				staff.DELETE("/cohorts/:id/students/:studentId", cohortHandler.RemoveStudent)

				staff.GET("/cohorts/:id/ledger", ledgerHandler.List)
				staff.POST("/cohorts/:id/ledger", ledgerHandler.Mark)
				staff.DELETE("/cohorts/:id/ledger", ledgerHandler.Unmark)

				staff.GET("/cohorts/:id/recommendations", recommendationHandler.NextTopics)
				staff.GET("/cohorts/:id/daily-plan", lessonPlanHandler.DailyPlan)
				staff.POST("/cohorts/:id/lesson-plans", lessonPlanHandler.ScheduleManual)
				staff.POST("/cohorts/:id/lesson-plans/from-recommendation", lessonPlanHandler.ScheduleFromRecommendation)
				staff.PATCH("/lesson-plans/:id/completion", lessonPlanHandler.ToggleCompletion)

				staff.POST("/reports", reportHandler.Create)
				staff.GET("/reports/:id", reportHandler.Status)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
