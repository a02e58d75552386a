package main

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	_ "github.com/weichenlin/grouplab-api/api/swagger"
	"github.com/weichenlin/grouplab-api/internal/handler"
	"github.com/weichenlin/grouplab-api/internal/repository"
	"github.com/weichenlin/grouplab-api/internal/router"
	"github.com/weichenlin/grouplab-api/internal/service"
	"github.com/weichenlin/grouplab-api/pkg/cache"
	"github.com/weichenlin/grouplab-api/pkg/config"
	"github.com/weichenlin/grouplab-api/pkg/database"
	"github.com/weichenlin/grouplab-api/pkg/export"
	"github.com/weichenlin/grouplab-api/pkg/logger"
	"github.com/weichenlin/grouplab-api/pkg/storage"
)

// @title GroupLab API
// @version 1.0.0
// @description Course project group management: rosters, groups, submissions and grading
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	contributionRepo := repository.NewContributionRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient, logr)

	authSvc := service.NewAuthService(userRepo, tokenRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "grouplab-api",
	})
	courseSvc := service.NewCourseService(courseRepo, groupRepo, userRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, courseRepo, validate, logr)
	rosterSvc := service.NewRosterImportService(userRepo, courseRepo, logr)
	gradingSvc := service.NewGradingService(groupRepo, submissionRepo, contributionRepo, scoreRepo, uploads, cfg.Uploads.MaxFileSizeBytes, validate, logr)
	exportSvc := service.NewExportService(groupRepo, courseRepo, export.NewCSVExporter(), export.NewPDFExporter(cfg.Export.PDFFontPath), logr)
	impersonationSvc := service.NewImpersonationService(sessionRepo, userRepo, cfg.Sessions.ImpersonationTTL, logr)
	userSvc := service.NewUserService(userRepo, logr)
	metricsSvc := service.NewMetricsService()

	engine := router.New(router.Dependencies{
		Config: cfg,
		Logger: logr,

		Users: userRepo,

		Auth:          authSvc,
		Impersonation: impersonationSvc,
		Metrics:       metricsSvc,

		AuthHandler:          handler.NewAuthHandler(authSvc),
		UserHandler:          handler.NewUserHandler(userSvc),
		CourseHandler:        handler.NewCourseHandler(courseSvc),
		GroupHandler:         handler.NewGroupHandler(groupSvc),
		RosterHandler:        handler.NewRosterHandler(rosterSvc, metricsSvc),
		GradingHandler:       handler.NewGradingHandler(gradingSvc, metricsSvc),
		ExportHandler:        handler.NewExportHandler(exportSvc),
		ImpersonationHandler: handler.NewImpersonationHandler(impersonationSvc),
		MetricsHandler:       handler.NewMetricsHandler(metricsSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := engine.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
