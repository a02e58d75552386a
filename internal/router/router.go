package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/weichenlin/grouplab-api/internal/handler"
	"github.com/weichenlin/grouplab-api/internal/middleware"
	"github.com/weichenlin/grouplab-api/internal/models"
	"github.com/weichenlin/grouplab-api/internal/repository"
	"github.com/weichenlin/grouplab-api/internal/service"
	"github.com/weichenlin/grouplab-api/pkg/config"
	"github.com/weichenlin/grouplab-api/pkg/logger"
	corsmiddleware "github.com/weichenlin/grouplab-api/pkg/middleware/cors"
	reqidmiddleware "github.com/weichenlin/grouplab-api/pkg/middleware/requestid"
)

// Dependencies carries everything route registration needs.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	Users *repository.UserRepository

	Auth          *service.AuthService
	Impersonation *service.ImpersonationService
	Metrics       *service.MetricsService

	AuthHandler          *handler.AuthHandler
	UserHandler          *handler.UserHandler
	CourseHandler        *handler.CourseHandler
	GroupHandler         *handler.GroupHandler
	RosterHandler        *handler.RosterHandler
	GradingHandler       *handler.GradingHandler
	ExportHandler        *handler.ExportHandler
	ImpersonationHandler *handler.ImpersonationHandler
	MetricsHandler       *handler.MetricsHandler
}

// New builds the gin engine with all middleware and routes registered.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", deps.MetricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", deps.MetricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", deps.AuthHandler.Login)
	api.POST("/auth/refresh", deps.AuthHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.Auth, deps.Users))
	authed.Use(middleware.Identity(deps.Impersonation))
	authed.Use(middleware.PasswordGate(
		cfg.APIPrefix+"/auth/change-password",
		cfg.APIPrefix+"/auth/logout",
		cfg.APIPrefix+"/auth/me",
	))

	authed.POST("/auth/logout", deps.AuthHandler.Logout)
	authed.POST("/auth/change-password", deps.AuthHandler.ChangePassword)
	authed.GET("/auth/me", deps.AuthHandler.Me)

	authed.GET("/me/courses", deps.CourseHandler.MyCourses)
	authed.GET("/me/memberships", deps.GroupHandler.MyMemberships)

	professor := middleware.RequireRoles(models.RoleProfessor)
	student := middleware.RequireRoles(models.RoleStudent)

	authed.GET("/courses", deps.CourseHandler.List)
	authed.GET("/courses/:id", deps.CourseHandler.Detail)
	authed.POST("/courses", professor, deps.CourseHandler.Create)
	authed.PUT("/courses/:id", professor, deps.CourseHandler.Update)
	authed.GET("/courses/:id/roster", professor, deps.CourseHandler.Roster)
	authed.POST("/courses/:id/roster", professor, deps.CourseHandler.Enroll)
	authed.POST("/courses/:id/roster/import", professor, deps.RosterHandler.ImportForCourse)
	authed.POST("/roster/import", professor, deps.RosterHandler.Import)

	authed.POST("/courses/:id/groups", student, deps.GroupHandler.Create)
	authed.GET("/groups/:id", deps.GroupHandler.Detail)
	authed.PUT("/groups/:id", student, deps.GroupHandler.Update)
	authed.POST("/memberships/:id/confirm", student, deps.GroupHandler.Confirm)

	authed.POST("/groups/:id/submissions", student, deps.GradingHandler.UploadSubmission)
	authed.GET("/groups/:id/submissions", deps.GradingHandler.ListSubmissions)
	authed.GET("/submissions/:id/download", deps.GradingHandler.DownloadSubmission)
	authed.POST("/groups/:id/contributions", student, deps.GradingHandler.DeclareContribution)
	authed.GET("/groups/:id/grading", professor, deps.GradingHandler.Grading)
	authed.PUT("/groups/:id/score", professor, deps.GradingHandler.UpdateScore)

	authed.GET("/courses/:id/grades/export", professor, deps.ExportHandler.CourseGradesCSV)
	authed.GET("/courses/:id/grades/export.pdf", professor, deps.ExportHandler.CourseGradesPDF)
	authed.GET("/grades/export", professor, deps.ExportHandler.AllGradesCSV)

	actorProfessor := middleware.RequireActorRole(models.RoleProfessor)
	authed.POST("/impersonation", actorProfessor, deps.ImpersonationHandler.Start)
	authed.DELETE("/impersonation", actorProfessor, deps.ImpersonationHandler.Stop)

	authed.GET("/users", professor, deps.UserHandler.List)
	authed.GET("/users/:id", professor, deps.UserHandler.Get)

	return r
}
