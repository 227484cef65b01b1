package app

import (
	"learning_progress_backend/docs"
	"learning_progress_backend/internal/config"
	"learning_progress_backend/internal/middleware"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/util"
	"learning_progress_backend/pkg/monitoring"
	"learning_progress_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/api/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret),
		a.limiter.Middleware(security.KeyByUser(util.ContextUserKey)),
	)
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	modules := rg.Group("/modules")
	{
		modules.POST("/:id/enroll", c.enrollment.Enroll)
		modules.GET("/:id/progress", c.progress.ModuleProgress)
	}

	enrollments := rg.Group("/enrollments")
	{
		enrollments.GET("", c.enrollment.List)
		enrollments.GET("/:id", c.enrollment.Get)
		enrollments.POST("/:id/pause", c.enrollment.Pause)
		enrollments.POST("/:id/resume", c.enrollment.Resume)
		enrollments.POST("/:id/complete", c.enrollment.Complete)
		enrollments.POST("/:id/drop", c.enrollment.Drop)
	}

	contents := rg.Group("/contents")
	{
		contents.GET("/:id/progress", c.progress.GetProgress)
		contents.PUT("/:id/progress", c.progress.UpdateProgress)
		contents.POST("/:id/progress", c.progress.UpdateProgress)
		contents.POST("/:id/complete", c.progress.CompleteContent)
	}

	rg.GET("/streak", c.streak.GetStatus)
	rg.POST("/streak/activity", c.streak.RecordActivity)
	rg.GET("/me/stats", c.streak.GetStats)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		admin.GET("/users/:userId/enrollments", middleware.RoleMiddleware(model.Admin, model.Teacher), c.admin.ListUserEnrollments)

		adminOnly := admin.Group("/")
		adminOnly.Use(middleware.RoleMiddleware(model.Admin))
		{
			adminOnly.POST("/contents/:id/deactivate", c.admin.DeactivateContent)
		}
	}
}
