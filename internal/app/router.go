package app

import (
	"fyp_backend/internal/config"
	"fyp_backend/internal/middleware"
	"fyp_backend/internal/model"
	"fyp_backend/pkg/monitoring"

	_ "fyp_backend/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus 指标
	router.GET("/metrics", monitoring.PrometheusHandler())

	router.GET("/health", c.health.HealthCheck)

	api := router.Group("/api")
	{
		// 公开路由
		api.POST("/register", c.auth.Register)
		api.POST("/login", c.auth.Login)

		// 需要认证的路由
		auth := api.Group("")
		auth.Use(middleware.AuthMiddleware(cfg))
		auth.Use(middleware.ActivityMiddleware(repos.user))
		{
			auth.GET("/profile", c.auth.GetProfile)

			// 项目查询
			auth.GET("/projects", c.project.ListProjects)
			auth.GET("/projects/:projectId", c.project.GetProject)

			// 交付物评审流程
			auth.GET("/projects/:projectId/deliverables", c.deliverable.GetDeliverables)
			auth.PUT("/projects/:projectId/deliverables", c.deliverable.UpdateDeliverables)
			auth.POST("/projects/:projectId/deliverables/:kind/upload", c.deliverable.UploadDeliverable)
			auth.GET("/projects/:projectId/deliverables/final-report/counterpart", c.deliverable.RevealCounterpart)

			// 通知
			auth.GET("/ws", c.notification.HandleWS)
			auth.GET("/notifications", c.notification.ListNotifications)
			auth.GET("/notifications/unread-count", c.notification.UnreadCount)
			auth.PUT("/notifications/:notificationId/read", c.notification.MarkRead)
			auth.PUT("/notifications/read-all", c.notification.MarkAllRead)

			// 管理员路由
			admin := auth.Group("")
			admin.Use(middleware.RoleMiddleware(model.Admin))
			{
				admin.GET("/users", c.auth.ListUsers)
				admin.POST("/projects", c.project.CreateProject)
				admin.DELETE("/projects/:projectId", c.project.DeleteProject)
				admin.PUT("/projects/:projectId/supervisor", c.project.AssignSupervisor)
				admin.PUT("/projects/:projectId/second-reader", c.project.AssignSecondReader)
				admin.POST("/projects/:projectId/students", c.project.AddStudent)
				admin.POST("/notifications/broadcast", c.notification.Broadcast)
			}
		}
	}
}
