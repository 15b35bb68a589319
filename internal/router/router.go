package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/costpilot-dev/costpilot/internal/access"
	"github.com/costpilot-dev/costpilot/internal/bootstrap"
	"github.com/costpilot-dev/costpilot/internal/handlers"
	"github.com/costpilot-dev/costpilot/internal/middleware"
	"github.com/costpilot-dev/costpilot/internal/store"
	"github.com/costpilot-dev/costpilot/internal/types"
)

func NewRouter(profiles store.ProfileStore, bootstrapper *bootstrap.Bootstrapper) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.RequestID())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authRequired := middleware.AuthMiddleware(profiles, bootstrapper)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", authRequired, handlers.NotificationStream)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.CreateUser)
			auth.POST("/login", handlers.LoginUser)
			auth.POST("/logout", handlers.LogoutUser)
			auth.GET("/me", authRequired, handlers.Me)
			auth.PATCH("/account", authRequired, handlers.UpdateAccount)
			auth.DELETE("/account", authRequired, handlers.DeleteAccount)
		}

		users := api.Group("/users", authRequired, middleware.RequirePage(access.PageUsers))
		{
			users.GET("", handlers.ListUsers)
			users.POST("", handlers.AdminCreateUser)
			users.GET("/:user_id", handlers.GetUser)
			users.PATCH("/:user_id", handlers.AdminUpdateUser)
			users.DELETE("/:user_id", handlers.AdminDeleteUser)
		}

		teams := api.Group("/teams", authRequired, middleware.RequirePage(access.PageTeams))
		{
			teams.GET("", handlers.ListTeams)
			teams.POST("", handlers.CreateTeam)
			teams.GET("/:team_id", handlers.GetTeam)
			teams.PATCH("/:team_id", handlers.UpdateTeam)
			teams.DELETE("/:team_id", handlers.DeleteTeam)
		}

		projects := api.Group("/projects", authRequired, middleware.RequirePage(access.PageProjects))
		{
			projects.POST("", handlers.CreateProject)
			projects.GET("", handlers.ListProjects)
			projects.GET("/:project_id", handlers.GetProject)
			projects.PATCH("/:project_id", handlers.UpdateProject)
			projects.DELETE("/:project_id", handlers.DeleteProject)

			projects.POST("/:project_id/approve", middleware.RequirePrivilege("projects:approve"), handlers.ApproveProject)
			projects.POST("/:project_id/reject", middleware.RequirePrivilege("projects:approve"), handlers.RejectProject)

			projects.POST("/:project_id/tasks", handlers.CreateTask)
			projects.GET("/:project_id/tasks", handlers.ListTasks)
			projects.PATCH("/:project_id/tasks/:task_id", handlers.UpdateTask)
			projects.DELETE("/:project_id/tasks/:task_id", handlers.DeleteTask)
		}

		financials := api.Group("/financials", authRequired, middleware.RequirePage(access.PageFinancials))
		{
			financials.GET("", handlers.GetFinancials)
		}

		notificationsGroup := api.Group("/notifications", authRequired, middleware.RequirePage(access.PageNotifications))
		{
			notificationsGroup.GET("", handlers.ListNotifications)
			notificationsGroup.GET("/unread", handlers.UnreadCount)
			notificationsGroup.POST("/read-all", handlers.MarkAllNotificationsRead)
			notificationsGroup.POST("/:notification_id/read", handlers.MarkNotificationRead)
			notificationsGroup.DELETE("/:notification_id", handlers.DeleteNotification)

			notificationsGroup.POST("/broadcast", middleware.RequirePrivilege("notifications:broadcast"), handlers.BroadcastNotification)
		}

		settings := api.Group("/settings", authRequired, middleware.RequirePage(access.PageSettings))
		{
			settings.GET("/preferences", handlers.GetPreferences)
			settings.PATCH("/preferences", handlers.UpdatePreferences)

			settings.POST("/push/subscribe", handlers.SubscribePush)
			settings.DELETE("/push", handlers.UnsubscribePush)
			settings.GET("/push/status", handlers.PushStatus)
		}

		admin := api.Group("/admin", authRequired, middleware.RequirePage(access.PageUsers))
		{
			admin.POST("/scan/deadlines", handlers.TriggerDeadlineScan)
		}
	}

	return r
}
