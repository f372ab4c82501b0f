package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/internal/auth"
	"github.com/taskhive-dev/taskhive/internal/authz"
	"github.com/taskhive-dev/taskhive/internal/config"
	"github.com/taskhive-dev/taskhive/internal/events"
	"github.com/taskhive-dev/taskhive/internal/handlers"
	"github.com/taskhive-dev/taskhive/internal/middleware"
	"gorm.io/gorm"
)

// Deps carries everything the routes need; nothing here is package-global.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Auth   *auth.Service
	Broker *events.Broker
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "X-Access-Token"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	guard := middleware.NewGuard(deps.Auth, deps.DB, deps.Config.Production())
	resourceGuard := authz.NewGuard(deps.DB)

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Config.Production())
	workspaceHandler := handlers.NewWorkspaceHandler(deps.DB, resourceGuard)
	projectHandler := handlers.NewProjectHandler(deps.DB, resourceGuard, deps.Broker)
	taskHandler := handlers.NewTaskHandler(deps.DB, resourceGuard, deps.Broker)
	notificationHandler := handlers.NewNotificationHandler(deps.DB, resourceGuard)
	userHandler := handlers.NewUserHandler(deps.DB)
	wsHandler := handlers.NewWSHandler(deps.DB, resourceGuard, deps.Broker, deps.Config.CORSOrigins)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws/workspaces/:workspace_id/tasks", guard.RequireAuth(), wsHandler.TaskEvents)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", guard.RequireAuth(), authHandler.Me)
			authRoutes.POST("/password-reset/request", authHandler.RequestPasswordReset)
			authRoutes.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
		}

		api.GET("/users", guard.RequireAuth(), userHandler.List)

		workspaces := api.Group("/workspaces", guard.RequireAuth())
		{
			workspaces.POST("", workspaceHandler.Create)
			workspaces.GET("", workspaceHandler.List)
			workspaces.GET("/:workspace_id", workspaceHandler.Get)
			workspaces.GET("/:workspace_id/projects", workspaceHandler.Projects)
			workspaces.POST("/:workspace_id/projects", workspaceHandler.CreateProject)
			workspaces.POST("/:workspace_id/members", workspaceHandler.AddMember)
			workspaces.PATCH("/:workspace_id/members/:user_id", workspaceHandler.UpdateMemberRole)
			workspaces.DELETE("/:workspace_id/members/:user_id", workspaceHandler.RemoveMember)
		}

		projects := api.Group("/projects", guard.RequireAuth())
		{
			projects.GET("/:project_id", projectHandler.Get)
			projects.POST("/:project_id/members", projectHandler.AddMember)
			projects.DELETE("/:project_id/members/:user_id", projectHandler.RemoveMember)
			projects.GET("/:project_id/tasks", projectHandler.Tasks)
			projects.POST("/:project_id/tasks", projectHandler.AddTask)
		}

		tasks := api.Group("/tasks", guard.RequireAuth())
		{
			tasks.GET("", taskHandler.MyTasks)
			tasks.GET("/:task_id", taskHandler.Get)
			tasks.PATCH("/:task_id/status", taskHandler.UpdateStatus)
			tasks.POST("/:task_id/assignees", taskHandler.Assign)
			tasks.DELETE("/:task_id/assignees/:user_id", taskHandler.Unassign)
		}

		notifications := api.Group("/notifications", guard.RequireAuth())
		{
			notifications.GET("", notificationHandler.List)
			notifications.PATCH("/:notification_id/seen", notificationHandler.MarkSeen)
		}
	}

	return r
}
