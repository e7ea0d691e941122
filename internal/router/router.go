package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/taskhive/backend/api/handler"
)

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	Profile *apiHandler.ProfileHandler
	Task    *apiHandler.TaskHandler
	Health  *apiHandler.HealthHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

func New(handlers Handlers, auth Middleware) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Public auth routes
	r.POST("/auth/register", handlers.Auth.Register)
	r.POST("/auth/login", handlers.Auth.Login)

	// Protected auth routes
	r.GET("/auth/profile", auth(handlers.Profile.GetProfile))
	r.GET("/auth/me", auth(handlers.Profile.GetProfile))
	r.POST("/auth/logout", auth(handlers.Auth.Logout))

	// Task routes, all owner-scoped
	r.GET("/api/tasks/user/{userId}", auth(handlers.Task.ListTasks))
	r.POST("/api/tasks", auth(handlers.Task.CreateTask))
	r.GET("/api/tasks/{userId}/{taskId}", auth(handlers.Task.GetTask))
	r.PUT("/api/tasks/{userId}/{taskId}", auth(handlers.Task.UpdateTask))
	r.DELETE("/api/tasks/{userId}/{taskId}", auth(handlers.Task.DeleteTask))
	r.GET("/api/tasks/{userId}/{taskId}/history", auth(handlers.Task.TaskHistory))

	return r
}
