// Package server contain implementation of go-gin-server and each route handlers
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"PartTimeJob-backend/internal/auth"
	"PartTimeJob-backend/internal/controller/application"
	"PartTimeJob-backend/internal/controller/jobpost"
	"PartTimeJob-backend/internal/controller/registration"
	"PartTimeJob-backend/internal/middleware"
	"PartTimeJob-backend/internal/model"
)

// RegisterRoutes will register each http endpoint routes to bound Server instance
func (s *MyServer) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(middleware.Tracing(s.Tracer), gin.Recovery(), middleware.RequestLogger(s.Logger), middleware.SafeHeader())

	if len(s.Config.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.Config.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
			AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	lAuth := auth.NewLocalAuthHandler(s.DB, s.Tokens)
	posts := jobpost.NewJobPostController(s.Posts)
	apps := application.NewApplicationController(s.Applications)
	regs := registration.NewRegistrationController(s.Registrations)

	limit := middleware.RateLimiterMiddleware(uint(s.Config.RateLimitPerSecond), s.Redis)
	requireAuth := middleware.RequireAuth(s.DB, s.Tokens)

	r.GET("/health", s.healthHandler)
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequestTimeout(s.Config.RequestTimeout), middleware.SizeLimit(middleware.DefaultMaxBodyBytes))
	{
		authRoute := v1.Group("/auth")
		{
			authRoute.POST("login", limit, lAuth.LocalLoginHandler)
			authRoute.POST("register", limit, lAuth.LocalRegisterHandler)
			authRoute.GET("me", requireAuth, lAuth.MeHandler)
		}

		// Readable without logging in
		public := v1.Group("")
		{
			public.Use(middleware.OptionalAuth(s.DB, s.Tokens), limit)
			public.GET("jobposts", posts.GetOpenPosts)
			public.GET("jobposts/:id", posts.GetPostByID)
			public.GET("jobposts/:id/history", posts.GetPostHistory)
			public.GET("jobposts/:id/shifts", posts.GetShifts)
			public.GET("companies/:id/jobposts", posts.GetCompanyPosts)
		}

		needAuth := v1.Group("")
		{
			needAuth.Use(requireAuth, limit)

			needAuth.GET("applications/:id", apps.GetApplication)
			needAuth.POST("applications/:id/withdraw", apps.WithdrawHandler)

			needAuth.POST("registrations", regs.RequestHandler)
			needAuth.GET("registrations/mine", regs.ListMyRegistrations)
			needAuth.GET("registrations/:id", regs.GetRegistration)

			needEmployer := needAuth.Group("")
			{
				needEmployer.Use(middleware.CheckRole(model.RoleEmployer))
				needEmployer.POST("jobposts", posts.CreateJobPostHandler)
				needEmployer.GET("jobposts/mine", posts.GetMyPosts)
				needEmployer.PATCH("jobposts/:id", posts.EditJobPost)
				needEmployer.DELETE("jobposts/:id", posts.DeleteJobPost)
				needEmployer.POST("jobposts/:id/transition", posts.TransitionJobPost)
				needEmployer.POST("jobposts/:id/shifts", posts.AddShift)
				needEmployer.PATCH("jobposts/shifts/:shiftID", posts.UpdateShift)
				needEmployer.DELETE("jobposts/shifts/:shiftID", posts.DeleteShift)
				needEmployer.GET("jobposts/:id/applications", apps.GetPostApplications)
				needEmployer.GET("jobposts/:id/applications/stats", apps.GetPostStats)
				needEmployer.POST("applications/:id/transition", apps.TransitionHandler)
			}

			needStudent := needAuth.Group("")
			{
				needStudent.Use(middleware.CheckRole(model.RoleStudent))
				needStudent.POST("jobposts/:id/applications", apps.ApplyHandler)
				needStudent.GET("applications/mine", apps.GetMyApplications)
			}

			needAdmin := needAuth.Group("")
			{
				needAdmin.Use(middleware.CheckRole(model.RoleAdmin))
				needAdmin.GET("registrations", regs.ListRegistrations)
				needAdmin.POST("registrations/:id/approve", regs.ApproveHandler)
				needAdmin.POST("registrations/:id/reject", regs.RejectHandler)
			}
		}
	}

	return r
}

func (s *MyServer) healthHandler(c *gin.Context) {
	health := s.DB.Health()
	status := http.StatusOK
	if health["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}
