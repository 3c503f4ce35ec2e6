package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zyncjobs/backend/internal/handlers"
	authmw "github.com/zyncjobs/backend/internal/middleware/auth"
)

type Deps struct {
	DB                 *gorm.DB
	Guard              *authmw.Guard
	AuthHandler        *handlers.AuthHandler
	JobHandler         *handlers.JobHandler
	ApplicationHandler *handlers.ApplicationHandler
	CompanyHandler     *handlers.CompanyHandler
	SearchHandler      *handlers.SearchHandler
	ChatHandler        *handlers.ChatHandler
	ResumeHandler      *handlers.ResumeHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")

	users := api.Group("/users")
	users.POST("/register", d.AuthHandler.Register)
	users.POST("/login", d.AuthHandler.Login)
	users.POST("/refresh", d.AuthHandler.Refresh)
	users.POST("/logout", d.AuthHandler.Logout, d.Guard.RequireLogin)

	api.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	api.GET("/verify-reset-token/:token", d.AuthHandler.VerifyResetToken)
	api.POST("/reset-password", d.AuthHandler.ResetPassword)

	jobs := api.Group("/jobs")
	jobs.GET("", d.JobHandler.GetJobs)
	jobs.GET("/search", d.SearchHandler.Search)
	jobs.GET("/:id", d.JobHandler.GetJob)

	employerJobs := api.Group("/jobs", d.Guard.RequireLogin, authmw.RequireRole(handlers.RoleEmployer))
	employerJobs.POST("", d.JobHandler.CreateJob)
	employerJobs.DELETE("/:id", d.JobHandler.DeleteJob)
	employerJobs.GET("/employer/mine", d.JobHandler.EmployerJobs)

	applications := api.Group("/applications", d.Guard.RequireLogin)
	applications.POST("", d.ApplicationHandler.Apply, authmw.RequireRole(handlers.RoleJobseeker))
	applications.GET("", d.ApplicationHandler.MyApplications, authmw.RequireRole(handlers.RoleJobseeker))
	applications.GET("/job/:jobId", d.ApplicationHandler.JobApplications, authmw.RequireRole(handlers.RoleEmployer))
	applications.PUT("/:id/status", d.ApplicationHandler.UpdateStatus, authmw.RequireRole(handlers.RoleEmployer))

	companies := api.Group("/companies")
	companies.GET("", d.CompanyHandler.GetCompanies)
	companies.GET("/:id", d.CompanyHandler.GetCompany)
	api.POST("/companies", d.CompanyHandler.CreateCompany, d.Guard.RequireLogin, authmw.RequireRole(handlers.RoleEmployer))
	api.GET("/company/search", d.CompanyHandler.SearchCompanies)

	api.POST("/chat", d.ChatHandler.Chat)

	aiGroup := api.Group("/ai", d.Guard.RequireLogin)
	aiGroup.POST("/enhance-resume", d.ResumeHandler.EnhanceResume)
	aiGroup.POST("/generate-job-description", d.ResumeHandler.GenerateJobDescription)
	aiGroup.POST("/career-advice", d.ResumeHandler.CareerAdvice)
}
