package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/auth"
	"cvbuilder/internal/guard"
	"cvbuilder/internal/store"
	"cvbuilder/internal/suggest"
)

// Dependencies 汇总路由注册所需的全部组件。
type Dependencies struct {
	DB          *gorm.DB
	Docs        store.Store
	Guard       *guard.Guard
	AuthService *auth.AuthService
	Redis       redis.UniversalClient
	Queue       TaskEnqueuer
	Objects     ExportObjects
	Suggestions *suggest.Service
	Logger      *slog.Logger

	Export            ExportOptions
	AuthRatePerMinute int
	AllowedOrigins    []string
	CookieDomain      string
}

// RegisterRoutes 注册 /v1 下的 API 路由。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	exportHandler := NewExportHandler(deps.DB, deps.Docs, deps.Queue, deps.Objects, deps.Export, deps.Logger)
	resumeHandler := NewResumeHandler(deps.Docs, deps.Guard, exportHandler, deps.Logger)
	authHandler := NewAuthHandler(deps.DB, deps.AuthService, deps.Redis, deps.Logger, deps.CookieDomain)
	wsHandler := NewWsHandler(deps.Redis, deps.AuthService, deps.Logger, deps.AllowedOrigins)
	templateHandler := NewTemplateHandler()
	suggestionHandler := NewSuggestionHandler(deps.Suggestions)
	betaHandler := NewBetaHandler(deps.DB, deps.Logger)

	authMiddleware := middleware.AuthMiddleware(deps.AuthService)
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()

	ratePerMinute := deps.AuthRatePerMinute
	if ratePerMinute <= 0 {
		ratePerMinute = 5
	}
	authLimiter := middleware.NewRateLimiter(deps.Redis, "auth", ratePerMinute, time.Minute)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		authGroup.Use(authLimiter.Middleware())
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.GET("/me", authMiddleware, authHandler.Me)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		v1.GET("/templates", templateHandler.ListTemplates)
		v1.GET("/templates/:id", templateHandler.GetTemplate)
		v1.GET("/suggestions", suggestionHandler.GetSuggestions)
		v1.POST("/beta", betaHandler.Join)

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware, passwordGate)
		{
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.POST("/:id/autosave", resumeHandler.Autosave)
			resumeGroup.POST("/:id/export", exportHandler.CreateExport)
		}

		exportGroup := v1.Group("/exports")
		exportGroup.Use(authMiddleware, passwordGate)
		{
			exportGroup.GET("/:id", exportHandler.GetExport)
			exportGroup.GET("/:id/link", exportHandler.GetExportLink)
		}
	}
}
