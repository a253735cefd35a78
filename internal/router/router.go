package router

import (
	"github.com/gin-gonic/gin"

	"motscan/internal/config"
	"motscan/internal/domain"
	"motscan/internal/handler"
	"motscan/internal/middleware"
	"motscan/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	authSvc service.AuthService,
	authH *handler.AuthHandler,
	screenshotH *handler.ScreenshotHandler,
	extractionH *handler.ExtractionHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.RefreshToken)

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc))

	// Screenshot routes
	screenshots := protected.Group("/screenshots")
	screenshots.POST("", screenshotH.Upload)
	screenshots.GET("/:id", screenshotH.Get)
	screenshots.GET("/:id/download", screenshotH.DownloadURL)
	screenshots.DELETE("/:id", middleware.RequireRole(domain.RoleAdmin), screenshotH.Delete)

	// Extraction job routes
	extractions := protected.Group("/extractions")
	extractions.POST("", extractionH.Create)
	extractions.GET("", extractionH.List)
	extractions.GET("/export", extractionH.Export)
	extractions.GET("/review-queue", extractionH.ReviewQueue)
	extractions.GET("/:id", extractionH.Get)
	extractions.POST("/:id/retry", extractionH.Retry)
	extractions.POST("/:id/review", middleware.RequireRole(domain.RoleAdmin, domain.RoleReviewer), extractionH.ResolveReview)

	// Registration and model metadata
	protected.GET("/registrations/:registration/check", extractionH.CheckRegistration)
	protected.GET("/models", extractionH.ModelsInfo)

	return r
}
