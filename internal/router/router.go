// internal/router/router.go
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/smartfit/smartfit-backend/internal/config"
	"github.com/smartfit/smartfit-backend/internal/handlers"
	"github.com/smartfit/smartfit-backend/internal/middleware"
	"github.com/smartfit/smartfit-backend/internal/services"
	"github.com/smartfit/smartfit-backend/internal/storage"
	"github.com/smartfit/smartfit-backend/internal/utils"
)

// Dependencies are the constructed services the HTTP layer is wired to.
type Dependencies struct {
	Config        *config.Config
	AuthService   *services.AuthService
	UploadService *services.UploadService
	ClosetService *services.ClosetService
	Store         storage.Store
	// StaticDir is served under /uploads when images live on local disk.
	StaticDir string
	Ping      handlers.Pinger
}

func Initialize(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	outfitHandler := handlers.NewOutfitHandler(deps.UploadService, deps.ClosetService, deps.Store)
	healthHandler := handlers.NewHealthHandler(deps.Ping)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", healthHandler.Check)

	if deps.StaticDir != "" {
		r.Static("/uploads", deps.StaticDir)
	}

	api := r.Group("/api")
	{
		// Authentication routes
		auth := api.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/profile", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Closet routes
		intake := middleware.ImageIntake(deps.Store, middleware.IntakeOptions{
			MaxFiles:    cfg.Upload.MaxFiles,
			MaxFileSize: int64(cfg.Upload.MaxFileSizeMB) << 20,
		})

		outfits := api.Group("/outfits")
		outfits.Use(middleware.AuthRequired())
		{
			outfits.GET("", outfitHandler.List)
			outfits.POST("", middleware.UploadRateLimit(), intake, outfitHandler.Upload)
			outfits.POST("/upload", middleware.UploadRateLimit(), intake, outfitHandler.Upload)
			outfits.PUT("/:id", outfitHandler.Update)
			outfits.DELETE("/:id", outfitHandler.Delete)
		}
	}

	return r
}
