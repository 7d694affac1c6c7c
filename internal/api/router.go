package api

import (
	"github.com/gin-gonic/gin"

	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/api/handler"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/api/middleware"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/config"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(uploads *service.UploadService, cfg *config.Config) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler(cfg.Storage.Provider)
	mediaHandler := handler.NewMediaHandler(uploads, cfg.Server.MaxUploadMB)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.POST("/files", mediaHandler.Upload)
		v1.POST("/files/import", mediaHandler.Import)
		v1.DELETE("/files", mediaHandler.Delete)
	}

	return r
}
