package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/api"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/config"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/logger"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/service"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/storage"
)

func main() {
	// Initialize logger from environment
	log := logger.NewDefault()
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	ctx := context.Background()

	// Initialize storage provider. Credential validation happens here,
	// before anything touches the network.
	provider, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage provider")
	}

	// Ensure the bucket exists up front so upload requests fail fast
	if err := provider.EnsureBucket(ctx); err != nil {
		log.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	// Initialize upload service
	uploads := service.NewUploadService(provider, log)

	// Setup router
	router := api.SetupRouter(uploads, cfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logger.Fields{
			"port":               cfg.Server.Port,
			"mode":               cfg.Server.Mode,
			logger.FieldProvider: cfg.Storage.Provider,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}
