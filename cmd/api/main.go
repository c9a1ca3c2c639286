package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casper/babelbot/internal/api"
	"github.com/casper/babelbot/internal/archive"
	"github.com/casper/babelbot/internal/config"
	"github.com/casper/babelbot/internal/logger"
	"github.com/casper/babelbot/internal/metrics"
	"github.com/casper/babelbot/internal/repository"
	"github.com/casper/babelbot/internal/service"
)

func main() {
	// Initialize logger from environment (rotation, file output)
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	metrics.Register()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize store and services
	repo := repository.NewHistoryRepository(db)

	modelClient := service.NewModelClient(&service.ModelConfig{
		Provider:       cfg.Model.Provider,
		Model:          cfg.Model.Model,
		APIKey:         cfg.Model.APIKey,
		BaseURL:        cfg.Model.BaseURL,
		MaxMessageLen:  cfg.Model.MaxMessageLen,
		MaxLanguageLen: cfg.Model.MaxLanguageLen,
		RequestsPerSec: cfg.Model.RequestsPerSec,
		Burst:          cfg.Model.Burst,
	})

	translator := service.NewTranslator(repo, modelClient)
	poster := service.NewFollowupPoster(&cfg.Followup)
	dispatcher := service.NewDispatcher(translator, poster)

	appLogger.WithFields(logger.Fields{
		"model":    modelClient.GetModel(),
		"provider": cfg.Model.Provider,
		"followup": poster.IsEnabled(),
	}).Info("Translation services initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional in-process retention loop
	if cfg.Retention.Enabled {
		var archiver service.Archiver
		if cfg.Archive.Enabled {
			s3Archiver, err := archive.NewS3Archiver(&cfg.Archive)
			if err != nil {
				appLogger.WithError(err).Fatal("Failed to initialize archive storage")
			}
			if err := s3Archiver.EnsureBucket(ctx); err != nil {
				appLogger.WithError(err).Fatal("Failed to ensure archive bucket")
			}
			archiver = s3Archiver
		}

		job := service.NewRetentionJob(repo, archiver, cfg.Retention.MaxAgeDays)
		go job.Run(ctx, cfg.Retention.Interval)

		appLogger.WithFields(logger.Fields{
			"max_age_days": cfg.Retention.MaxAgeDays,
			"interval":     cfg.Retention.Interval.String(),
			"archive":      cfg.Archive.Enabled,
		}).Info("Retention loop started")
	}

	// Start HTTP server
	router := api.SetupRouter(translator, dispatcher, repo, &cfg.Server)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server shutdown failed")
	}
}
