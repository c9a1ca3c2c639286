package main

import (
	"context"
	"flag"

	"github.com/casper/babelbot/internal/archive"
	"github.com/casper/babelbot/internal/config"
	"github.com/casper/babelbot/internal/logger"
	"github.com/casper/babelbot/internal/repository"
	"github.com/casper/babelbot/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "babelbot-retention",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	maxAgeDays := flag.Int("max-age-days", 0, "Override the configured age threshold in days")
	dryRun := flag.Bool("dry-run", false, "List purge candidates without deleting or archiving")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	threshold := cfg.Retention.MaxAgeDays
	if *maxAgeDays > 0 {
		threshold = *maxAgeDays
	}

	appLogger.WithFields(logger.Fields{
		"max_age_days": threshold,
		"dry_run":      *dryRun,
		"archive":      cfg.Archive.Enabled,
	}).Info("Starting retention run")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	repo := repository.NewHistoryRepository(db)

	ctx := context.Background()

	if *dryRun {
		candidates, err := repo.ListStale(ctx, threshold)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to list purge candidates")
		}
		appLogger.WithField("count", len(candidates)).Info("Dry run: purge candidates")
		for _, entry := range candidates {
			appLogger.WithFields(logger.Fields{
				"id":          entry.ID,
				"fingerprint": entry.Fingerprint,
				"language":    entry.TargetLanguage,
				"created_at":  entry.CreatedAt,
			}).Info("Candidate")
		}
		return
	}

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

	job := service.NewRetentionJob(repo, archiver, threshold)
	removed, err := job.RunOnce(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Retention run failed")
	}

	appLogger.WithField("count", removed).Info("Retention run completed")
}
