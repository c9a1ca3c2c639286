package service

import (
	"context"
	"time"

	"github.com/casper/babelbot/internal/domain"
	"github.com/casper/babelbot/internal/logger"
	"github.com/casper/babelbot/internal/metrics"
	"github.com/casper/babelbot/internal/repository"
)

// Archiver exports purge candidates before deletion.
type Archiver interface {
	ArchivePurged(ctx context.Context, entries []domain.CacheEntry) (string, error)
}

// RetentionJob removes aged, single-use cache entries. Entries that were
// ever reused stay indefinitely; the use_count bump on every lookup is what
// earns them the exemption.
type RetentionJob struct {
	repo       *repository.HistoryRepository
	archiver   Archiver
	maxAgeDays int
}

// NewRetentionJob creates a new retention job.
// Parameters:
//   - repo: history store handle.
//   - archiver: optional pre-purge exporter; nil disables archiving.
//   - maxAgeDays: age threshold in days.
// Returns:
//   - *RetentionJob: initialized job.
func NewRetentionJob(repo *repository.HistoryRepository, archiver Archiver, maxAgeDays int) *RetentionJob {
	return &RetentionJob{
		repo:       repo,
		archiver:   archiver,
		maxAgeDays: maxAgeDays,
	}
}

// RunOnce archives (when configured) and purges stale entries.
//
// An archive failure aborts the purge: deleting entries whose export did not
// land would lose data the archive step exists to keep.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of entries removed.
//   - error: non-nil if the archive or purge fails.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	if j.archiver != nil {
		candidates, err := j.repo.ListStale(ctx, j.maxAgeDays)
		if err != nil {
			return 0, err
		}
		if len(candidates) > 0 {
			key, err := j.archiver.ArchivePurged(ctx, candidates)
			if err != nil {
				return 0, err
			}
			logger.With(logger.Fields{logger.FieldCount: len(candidates)}).
				Info(ctx, "Archived purge candidates: key=%s", key)
		}
	}

	removed, err := j.repo.PurgeStale(ctx, j.maxAgeDays)
	if err != nil {
		return 0, err
	}
	metrics.PurgedEntriesTotal.Add(float64(removed))
	return removed, nil
}

// Run executes RunOnce on the given interval until ctx is cancelled.
// Failures are logged and the loop keeps going.
// Parameters:
//   - ctx: context whose cancellation stops the loop.
//   - interval: time between runs.
// Returns: none.
func (j *RetentionJob) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := j.RunOnce(ctx)
			if err != nil {
				logger.CtxError(ctx, "Retention run failed: %v", err)
				continue
			}
			logger.With(logger.Fields{logger.FieldCount: removed}).
				Info(ctx, "Retention run completed")
		}
	}
}
