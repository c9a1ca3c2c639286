package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casper/babelbot/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotInitialized is returned when a repository method is called before
// the repository was constructed with a live database handle.
var ErrNotInitialized = errors.New("history repository not initialized")

// HistoryRepository owns the translation cache, known users, and per-user
// link tables. All multi-row conflict resolution goes through the database's
// native insert-or-update primitive; there is no check-then-act logic that
// could race a concurrent identical operation into a duplicate row.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new HistoryRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *HistoryRepository: repository instance bound to db.
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) ready() error {
	if r == nil || r.db == nil {
		return ErrNotInitialized
	}
	return nil
}

// Lookup selects the cache entry for (fingerprint, language), if any.
//
// The read is NOT side-effect-free: a hit atomically increments use_count and
// refreshes updated_at before returning. Retention exempts entries that were
// ever reused, so callers rely on this bump happening on every hit.
//
// Should duplicate rows somehow exist, the row with the highest use_count and
// then the most recent updated_at wins, which keeps the pick deterministic.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fp: message fingerprint.
//   - language: normalized target language.
// Returns:
//   - *domain.CacheEntry: matching entry with the bump applied, or nil on miss.
//   - error: non-nil if the query fails.
func (r *HistoryRepository) Lookup(ctx context.Context, fp, language string) (*domain.CacheEntry, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var entry domain.CacheEntry
	err := r.db.WithContext(ctx).
		Where("fingerprint = ? AND target_language = ?", fp, language).
		Order("use_count DESC").
		Order("updated_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}

	now := time.Now()
	if err := r.db.WithContext(ctx).Model(&domain.CacheEntry{}).
		Where("id = ?", entry.ID).
		UpdateColumns(map[string]interface{}{
			"use_count":  gorm.Expr("use_count + 1"),
			"updated_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("cache hit bump failed: %w", err)
	}

	entry.UseCount++
	entry.UpdatedAt = now
	return &entry, nil
}

// Upsert stores a translation for (fingerprint, language). If the pair is new
// the entry is inserted with use_count = 1; otherwise translated_message and
// detected_language are overwritten, use_count is incremented, and updated_at
// refreshed. original_message is never overwritten on the update path.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fp: message fingerprint.
//   - originalMessage: raw text as submitted (stored on insert only).
//   - language: normalized target language.
//   - detectedLanguage: source language reported by the model; empty means unknown.
//   - translatedMessage: latest successful translation.
// Returns:
//   - *domain.CacheEntry: the resulting row.
//   - bool: true if the row was newly created.
//   - error: non-nil if the write fails.
func (r *HistoryRepository) Upsert(ctx context.Context, fp, originalMessage, language, detectedLanguage, translatedMessage string) (*domain.CacheEntry, bool, error) {
	if err := r.ready(); err != nil {
		return nil, false, err
	}

	var detected *string
	if detectedLanguage != "" {
		detected = &detectedLanguage
	}

	entry := &domain.CacheEntry{
		OriginalMessage:   originalMessage,
		Fingerprint:       fp,
		TargetLanguage:    language,
		DetectedLanguage:  detected,
		TranslatedMessage: translatedMessage,
		UseCount:          1,
	}

	// Insert-or-nothing keyed on the (fingerprint, target_language) unique
	// index; RowsAffected tells us whether this writer won the insert.
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}, {Name: "target_language"}},
		DoNothing: true,
	}).Create(entry)
	if res.Error != nil {
		return nil, false, fmt.Errorf("cache insert failed: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return entry, true, nil
	}

	// Existing pair: overwrite content and count the re-translation as usage.
	if err := r.db.WithContext(ctx).Model(&domain.CacheEntry{}).
		Where("fingerprint = ? AND target_language = ?", fp, language).
		Updates(map[string]interface{}{
			"translated_message": translatedMessage,
			"detected_language":  detected,
			"use_count":          gorm.Expr("use_count + 1"),
		}).Error; err != nil {
		return nil, false, fmt.Errorf("cache update failed: %w", err)
	}

	var updated domain.CacheEntry
	if err := r.db.WithContext(ctx).
		Where("fingerprint = ? AND target_language = ?", fp, language).
		Order("use_count DESC").
		Order("updated_at DESC").
		First(&updated).Error; err != nil {
		return nil, false, fmt.Errorf("cache reload failed: %w", err)
	}
	return &updated, false, nil
}

// AttributeUser upserts the user profile (display name is always overwritten
// to the most recent value) and links the user to the cache entry unless the
// (user, entry) pair is already linked. Idempotent under repeated calls.
// A profile write that succeeds followed by a link write that fails leaves
// the profile upserted and simply omits the link.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: external user identifier.
//   - displayName: current display name.
//   - cacheEntryID: cache entry to attribute.
// Returns:
//   - error: non-nil if either write fails.
func (r *HistoryRepository) AttributeUser(ctx context.Context, userID, displayName string, cacheEntryID uint) error {
	if err := r.ready(); err != nil {
		return err
	}

	profile := &domain.UserProfile{ID: userID, DisplayName: displayName}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"display_name": displayName,
			"updated_at":   time.Now(),
		}),
	}).Create(profile).Error; err != nil {
		return fmt.Errorf("user upsert failed: %w", err)
	}

	link := &domain.UsageLink{UserID: userID, CacheEntryID: cacheEntryID}
	if err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "cache_entry_id"}},
			DoNothing: true,
		}).Create(link).Error; err != nil {
		return fmt.Errorf("usage link insert failed: %w", err)
	}
	return nil
}

// DeleteUserData removes all usage links for the user, then the user profile.
// Cache entries themselves are untouched; the shared cache survives
// de-attribution. Safe to call for an unknown user.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: external user identifier.
// Returns:
//   - *domain.DeleteUserDataResult: counts of what was removed.
//   - error: non-nil if a delete fails.
func (r *HistoryRepository) DeleteUserData(ctx context.Context, userID string) (*domain.DeleteUserDataResult, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	linkRes := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.UsageLink{})
	if linkRes.Error != nil {
		return nil, fmt.Errorf("usage link delete failed: %w", linkRes.Error)
	}

	userRes := r.db.WithContext(ctx).Where("id = ?", userID).Delete(&domain.UserProfile{})
	if userRes.Error != nil {
		return nil, fmt.Errorf("user delete failed: %w", userRes.Error)
	}

	return &domain.DeleteUserDataResult{
		LinksDeleted: linkRes.RowsAffected,
		UserDeleted:  userRes.RowsAffected > 0,
	}, nil
}

// staleCondition scopes a query to purge candidates: entries past the age
// threshold that were never reused.
func staleCondition(db *gorm.DB, maxAgeDays int) *gorm.DB {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	return db.Where("created_at < ? AND use_count = 1", cutoff)
}

// ListStale returns the entries PurgeStale would remove, oldest first.
// Read-only; used by the retention job to archive before deleting.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - maxAgeDays: age threshold in days.
// Returns:
//   - []domain.CacheEntry: purge candidates.
//   - error: non-nil if the query fails.
func (r *HistoryRepository) ListStale(ctx context.Context, maxAgeDays int) ([]domain.CacheEntry, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var entries []domain.CacheEntry
	if err := staleCondition(r.db.WithContext(ctx), maxAgeDays).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("stale listing failed: %w", err)
	}
	return entries, nil
}

// PurgeStale deletes cache entries older than the threshold whose use_count
// is still exactly 1. Entries that were ever reused are retained indefinitely.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - maxAgeDays: age threshold in days.
// Returns:
//   - int64: number of entries removed.
//   - error: non-nil if the delete fails.
func (r *HistoryRepository) PurgeStale(ctx context.Context, maxAgeDays int) (int64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}

	res := staleCondition(r.db.WithContext(ctx), maxAgeDays).Delete(&domain.CacheEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// GlobalStats returns aggregate counts over the translation cache.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.GlobalStats: totals and distinct counts.
//   - error: non-nil if a query fails.
func (r *HistoryRepository) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var stats domain.GlobalStats
	db := r.db.WithContext(ctx).Model(&domain.CacheEntry{})

	if err := db.Session(&gorm.Session{}).Count(&stats.TotalEntries).Error; err != nil {
		return nil, fmt.Errorf("stats count failed: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Distinct("fingerprint").Count(&stats.DistinctFingerprints).Error; err != nil {
		return nil, fmt.Errorf("stats fingerprint count failed: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Distinct("target_language").Count(&stats.DistinctLanguages).Error; err != nil {
		return nil, fmt.Errorf("stats language count failed: %w", err)
	}
	return &stats, nil
}

// UserStats returns one user's attribution counts and first/last attribution
// timestamps. Returns nil if the user is unknown.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: external user identifier.
// Returns:
//   - *domain.UserStats: per-user projection, or nil for an unknown user.
//   - error: non-nil if a query fails.
func (r *HistoryRepository) UserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var profile domain.UserProfile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	stats := &domain.UserStats{
		UserID:      profile.ID,
		DisplayName: profile.DisplayName,
	}

	if err := r.db.WithContext(ctx).Model(&domain.UsageLink{}).
		Where("user_id = ?", userID).
		Count(&stats.TranslationCount).Error; err != nil {
		return nil, fmt.Errorf("user link count failed: %w", err)
	}

	if stats.TranslationCount > 0 {
		var oldest, newest domain.UsageLink
		if err := r.db.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("created_at ASC").
			First(&oldest).Error; err != nil {
			return nil, fmt.Errorf("oldest link lookup failed: %w", err)
		}
		if err := r.db.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			First(&newest).Error; err != nil {
			return nil, fmt.Errorf("newest link lookup failed: %w", err)
		}
		stats.FirstSeen = &oldest.CreatedAt
		stats.LastSeen = &newest.CreatedAt
	}

	return stats, nil
}
