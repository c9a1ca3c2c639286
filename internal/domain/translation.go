package domain

import "time"

// CacheEntry represents a stored translation keyed by message fingerprint and
// target language. Equivalent submissions (same normalized text, same language)
// converge on a single row via the (fingerprint, target_language) unique index.
type CacheEntry struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	OriginalMessage   string    `gorm:"type:text;not null" json:"original_message"`
	Fingerprint       string    `gorm:"type:varchar(64);not null;index:idx_cache_key,unique" json:"fingerprint"`
	TargetLanguage    string    `gorm:"type:varchar(64);not null;index:idx_cache_key,unique" json:"target_language"`
	DetectedLanguage  *string   `gorm:"type:varchar(64)" json:"detected_language,omitempty"`
	TranslatedMessage string    `gorm:"type:text;not null" json:"translated_message"`
	UseCount          int64     `gorm:"not null;default:1" json:"use_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for CacheEntry.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (CacheEntry) TableName() string {
	return "cache_entries"
}

// TranslationResult is the value returned to callers of the translate
// operation. FromCache reports whether the result was served from storage.
type TranslationResult struct {
	OriginalMessage   string `json:"original_message"`
	TranslatedMessage string `json:"translated_message"`
	DetectedLanguage  string `json:"detected_language"`
	TargetLanguage    string `json:"target_language"`
	FromCache         bool   `json:"from_cache"`
	UseCount          int64  `json:"use_count"`
}

// GlobalStats is a read-only projection over the translation cache.
type GlobalStats struct {
	TotalEntries         int64 `json:"total_entries"`
	DistinctFingerprints int64 `json:"distinct_fingerprints"`
	DistinctLanguages    int64 `json:"distinct_languages"`
}
