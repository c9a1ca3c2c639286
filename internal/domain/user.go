package domain

import "time"

// UserProfile is a known caller identified by an external (Discord) ID.
// DisplayName always holds the most recently seen value; no rename history
// is kept.
type UserProfile struct {
	ID          string    `gorm:"type:varchar(32);primaryKey" json:"id"`
	DisplayName string    `gorm:"type:varchar(128);not null" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserProfile.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (UserProfile) TableName() string {
	return "user_profiles"
}

// UsageLink records that a user triggered or benefited from a cache entry.
// A (user, entry) pair is linked at most once; deleting either side cascades
// the link away.
type UsageLink struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       string      `gorm:"type:varchar(32);not null;index:idx_usage_pair,unique" json:"user_id"`
	CacheEntryID uint        `gorm:"not null;index:idx_usage_pair,unique" json:"cache_entry_id"`
	User         UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CacheEntry   CacheEntry  `gorm:"foreignKey:CacheEntryID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}

// TableName returns the database table name for UsageLink.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (UsageLink) TableName() string {
	return "usage_links"
}

// UserStats is a read-only projection over one user's attribution history.
type UserStats struct {
	UserID           string     `json:"user_id"`
	DisplayName      string     `json:"display_name"`
	TranslationCount int64      `json:"translation_count"`
	FirstSeen        *time.Time `json:"first_seen,omitempty"`
	LastSeen         *time.Time `json:"last_seen,omitempty"`
}

// DeleteUserDataResult reports what a de-attribution removed.
type DeleteUserDataResult struct {
	LinksDeleted int64 `json:"links_deleted"`
	UserDeleted  bool  `json:"user_deleted"`
}
