// Package domain defines the persistence models for the gamification engine:
// the append-only point ledger, per-category streak intervals, the static
// level catalog, and the achievement catalog with its per-user unlock rows.
package domain

import "time"

// Point transaction types recorded in the ledger.
const (
	PointTypeJournalEntry     = "JOURNAL_ENTRY"
	PointTypeStreakBonus      = "STREAK_BONUS"
	PointTypeAchievementBonus = "ACHIEVEMENT_BONUS"
	PointTypePositiveEmotion  = "POSITIVE_EMOTION"
)

// Streak categories tracked per user.
const (
	StreakJournal  = "JOURNAL_STREAK"
	StreakPositive = "POSITIVE_STREAK"
)

// Achievement types; each partitions the catalog by the metric its criteria
// threshold is compared against.
const (
	AchievementRegister       = "REGISTER"
	AchievementJournalCount   = "JOURNAL_COUNT"
	AchievementJournalStreak  = "JOURNAL_STREAK"
	AchievementLevel          = "LEVEL"
	AchievementPositiveCount  = "POSITIVE_COUNT"
	AchievementRiseCount      = "RISE_COUNT"
	AchievementPositiveStreak = "POSITIVE_STREAK"
)

// PointTransaction is one row of the append-only point ledger. Rows are never
// updated or deleted; a user's current total is the sum over all their rows.
type PointTransaction struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index"`
	Type      string    `json:"type"       gorm:"type:varchar(32);not null;check:type IN ('JOURNAL_ENTRY','STREAK_BONUS','ACHIEVEMENT_BONUS','POSITIVE_EMOTION')"`
	Points    int       `json:"points"     gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PointTransaction.
func (PointTransaction) TableName() string { return "point_transactions" }

// Streak is the contiguous-day interval state for one (user, category) pair.
// Invariant: EndDate >= StartDate; both are stored truncated to midnight UTC.
// Length is derived, never stored: days(EndDate-StartDate)+1.
type Streak struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;uniqueIndex:ux_streak_user_category,priority:1"`
	Category  string    `json:"category"   gorm:"type:varchar(32);not null;uniqueIndex:ux_streak_user_category,priority:2;check:category IN ('JOURNAL_STREAK','POSITIVE_STREAK')"`
	StartDate time.Time `json:"start_date" gorm:"not null"`
	EndDate   time.Time `json:"end_date"   gorm:"not null"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Streak.
func (Streak) TableName() string { return "streaks" }

// Length returns the streak length in days (>= 1 for any persisted row).
// Dates are compared at day granularity.
func (s Streak) Length() int {
	return int(s.EndDate.Sub(s.StartDate).Hours()/24) + 1
}

// Level is one step of the static, read-only level catalog. PointsRequired is
// monotonically increasing by level number; the current level of a user is
// the highest level whose requirement their ledger total meets.
type Level struct {
	Level          int `json:"level"           gorm:"primaryKey;autoIncrement:false"`
	PointsRequired int `json:"points_required" gorm:"not null"`
}

// TableName returns the database table name for Level.
func (Level) TableName() string { return "levels" }

// UserLevel stores the level a user has reached. It is created lazily at
// level 1 on first query and only ever moves up; the ledger remains the
// source of truth and the stored value is re-derived on read.
type UserLevel struct {
	UserID  string `json:"user_id"  gorm:"type:char(36);primaryKey"`
	LevelID int    `json:"level_id" gorm:"not null"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for UserLevel.
func (UserLevel) TableName() string { return "user_levels" }

// Achievement is one entry of the static achievement catalog.
//
// Fields:
//   - Code: stable machine-readable slug (unique).
//   - Type: the metric family the criteria applies to.
//   - Tier: rank within the type (1..n); 0 marks the one-off REGISTER entry.
//   - Criteria: the metric threshold that unlocks the achievement.
//   - PointsAwarded: the ACHIEVEMENT_BONUS ledger amount granted on unlock.
type Achievement struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	Code          string `json:"code"           gorm:"type:varchar(64);not null;uniqueIndex"`
	Name          string `json:"name"           gorm:"type:varchar(128);not null"`
	Description   string `json:"description"    gorm:"type:varchar(255);not null"`
	Type          string `json:"type"           gorm:"type:varchar(32);not null;index"`
	Tier          int    `json:"tier"           gorm:"not null"`
	Criteria      int    `json:"criteria"       gorm:"not null"`
	PointsAwarded int    `json:"points_awarded" gorm:"not null"`
}

// TableName returns the database table name for Achievement.
func (Achievement) TableName() string { return "achievements" }

// UserAchievement marks an achievement as unlocked for a user. Its existence
// is the single source of truth for "already unlocked"; the composite primary
// key makes the insert conflict-safe, which is the concurrency guard against
// double-awarding bonus points.
type UserAchievement struct {
	UserID        string    `json:"user_id"        gorm:"type:char(36);primaryKey"`
	AchievementID string    `json:"achievement_id" gorm:"type:char(36);primaryKey"`
	CompletedAt   time.Time `json:"completed_at"   gorm:"not null"`

	User        User        `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Achievement Achievement `json:"-" gorm:"foreignKey:AchievementID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for UserAchievement.
func (UserAchievement) TableName() string { return "user_achievements" }
