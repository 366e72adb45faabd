// Package domain defines the persistence models for users, journals, and the
// emotion-analysis records attached to them. These types are mapped with GORM
// and form the core data layer of the journaling application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Journal lifecycle states. The status only ever moves forward:
// DRAFT -> PUBLISHED -> ANALYZED.
const (
	JournalStatusDraft     = "DRAFT"
	JournalStatusPublished = "PUBLISHED"
	JournalStatusAnalyzed  = "ANALYZED"
)

// Emotion labels produced by the external classification model.
const (
	EmotionHappy   = "HAPPY"
	EmotionSad     = "SAD"
	EmotionNeutral = "NEUTRAL"
	EmotionAnger   = "ANGER"
	EmotionScared  = "SCARED"
)

// User is the identity anchor that owns all other entities. The core engine
// never mutates it except for DeviceToken, the destination for best-effort
// notifications.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique login identity (owned by the auth collaborator).
//   - DisplayName: human-readable name used in notification bodies.
//   - DeviceToken: push-notification destination; empty when unregistered.
type User struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	Email       string    `json:"email"        gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(128);not null"`
	DeviceToken string    `json:"-"            gorm:"type:varchar(512)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Journal is a single diary entry. Its status transitions are the trigger
// points for the gamification engine: publication awards entry points and
// advances the journal streak, and the later analysis event moves it to
// ANALYZED exactly once.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: identifier of the owner; indexed for efficient retrieval.
//   - Title / Content: entry text.
//   - EntryDate: the calendar day the entry is written for (may differ from
//     CreatedAt when backfilling).
//   - Starred: user bookmark flag.
//   - Status: DRAFT, PUBLISHED, or ANALYZED; strictly forward-moving.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Journal struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_journals"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null"`
	Content   string         `json:"content"    gorm:"type:text;not null"`
	EntryDate time.Time      `json:"entry_date" gorm:"not null"`
	Starred   bool           `json:"starred"    gorm:"not null;default:false"`
	Status    string         `json:"status"     gorm:"type:varchar(16);not null;default:'DRAFT';check:status IN ('DRAFT','PUBLISHED','ANALYZED')"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_user_journals,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// User is the owning account. Journals are cascade-deleted if the user
	// row is removed.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Journal.
func (Journal) TableName() string { return "journals" }

// EmotionRecord is one emotion/confidence pair reported by the external
// analysis for a journal. Zero or more records exist per journal; they are
// append-only and written once per journal. The unique index on
// (journal_id, emotion) makes duplicate event delivery a no-op at the
// storage layer.
type EmotionRecord struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	JournalID  string    `json:"journal_id"  gorm:"type:char(36);not null;index;uniqueIndex:ux_emotion_journal_label,priority:1"`
	Emotion    string    `json:"emotion"     gorm:"type:varchar(16);not null;uniqueIndex:ux_emotion_journal_label,priority:2;check:emotion IN ('HAPPY','SAD','NEUTRAL','ANGER','SCARED')"`
	Confidence float64   `json:"confidence"  gorm:"not null"`
	AnalyzedAt time.Time `json:"analyzed_at" gorm:"not null;index"`
	// Seq keeps the report order of records sharing an analysis timestamp,
	// so time-ordered scans stay deterministic within one event.
	Seq int `json:"-" gorm:"not null;default:0"`

	// Journal is the analyzed entry. Records are cascade-deleted with it.
	Journal Journal `json:"-" gorm:"foreignKey:JournalID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for EmotionRecord.
func (EmotionRecord) TableName() string { return "emotion_records" }

// JournalFeedback is the free-text commentary attached to a journal during
// analysis. At most one row exists per journal (journal_id is the primary
// key), so re-delivered events cannot duplicate it.
type JournalFeedback struct {
	JournalID string    `json:"journal_id" gorm:"type:char(36);primaryKey"`
	Feedback  string    `json:"feedback"   gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`

	Journal Journal `json:"-" gorm:"foreignKey:JournalID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for JournalFeedback.
func (JournalFeedback) TableName() string { return "journal_feedbacks" }
