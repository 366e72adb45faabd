package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-journal-backend/internal/domain"
)

// newTestDB opens a unique in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Journal{},
		&domain.EmotionRecord{},
		&domain.JournalFeedback{},
		&domain.PointTransaction{},
		&domain.Streak{},
		&domain.Level{},
		&domain.UserLevel{},
		&domain.Achievement{},
		&domain.UserAchievement{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedUser inserts a user and returns its id.
func seedUser(t *testing.T, db *gorm.DB) string {
	t.Helper()
	u := &domain.User{
		ID:    uuid.NewString(),
		Email: fmt.Sprintf("%s@example.com", uuid.NewString()),
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

// seedLevels inserts a small catalog: level n requires thresholds[n-1] points.
func seedLevels(t *testing.T, db *gorm.DB, thresholds ...int) {
	t.Helper()
	for i, pts := range thresholds {
		if err := db.Create(&domain.Level{Level: i + 1, PointsRequired: pts}).Error; err != nil {
			t.Fatalf("seed level %d: %v", i+1, err)
		}
	}
}

// seedJournal inserts a journal in the given status and returns its id.
func seedJournal(t *testing.T, db *gorm.DB, userID, status string) string {
	t.Helper()
	j := &domain.Journal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     "entry",
		Content:   "content",
		EntryDate: time.Now().UTC(),
		Status:    status,
	}
	if err := db.Create(j).Error; err != nil {
		t.Fatalf("seed journal: %v", err)
	}
	return j.ID
}

// seedAchievement inserts one catalog entry and returns its id.
func seedAchievement(t *testing.T, db *gorm.DB, code, achievementType string, tier, criteria, points int) string {
	t.Helper()
	a := &domain.Achievement{
		ID:            uuid.NewString(),
		Code:          code,
		Name:          code,
		Description:   code,
		Type:          achievementType,
		Tier:          tier,
		Criteria:      criteria,
		PointsAwarded: points,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("seed achievement %s: %v", code, err)
	}
	return a.ID
}

// day returns a UTC midnight timestamp offset days from a fixed base date.
func day(offset int) time.Time {
	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) Send(_ context.Context, userID, title, _ string) error {
	n.sent = append(n.sent, userID+"|"+title)
	return nil
}
