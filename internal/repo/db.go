// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), schema migrations, and seeding of the static
// level and achievement catalogs.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-journal-backend/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
// When withTracing is set, the GORM OpenTelemetry plugin instruments every
// query with spans (metrics are left to the HTTP layer).
func OpenSQLite(path string, withTracing bool) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if withTracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// AutoMigrate creates or updates all application tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
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
		&domain.Idempotency{},
	)
}

// catalogLevels is the number of seeded levels.
const catalogLevels = 25

// SeedCatalog populates the static level and achievement catalogs. Inserts
// ignore conflicts, so seeding is safe to re-run on every startup.
//
// Level n requires (n-1) * (10 + (n-1)*10) points, i.e. 0, 20, 60, 120, ...
// a quadratic curve that keeps early levels quick and later ones slow.
func SeedCatalog(db *gorm.DB) error {
	levels := make([]domain.Level, 0, catalogLevels)
	for n := 1; n <= catalogLevels; n++ {
		levels = append(levels, domain.Level{
			Level:          n,
			PointsRequired: (n - 1) * (10 + (n-1)*10),
		})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&levels).Error; err != nil {
		return err
	}

	achievements := defaultAchievements()
	// Preserve catalog identity across restarts: look up by code and only
	// insert the missing rows, so user_achievements keep pointing at the
	// same IDs.
	for i := range achievements {
		var existing domain.Achievement
		err := db.Where("code = ?", achievements[i].Code).First(&existing).Error
		if err == nil {
			continue
		}
		if !isRecordNotFound(err) {
			return err
		}
		achievements[i].ID = uuid.NewString()
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&achievements[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func isRecordNotFound(err error) bool {
	return err == gorm.ErrRecordNotFound
}

// defaultAchievements is the built-in achievement catalog: one REGISTER
// entry plus three tiers per metric family.
func defaultAchievements() []domain.Achievement {
	type tier struct {
		criteria, points int
	}
	mk := func(codePrefix, name, desc, typ string, tiers []tier) []domain.Achievement {
		out := make([]domain.Achievement, 0, len(tiers))
		for i, t := range tiers {
			out = append(out, domain.Achievement{
				Code:          codePrefix + "-" + roman(i+1),
				Name:          name,
				Description:   desc,
				Type:          typ,
				Tier:          i + 1,
				Criteria:      t.criteria,
				PointsAwarded: t.points,
			})
		}
		return out
	}

	all := []domain.Achievement{{
		Code:          "first-steps",
		Name:          "First Steps",
		Description:   "Create your account and start the journey",
		Type:          domain.AchievementRegister,
		Tier:          0,
		Criteria:      0,
		PointsAwarded: 50,
	}}
	all = append(all, mk("scribe", "Scribe", "Publish journal entries", domain.AchievementJournalCount,
		[]tier{{1, 10}, {10, 25}, {30, 50}})...)
	all = append(all, mk("daily-habit", "Daily Habit", "Keep a consecutive-day journaling streak", domain.AchievementJournalStreak,
		[]tier{{3, 15}, {7, 35}, {30, 100}})...)
	all = append(all, mk("climber", "Climber", "Reach higher levels", domain.AchievementLevel,
		[]tier{{5, 20}, {10, 50}, {20, 100}})...)
	all = append(all, mk("sunny-side", "Sunny Side", "Collect happy journal entries", domain.AchievementPositiveCount,
		[]tier{{5, 15}, {20, 40}, {50, 80}})...)
	all = append(all, mk("turnaround", "Turnaround", "Bounce back from a rough entry to a happy one", domain.AchievementRiseCount,
		[]tier{{1, 20}, {5, 40}, {15, 80}})...)
	all = append(all, mk("good-run", "Good Run", "Keep a consecutive-day positive-emotion streak", domain.AchievementPositiveStreak,
		[]tier{{3, 20}, {7, 50}, {14, 100}})...)
	return all
}

// roman renders tiers 1..4 the way achievement codes expect.
func roman(n int) string {
	switch n {
	case 1:
		return "i"
	case 2:
		return "ii"
	case 3:
		return "iii"
	default:
		return "iv"
	}
}
