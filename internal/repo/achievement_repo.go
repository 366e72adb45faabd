// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the static
// achievement catalog and per-user unlock rows.
//
// CreateUserAchievement is the concurrency guard of the whole achievement
// engine: the composite primary key on (user_id, achievement_id) makes the
// insert atomic at the storage layer, and only the caller that wins the
// insert may award bonus points. It must therefore stay an actual insert,
// never a check-then-insert.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/domain"
)

// GetAchievement fetches one catalog entry by ID, or ErrNotFound.
func GetAchievement(ctx context.Context, db *gorm.DB, id string) (*domain.Achievement, error) {
	var a domain.Achievement
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAchievementsByType returns catalog entries of one type with tier > 0,
// ordered by tier. The REGISTER entry (tier 0) is fetched separately via
// GetRegisterAchievement.
func ListAchievementsByType(ctx context.Context, db *gorm.DB, achievementType string) ([]domain.Achievement, error) {
	var out []domain.Achievement
	err := db.WithContext(ctx).
		Where("type = ? AND tier > 0", achievementType).
		Order("tier asc").
		Find(&out).Error
	return out, err
}

// GetRegisterAchievement returns the one-off REGISTER catalog entry.
func GetRegisterAchievement(ctx context.Context, db *gorm.DB) (*domain.Achievement, error) {
	var a domain.Achievement
	err := db.WithContext(ctx).
		Where("type = ?", domain.AchievementRegister).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AchievementWithStatus pairs a catalog entry with its per-user completion.
type AchievementWithStatus struct {
	domain.Achievement
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListAchievementsWithCompletion returns the full catalog merged with the
// user's unlock rows, ordered by type then tier. Two scoped queries are used
// instead of a join to keep the scan target a plain model type.
func ListAchievementsWithCompletion(ctx context.Context, db *gorm.DB, userID string) ([]AchievementWithStatus, error) {
	var catalog []domain.Achievement
	err := db.WithContext(ctx).
		Order("type asc, tier asc").
		Find(&catalog).Error
	if err != nil {
		return nil, err
	}

	var unlocked []domain.UserAchievement
	err = db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&unlocked).Error
	if err != nil {
		return nil, err
	}
	completedAt := make(map[string]time.Time, len(unlocked))
	for _, ua := range unlocked {
		completedAt[ua.AchievementID] = ua.CompletedAt
	}

	out := make([]AchievementWithStatus, 0, len(catalog))
	for _, a := range catalog {
		st := AchievementWithStatus{Achievement: a}
		if at, ok := completedAt[a.ID]; ok {
			st.Completed = true
			t := at
			st.CompletedAt = &t
		}
		out = append(out, st)
	}
	return out, nil
}

// CountUserAchievements returns how many achievements the user has unlocked.
func CountUserAchievements(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.UserAchievement{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// CreateUserAchievement inserts the unlock row for (userID, achievementID).
// It returns ErrDuplicate when the pair already exists; the storage-level
// primary key makes the insert race-free under concurrent evaluations.
func CreateUserAchievement(ctx context.Context, db *gorm.DB, userID, achievementID string) (*domain.UserAchievement, error) {
	ua := &domain.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		CompletedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ua).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return ua, nil
}
