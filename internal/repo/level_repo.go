// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the static
// level catalog and the per-user level row.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/domain"
)

// GetLevel fetches one catalog level by number, or ErrNotFound.
func GetLevel(ctx context.Context, db *gorm.DB, level int) (*domain.Level, error) {
	var l domain.Level
	if err := db.WithContext(ctx).Where("level = ?", level).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// HighestLevelForPoints returns the highest catalog level whose requirement
// the given point total meets. The catalog always contains level 1 at 0
// points, so this only returns ErrNotFound on an unseeded database.
func HighestLevelForPoints(ctx context.Context, db *gorm.DB, points int) (*domain.Level, error) {
	var l domain.Level
	err := db.WithContext(ctx).
		Where("points_required <= ?", points).
		Order("level desc").
		Limit(1).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetUserLevel fetches the stored level row for a user, or ErrNotFound when
// the user has never been leveled.
func GetUserLevel(ctx context.Context, db *gorm.DB, userID string) (*domain.UserLevel, error) {
	var ul domain.UserLevel
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&ul).Error; err != nil {
		return nil, err
	}
	return &ul, nil
}

// CreateUserLevel lazily creates the level row at level 1. A concurrent
// creation is tolerated: on a unique violation the existing row is re-read
// and returned.
func CreateUserLevel(ctx context.Context, db *gorm.DB, userID string) (*domain.UserLevel, error) {
	ul := &domain.UserLevel{UserID: userID, LevelID: 1}
	if err := db.WithContext(ctx).Create(ul).Error; err != nil {
		if isUniqueViolation(err) {
			return GetUserLevel(ctx, db, userID)
		}
		return nil, err
	}
	return ul, nil
}

// UpdateUserLevel raises the stored level for a user. The predicate keeps the
// stored value monotonic: a stale writer carrying a lower level affects zero
// rows, which is not an error.
func UpdateUserLevel(ctx context.Context, db *gorm.DB, userID string, level int) error {
	res := db.WithContext(ctx).
		Model(&domain.UserLevel{}).
		Where("user_id = ? AND level_id < ?", userID, level).
		Update("level_id", level)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

// MaxLevel returns the top of the level catalog.
func MaxLevel(ctx context.Context, db *gorm.DB) (int, error) {
	var l domain.Level
	err := db.WithContext(ctx).Order("level desc").Limit(1).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	return l.Level, err
}
