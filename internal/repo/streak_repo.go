// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for per-user,
// per-category streak intervals.
//
// One row exists per (user, category); the unique index ux_streak_user_category
// backs that invariant. The read-decide-write streak transition lives in the
// service layer inside a transaction; this file only exposes the primitive
// reads and writes it composes.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/domain"
)

// GetStreak fetches the streak row for (userID, category), or ErrNotFound.
func GetStreak(ctx context.Context, db *gorm.DB, userID, category string) (*domain.Streak, error) {
	var s domain.Streak
	err := db.WithContext(ctx).
		Where("user_id = ? AND category = ?", userID, category).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateStreak inserts a fresh length-1 streak with start = end = day.
// Returns ErrDuplicate when a row for (userID, category) already exists,
// which callers treat as "lost the race, re-read and retry".
func CreateStreak(ctx context.Context, db *gorm.DB, userID, category string, day time.Time) (*domain.Streak, error) {
	s := &domain.Streak{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  category,
		StartDate: day,
		EndDate:   day,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return s, nil
}

// UpdateStreakRange rewrites the interval of an existing streak row.
// Extending passes the old start with a new end; resetting passes the same
// day for both.
func UpdateStreakRange(ctx context.Context, db *gorm.DB, id string, start, end time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Streak{}).
		Where("id = ?", id).
		Updates(map[string]any{"start_date": start, "end_date": end})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
