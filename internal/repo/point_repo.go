// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// point ledger.
//
// Ledger rows are inserted and summed, never updated or deleted. The sum over
// a user's rows is the authoritative point total from which the level is
// derived.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/domain"
)

// InsertPointTransaction appends one ledger row for userID.
func InsertPointTransaction(ctx context.Context, db *gorm.DB, userID, txType string, points int) (*domain.PointTransaction, error) {
	t := &domain.PointTransaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      txType,
		Points:    points,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// SumPoints returns the user's current point total: the sum over all their
// ledger rows, 0 when none exist.
func SumPoints(ctx context.Context, db *gorm.DB, userID string) (int, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.PointTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return int(total), err
}

// ListPointTransactions returns a user's ledger rows, newest first.
func ListPointTransactions(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.PointTransaction, error) {
	var out []domain.PointTransaction
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
