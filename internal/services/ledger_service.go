// Package services – LedgerService
//
// This file implements the LedgerService, the point ledger and leveling
// engine. Points are append-only transactions; a user's total is the sum over
// their rows and their level is derived from that total against the static
// level catalog. The stored per-user level row is a monotonic cache of the
// derived value: it is created lazily at level 1, raised whenever the ledger
// total crosses a catalog threshold, and never lowered.
//
// Service-level errors (e.g. ErrUserNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/repo"
)

// AwardResult describes the outcome of one point addition.
type AwardResult struct {
	// Transaction is the ledger row that was appended.
	Transaction *domain.PointTransaction `json:"transaction"`
	// TotalPoints is the user's ledger total after the addition.
	TotalPoints int `json:"total_points"`
	// Level is the user's (derived) level after the addition.
	Level int `json:"level"`
	// LevelRose reports whether this addition crossed a catalog threshold.
	LevelRose bool `json:"level_rose"`
}

// LevelProgress is the read-side view of a user's level and progress toward
// the next one. PointsRequired is the next level's threshold (the progress
// target, not the current level's floor); at the top of the catalog NextLevel
// is nil and PointsRequired and PointsToNext are 0.
type LevelProgress struct {
	CurrentLevel   int  `json:"current_level"`
	TotalPoints    int  `json:"total_points"`
	MaxLevel       int  `json:"max_level"`
	NextLevel      *int `json:"next_level,omitempty"`
	PointsRequired int  `json:"points_required"`
	PointsToNext   int  `json:"points_to_next"`
}

// LedgerService implements the point ledger and the leveling function
// derived from it.
type LedgerService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// AddPoints appends a ledger transaction of the given type for userID and
// recomputes the stored level from the new total.
//
// Semantics:
//   - userID must reference an existing user; otherwise ErrUserNotFound.
//   - The transaction row is always appended; rows are never updated or
//     deleted afterwards.
//   - The level recompute finds the highest catalog level whose requirement
//     the new total meets and raises the stored level if it is higher. The
//     stored level never decreases.
//
// The insert and the level recompute run in one transaction so a crash
// between them cannot leave points counted but the level stale.
func (s *LedgerService) AddPoints(ctx context.Context, userID, txType string, points int) (*AwardResult, error) {
	var out AwardResult

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetUser(ctx, tx, userID); err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}

		t, err := repo.InsertPointTransaction(ctx, tx, userID, txType, points)
		if err != nil {
			return err
		}

		total, err := repo.SumPoints(ctx, tx, userID)
		if err != nil {
			return err
		}

		level, rose, err := s.syncLevel(ctx, tx, userID, total)
		if err != nil {
			return err
		}

		out = AwardResult{Transaction: t, TotalPoints: total, Level: level, LevelRose: rose}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentPoints returns the user's ledger total.
func (s *LedgerService) CurrentPoints(ctx context.Context, userID string) (int, error) {
	if _, err := repo.GetUser(ctx, s.DB, userID); err != nil {
		if isNotFound(err) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return repo.SumPoints(ctx, s.DB, userID)
}

// Transactions returns the user's most recent ledger rows, newest first.
// limit <= 0 returns the full history.
func (s *LedgerService) Transactions(ctx context.Context, userID string, limit int) ([]domain.PointTransaction, error) {
	if _, err := repo.GetUser(ctx, s.DB, userID); err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return repo.ListPointTransactions(ctx, s.DB, userID, limit)
}

// CurrentLevel returns the user's level and progress toward the next one.
//
// The level is re-derived from the ledger total on every read; if the stored
// row lags behind (a missed recompute, a restored backup) it is raised to
// match, keeping the ledger the single source of truth. PointsRequired is the
// next level's threshold; at the top of the catalog NextLevel is nil and the
// progress fields are 0.
func (s *LedgerService) CurrentLevel(ctx context.Context, userID string) (*LevelProgress, error) {
	if _, err := repo.GetUser(ctx, s.DB, userID); err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	total, err := repo.SumPoints(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	level, _, err := s.syncLevel(ctx, s.DB, userID, total)
	if err != nil {
		return nil, err
	}

	maxLevel, err := repo.MaxLevel(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	p := &LevelProgress{
		CurrentLevel: level,
		TotalPoints:  total,
		MaxLevel:     maxLevel,
	}
	if level < maxLevel {
		next, err := repo.GetLevel(ctx, s.DB, level+1)
		if err != nil {
			return nil, err
		}
		n := next.Level
		p.NextLevel = &n
		p.PointsRequired = next.PointsRequired
		p.PointsToNext = next.PointsRequired - total
		if p.PointsToNext < 0 {
			p.PointsToNext = 0
		}
	}
	return p, nil
}

// syncLevel derives the level for total points, lazily creates the stored row
// at level 1, and raises it when the derived level is higher. It returns the
// effective level and whether the stored value rose.
func (s *LedgerService) syncLevel(ctx context.Context, db *gorm.DB, userID string, total int) (int, bool, error) {
	derived, err := repo.HighestLevelForPoints(ctx, db, total)
	if err != nil {
		return 0, false, err
	}

	ul, err := repo.GetUserLevel(ctx, db, userID)
	if err != nil {
		if !isNotFound(err) {
			return 0, false, err
		}
		ul, err = repo.CreateUserLevel(ctx, db, userID)
		if err != nil {
			return 0, false, err
		}
	}

	if derived.Level <= ul.LevelID {
		return ul.LevelID, false, nil
	}
	if err := repo.UpdateUserLevel(ctx, db, userID, derived.Level); err != nil {
		return 0, false, err
	}
	return derived.Level, true, nil
}
