// Package services – StreakService
//
// This file implements the StreakService, the per-user, per-category
// contiguous-day streak state machine. A streak is a (startDate, endDate)
// interval at day granularity; its length is derived, never stored. Record
// runs the transition for one qualifying event; Current is the read side and
// surfaces "no streak yet" as a zero-length status rather than an error.
//
// Category is always explicit. The known categories are JOURNAL_STREAK
// (advanced on journal publication) and POSITIVE_STREAK (advanced when an
// analysis reports a confident HAPPY emotion).
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/repo"
)

// StreakStatus is the read-side view of one streak. StartDate and EndDate are
// nil and Length is 0 when the user has never recorded an event in the
// category.
type StreakStatus struct {
	Category  string     `json:"category"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Length    int        `json:"length"`
}

// StreakService implements the day-granularity streak state machine.
type StreakService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Record applies one qualifying event for (userID, category) occurring at the
// given instant.
//
// Transitions, with "today" the event's calendar day in UTC:
//   - no row exists            -> create {start=today, end=today} (length 1)
//   - today == endDate         -> no-op (same-day repeats are idempotent)
//   - today == endDate + 1 day -> extend: endDate = today
//   - today  > endDate + 1 day -> reset: start = end = today
//
// An event dated before the current endDate is also a no-op: analysis events
// can arrive out of order and a stale day must not rewind the interval.
//
// The read-decide-write sequence runs in one transaction; a concurrent
// creation for the same (user, category) loses the unique-index race, re-reads
// the winner's row, and applies the transition to it.
func (s *StreakService) Record(ctx context.Context, userID, category string, at time.Time) (*domain.Streak, error) {
	if !validCategory(category) {
		return nil, ErrInvalidCategory
	}
	day := truncateToDay(at)

	var out *domain.Streak
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := repo.GetStreak(ctx, tx, userID, category)
		if err != nil {
			if !isNotFound(err) {
				return err
			}
			st, err = repo.CreateStreak(ctx, tx, userID, category, day)
			if err == nil {
				out = st
				return nil
			}
			if err != repo.ErrDuplicate {
				return err
			}
			// Lost the creation race; fall through to the transition on the
			// winner's row.
			st, err = repo.GetStreak(ctx, tx, userID, category)
			if err != nil {
				return err
			}
		}

		end := truncateToDay(st.EndDate)
		switch gap := daysBetween(end, day); {
		case gap <= 0:
			// Already recorded today, or a stale out-of-order day.
		case gap == 1:
			if err := repo.UpdateStreakRange(ctx, tx, st.ID, st.StartDate, day); err != nil {
				return err
			}
			st.EndDate = day
		default:
			if err := repo.UpdateStreakRange(ctx, tx, st.ID, day, day); err != nil {
				return err
			}
			st.StartDate = day
			st.EndDate = day
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Current returns the streak status for (userID, category). A user with no
// recorded event in the category gets a zero-length status, not an error.
func (s *StreakService) Current(ctx context.Context, userID, category string) (*StreakStatus, error) {
	if !validCategory(category) {
		return nil, ErrInvalidCategory
	}
	st, err := repo.GetStreak(ctx, s.DB, userID, category)
	if err != nil {
		if isNotFound(err) {
			return &StreakStatus{Category: category}, nil
		}
		return nil, err
	}
	start := st.StartDate
	end := st.EndDate
	return &StreakStatus{
		Category:  category,
		StartDate: &start,
		EndDate:   &end,
		Length:    st.Length(),
	}, nil
}

func validCategory(category string) bool {
	return category == domain.StreakJournal || category == domain.StreakPositive
}

// truncateToDay drops the time-of-day component in UTC. All streak arithmetic
// happens on these midnight-UTC values.
func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole calendar days from a to b (negative when b is
// before a). Inputs must already be day-truncated.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
