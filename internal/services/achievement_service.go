// Package services – AchievementService
//
// This file implements the AchievementService, the rule engine that turns
// aggregate user state (published-journal count, streak lengths, level,
// emotion counts) into achievement unlocks and bonus points.
//
// The concurrency story is deliberately thin: Unlock attempts the
// UserAchievement insert and treats a unique-key conflict as "someone else got
// here first". Only the caller that wins the insert awards the bonus points
// and sends the notification, so two racing evaluations can never double-pay.
// Evaluation sweeps unlock every qualifying tier, not just the highest, so a
// user who jumps past several thresholds in one event collects them all.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/repo"
)

// AchievementService evaluates the achievement catalog against live user
// state and performs conflict-safe unlocks.
type AchievementService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Ledger awards ACHIEVEMENT_BONUS points on a winning unlock.
	Ledger *LedgerService
	// Streaks provides current streak lengths for streak-typed criteria.
	Streaks *StreakService
	// Emotions provides emotion aggregates for emotion-typed criteria.
	Emotions *EmotionService
	// Notifier receives the unlock notification; may be nil. Send failures
	// are logged and swallowed.
	Notifier Notifier
}

// Unlock attempts to unlock achievementID for userID.
//
// Behavior:
//   - achievementID must exist in the catalog; otherwise ErrAchievementNotFound.
//   - The UserAchievement insert is the atomic guard: on a duplicate the call
//     returns (achievement, false, nil) and performs no side effects.
//   - On the winning insert only, the achievement's PointsAwarded are appended
//     to the ledger as ACHIEVEMENT_BONUS and a notification is sent
//     (best-effort).
func (s *AchievementService) Unlock(ctx context.Context, userID, achievementID string) (*domain.Achievement, bool, error) {
	a, err := repo.GetAchievement(ctx, s.DB, achievementID)
	if err != nil {
		if isNotFound(err) {
			return nil, false, ErrAchievementNotFound
		}
		return nil, false, err
	}

	if _, err := repo.CreateUserAchievement(ctx, s.DB, userID, a.ID); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return a, false, nil
		}
		if isNotFound(err) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, err
	}

	if a.PointsAwarded > 0 {
		if _, err := s.Ledger.AddPoints(ctx, userID, domain.PointTypeAchievementBonus, a.PointsAwarded); err != nil {
			// The unlock row exists; the missing bonus is logged, not rolled
			// back. The ledger append is retryable by support tooling.
			log.Error().Err(err).
				Str("user_id", userID).
				Str("achievement", a.Code).
				Msg("achievement bonus award failed")
		}
	}

	if s.Notifier != nil {
		title := "Achievement unlocked!"
		body := fmt.Sprintf("%s — %s (+%d points)", a.Name, a.Description, a.PointsAwarded)
		if err := s.Notifier.Send(ctx, userID, title, body); err != nil {
			log.Warn().Err(err).
				Str("user_id", userID).
				Str("achievement", a.Code).
				Msg("achievement notification failed")
		}
	}

	return a, true, nil
}

// Evaluate unlocks every achievement of the given type whose criteria the
// current metric meets. Already-unlocked entries are no-ops. Individual
// unlock failures are collected but do not stop the sweep.
func (s *AchievementService) Evaluate(ctx context.Context, userID, achievementType string, metric int) error {
	catalog, err := repo.ListAchievementsByType(ctx, s.DB, achievementType)
	if err != nil {
		return err
	}
	var errs []error
	for _, a := range catalog {
		if metric < a.Criteria {
			continue
		}
		if _, _, err := s.Unlock(ctx, userID, a.ID); err != nil {
			errs = append(errs, fmt.Errorf("unlock %s: %w", a.Code, err))
		}
	}
	return errors.Join(errs...)
}

// EvaluateRegistered runs the registration trigger: the one-off REGISTER
// achievement, guarded by "no prior unlock of any kind" so it fires at most
// once even if registration side effects replay.
func (s *AchievementService) EvaluateRegistered(ctx context.Context, userID string) error {
	prior, err := repo.CountUserAchievements(ctx, s.DB, userID)
	if err != nil {
		return err
	}
	if prior > 0 {
		return nil
	}
	a, err := repo.GetRegisterAchievement(ctx, s.DB)
	if err != nil {
		if isNotFound(err) {
			// Unseeded catalog; nothing to unlock.
			return nil
		}
		return err
	}
	_, _, err = s.Unlock(ctx, userID, a.ID)
	return err
}

// EvaluateJournalPublished runs the publish trigger: JOURNAL_COUNT against
// the published-journal count, JOURNAL_STREAK against the current journal
// streak, and LEVEL against the current level (which reflects the entry
// points already awarded for this publish; a level rise caused by bonus
// points awarded during this very sweep is picked up at the next trigger).
func (s *AchievementService) EvaluateJournalPublished(ctx context.Context, userID string) error {
	var errs []error

	published, err := repo.CountPublishedJournals(ctx, s.DB, userID)
	if err != nil {
		errs = append(errs, err)
	} else if err := s.Evaluate(ctx, userID, domain.AchievementJournalCount, int(published)); err != nil {
		errs = append(errs, err)
	}

	streak, err := s.Streaks.Current(ctx, userID, domain.StreakJournal)
	if err != nil {
		errs = append(errs, err)
	} else if err := s.Evaluate(ctx, userID, domain.AchievementJournalStreak, streak.Length); err != nil {
		errs = append(errs, err)
	}

	level, err := s.Ledger.CurrentLevel(ctx, userID)
	if err != nil {
		errs = append(errs, err)
	} else if err := s.Evaluate(ctx, userID, domain.AchievementLevel, level.CurrentLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// EvaluateJournalAnalyzed runs the analysis trigger: POSITIVE_COUNT against
// the happy-record count, RISE_COUNT against the rise-transition count, and
// POSITIVE_STREAK against the current positive-emotion streak.
func (s *AchievementService) EvaluateJournalAnalyzed(ctx context.Context, userID string) error {
	var errs []error

	happy, err := s.Emotions.PositiveCount(ctx, userID)
	if err != nil {
		errs = append(errs, err)
	} else if err := s.Evaluate(ctx, userID, domain.AchievementPositiveCount, happy); err != nil {
		errs = append(errs, err)
	}

	rises, err := s.Emotions.RiseCount(ctx, userID)
	if err != nil {
		errs = append(errs, err)
	} else if err := s.Evaluate(ctx, userID, domain.AchievementRiseCount, rises); err != nil {
		errs = append(errs, err)
	}

	streak, err := s.Streaks.Current(ctx, userID, domain.StreakPositive)
	if err != nil {
		errs = append(errs, err)
	} else if err := s.Evaluate(ctx, userID, domain.AchievementPositiveStreak, streak.Length); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// All returns the full catalog with per-user completion flags, ordered by
// type then tier.
func (s *AchievementService) All(ctx context.Context, userID string) ([]repo.AchievementWithStatus, error) {
	return repo.ListAchievementsWithCompletion(ctx, s.DB, userID)
}

// Get returns one catalog entry with the user's completion state.
func (s *AchievementService) Get(ctx context.Context, userID, achievementID string) (*repo.AchievementWithStatus, error) {
	all, err := repo.ListAchievementsWithCompletion(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == achievementID {
			return &all[i], nil
		}
	}
	return nil, ErrAchievementNotFound
}

// CountForUser returns how many achievements the user has unlocked.
func (s *AchievementService) CountForUser(ctx context.Context, userID string) (int64, error) {
	return repo.CountUserAchievements(ctx, s.DB, userID)
}
