// Package services – AnalysisService
//
// This file implements the AnalysisService, the processor for inbound
// journal-analysis events. One event carries the emotion classification of
// one published journal; the processor applies the emotion records, advances
// the positive-emotion streak, persists the feedback text, flips the journal
// to ANALYZED, notifies the user, and runs the analysis-triggered achievement
// sweep.
//
// Delivery is at-least-once and possibly out of order, so the whole pipeline
// leans on idempotence rather than transactions: the "already ANALYZED"
// status guard is checked before any side effect, and every individual write
// tolerates replays (duplicate-skipping emotion inserts, same-day streak
// no-ops, primary-keyed feedback). Steps are independently tolerant: one
// failing step is logged and the rest still run, because the transport will
// not redeliver a corrected payload.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/pubsub"
	"github.com/tbourn/go-journal-backend/internal/repo"
)

// DefaultPositiveConfidence is the minimum HAPPY confidence that advances the
// positive-emotion streak.
const DefaultPositiveConfidence = 0.5

// AnalysisService processes inbound analysis events.
type AnalysisService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Emotions persists the per-label records.
	Emotions *EmotionService
	// Streaks advances the positive-emotion streak.
	Streaks *StreakService
	// Ledger awards the positive-emotion points.
	Ledger *LedgerService
	// Achievements runs the analysis-triggered sweep.
	Achievements *AchievementService
	// Notifier delivers the mood notification; may be nil.
	Notifier Notifier

	// PositiveConfidence overrides DefaultPositiveConfidence when > 0.
	PositiveConfidence float64
	// PositivePoints is the POSITIVE_EMOTION award granted when a confident
	// positive analysis advances the streak. Zero disables the award.
	PositivePoints int
}

// Process applies one analysis event.
//
// Outcomes:
//   - journal missing or owned by a different user: ErrJournalNotFound.
//   - journal already ANALYZED: no-op success (duplicate delivery).
//   - journal still DRAFT: ErrInvalidState (an analysis result for an entry
//     that was never published is a pipeline fault, not a retryable race).
//   - journal PUBLISHED: the six processing steps run; step failures are
//     logged and do not abort the remaining steps or fail the call.
//
// The HTTP layer acknowledges all of these with 200; the error return only
// drives logging and metrics there.
func (s *AnalysisService) Process(ctx context.Context, ev *pubsub.AnalysisEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	j, err := repo.GetJournalByID(ctx, s.DB, ev.JournalID)
	if err != nil {
		if isNotFound(err) {
			return ErrJournalNotFound
		}
		return err
	}
	if j.UserID != ev.UserID {
		return ErrJournalNotFound
	}

	switch j.Status {
	case domain.JournalStatusAnalyzed:
		log.Debug().Str("journal_id", j.ID).Msg("journal already analyzed; event skipped")
		return nil
	case domain.JournalStatusDraft:
		return ErrInvalidState
	}

	analyzedAt := parseEventTime(ev.AnalyzedAt)
	createdAt := parseEventTime(ev.CreatedAt)

	readings := make([]EmotionReading, 0, len(ev.EmotionAnalysis))
	for _, e := range ev.EmotionAnalysis {
		readings = append(readings, EmotionReading{Emotion: e.Emotion, Confidence: e.Confidence})
	}

	// Each step is tolerant: log, remember, move on.
	step := func(name string, err error) {
		if err != nil {
			log.Error().Err(err).
				Str("journal_id", j.ID).
				Str("step", name).
				Msg("analysis step failed")
		}
	}

	step("emotion-records", s.Emotions.AddRecords(ctx, j.ID, analyzedAt, readings))

	if s.hasConfidentPositive(readings) {
		if _, err := s.Streaks.Record(ctx, j.UserID, domain.StreakPositive, analyzedAt); err != nil {
			step("positive-streak", err)
		} else if s.PositivePoints > 0 {
			_, err := s.Ledger.AddPoints(ctx, j.UserID, domain.PointTypePositiveEmotion, s.PositivePoints)
			step("positive-points", err)
		}
	}

	if ev.Feedback != "" {
		if err := repo.CreateJournalFeedback(ctx, s.DB, j.ID, ev.Feedback, createdAt); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			step("feedback", err)
		}
	}

	if err := repo.MarkJournalStatus(ctx, s.DB, j.ID, domain.JournalStatusPublished, domain.JournalStatusAnalyzed); err != nil {
		// A concurrent delivery flipped it first; its side effects are the
		// same idempotent writes ours were.
		if !isNotFound(err) {
			step("status-flip", err)
		}
	}

	if s.Notifier != nil {
		title, body := moodNotification(dominantEmotion(readings))
		if err := s.Notifier.Send(ctx, j.UserID, title, body); err != nil {
			step("notification", err)
		}
	}

	step("achievements", s.Achievements.EvaluateJournalAnalyzed(ctx, j.UserID))

	return nil
}

// hasConfidentPositive reports whether any reading is HAPPY above the
// configured confidence threshold.
func (s *AnalysisService) hasConfidentPositive(readings []EmotionReading) bool {
	threshold := s.PositiveConfidence
	if threshold <= 0 {
		threshold = DefaultPositiveConfidence
	}
	for _, r := range readings {
		if r.Emotion == domain.EmotionHappy && r.Confidence > threshold {
			return true
		}
	}
	return false
}

// dominantEmotion returns the label with the highest confidence, or "" when
// no readings were reported.
func dominantEmotion(readings []EmotionReading) string {
	best := ""
	bestConf := -1.0
	for _, r := range readings {
		if r.Confidence > bestConf {
			best = r.Emotion
			bestConf = r.Confidence
		}
	}
	return best
}

// moodNotification picks the notification template for the dominant emotion.
// Unknown or absent emotions get the default template.
func moodNotification(emotion string) (title, body string) {
	switch emotion {
	case domain.EmotionHappy:
		return "Your entry is ready", "Today reads like a good day — your journal analysis is in. Keep it going!"
	case domain.EmotionSad:
		return "Your entry is ready", "Rough days happen. Your journal analysis is in — writing it down already helps."
	case domain.EmotionAnger:
		return "Your entry is ready", "Strong feelings in today's entry. Your analysis is in — take a breath and a look."
	case domain.EmotionScared:
		return "Your entry is ready", "Today's entry carried some worry. Your analysis is in whenever you're ready."
	case domain.EmotionNeutral:
		return "Your entry is ready", "A steady day. Your journal analysis is in."
	default:
		return "Your entry is ready", "Your journal analysis is in. Open the app to see it."
	}
}

// parseEventTime parses the RFC3339 timestamps carried by analysis events,
// falling back to the current time on absent or malformed values.
func parseEventTime(v string) time.Time {
	if v == "" {
		return time.Now().UTC()
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		log.Warn().Str("value", v).Msg("unparseable event timestamp, using now")
		return time.Now().UTC()
	}
	return t.UTC()
}
