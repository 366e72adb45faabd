// Package services – EmotionService
//
// This file implements the EmotionService, the read-side aggregator over the
// emotion records written by the analysis pipeline. All aggregates (per-label
// counts, positive count, rise count) are recomputed on demand from the
// time-ordered record history; nothing is cached. The write side is a single
// duplicate-tolerant append used by the analysis-event processor.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/repo"
)

// EmotionReading is one emotion/confidence pair reported for a journal.
type EmotionReading struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// EmotionCounts holds the per-label record counts for one user.
type EmotionCounts struct {
	Happy   int `json:"happy"`
	Sad     int `json:"sad"`
	Neutral int `json:"neutral"`
	Anger   int `json:"anger"`
	Scared  int `json:"scared"`
}

// JournalEmotions is the grouped per-journal analysis history returned by
// Grouped: all records of one journal, in analysis order.
type JournalEmotions struct {
	JournalID string                 `json:"journal_id"`
	Records   []domain.EmotionRecord `json:"records"`
}

// EmotionService aggregates emotion analysis results per user.
type EmotionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// AddRecords appends one EmotionRecord per reading for journalID, all stamped
// with analyzedAt. Readings whose label already exists for the journal are
// skipped by the storage layer, so redelivered analysis events are harmless.
func (s *EmotionService) AddRecords(ctx context.Context, journalID string, analyzedAt time.Time, readings []EmotionReading) error {
	if len(readings) == 0 {
		return nil
	}
	rows := make([]domain.EmotionRecord, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, domain.EmotionRecord{
			Emotion:    r.Emotion,
			Confidence: r.Confidence,
			AnalyzedAt: analyzedAt,
		})
	}
	_, err := repo.InsertEmotionRecords(ctx, s.DB, journalID, rows)
	return err
}

// Counts returns the per-label record counts across all of the user's
// journals. Labels with no records count zero.
func (s *EmotionService) Counts(ctx context.Context, userID string) (*EmotionCounts, error) {
	byLabel, err := repo.CountEmotionsByLabel(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	return &EmotionCounts{
		Happy:   byLabel[domain.EmotionHappy],
		Sad:     byLabel[domain.EmotionSad],
		Neutral: byLabel[domain.EmotionNeutral],
		Anger:   byLabel[domain.EmotionAnger],
		Scared:  byLabel[domain.EmotionScared],
	}, nil
}

// PositiveCount returns the number of HAPPY records across the user's
// journals.
func (s *EmotionService) PositiveCount(ctx context.Context, userID string) (int, error) {
	c, err := s.Counts(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.Happy, nil
}

// RiseCount counts the user's mood "rises": walking the globally time-ordered
// sequence of (journal, emotion) records, a rise is a consecutive pair where
// the earlier record carries a negative label (SAD, ANGER, SCARED), the later
// record is HAPPY, and the two records belong to different journals. The
// distinct-journal requirement keeps within-journal label changes from
// counting as a mood change.
func (s *EmotionService) RiseCount(ctx context.Context, userID string) (int, error) {
	records, err := repo.ListEmotionRecords(ctx, s.DB, userID)
	if err != nil {
		return 0, err
	}
	rises := 0
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if cur.JournalID == prev.JournalID {
			continue
		}
		if isNegativeEmotion(prev.Emotion) && cur.Emotion == domain.EmotionHappy {
			rises++
		}
	}
	return rises, nil
}

// Grouped returns the user's full analysis history grouped per journal, each
// group's records in analysis order and groups ordered by their earliest
// record.
func (s *EmotionService) Grouped(ctx context.Context, userID string) ([]JournalEmotions, error) {
	records, err := repo.ListEmotionRecords(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(records))
	out := make([]JournalEmotions, 0)
	for _, r := range records {
		i, ok := index[r.JournalID]
		if !ok {
			i = len(out)
			index[r.JournalID] = i
			out = append(out, JournalEmotions{JournalID: r.JournalID})
		}
		out[i].Records = append(out[i].Records, r)
	}
	return out, nil
}

func isNegativeEmotion(emotion string) bool {
	switch emotion {
	case domain.EmotionSad, domain.EmotionAnger, domain.EmotionScared:
		return true
	}
	return false
}
