// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for emotion records
// and journal feedback written by the analysis pipeline.
//
// Emotion-record inserts tolerate duplicates: the unique index on
// (journal_id, emotion) means a redelivered analysis event simply affects
// zero rows. The time-ordered listing feeds the rise-count aggregate, so its
// ordering matters: analyzed_at first, then seq so records sharing one
// event's timestamp keep their report order.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-journal-backend/internal/domain"
)

// InsertEmotionRecords appends one record per reported emotion/confidence
// pair for a journal. Conflicting rows (same journal, same label) are
// silently skipped, making the write idempotent under redelivery.
func InsertEmotionRecords(ctx context.Context, db *gorm.DB, journalID string, records []domain.EmotionRecord) ([]domain.EmotionRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	rows := make([]domain.EmotionRecord, 0, len(records))
	for i, r := range records {
		r.ID = uuid.NewString()
		r.JournalID = journalID
		r.Seq = i
		rows = append(rows, r)
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListEmotionRecords returns all emotion records across a user's journals,
// ordered by analysis time with the within-event seq as tiebreak. This is the
// sequence the rise-count transition scan walks.
func ListEmotionRecords(ctx context.Context, db *gorm.DB, userID string) ([]domain.EmotionRecord, error) {
	var out []domain.EmotionRecord
	err := db.WithContext(ctx).
		Joins("JOIN journals ON journals.id = emotion_records.journal_id").
		Where("journals.user_id = ?", userID).
		Order("emotion_records.analyzed_at asc, emotion_records.seq asc").
		Find(&out).Error
	return out, err
}

// CountEmotionsByLabel returns per-label counts of a user's emotion records.
func CountEmotionsByLabel(ctx context.Context, db *gorm.DB, userID string) (map[string]int, error) {
	var rows []struct {
		Emotion string
		N       int
	}
	err := db.WithContext(ctx).
		Model(&domain.EmotionRecord{}).
		Select("emotion_records.emotion AS emotion, COUNT(*) AS n").
		Joins("JOIN journals ON journals.id = emotion_records.journal_id").
		Where("journals.user_id = ?", userID).
		Group("emotion_records.emotion").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Emotion] = r.N
	}
	return out, nil
}

// CreateJournalFeedback attaches the analysis commentary to a journal.
// Returns ErrDuplicate when feedback already exists (journal_id is the
// primary key), which redelivery handling treats as success.
func CreateJournalFeedback(ctx context.Context, db *gorm.DB, journalID, feedback string, createdAt time.Time) error {
	fb := &domain.JournalFeedback{
		JournalID: journalID,
		Feedback:  feedback,
		CreatedAt: createdAt,
	}
	if err := db.WithContext(ctx).Create(fb).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetJournalFeedback fetches the feedback for a journal, or ErrNotFound.
func GetJournalFeedback(ctx context.Context, db *gorm.DB, journalID string) (*domain.JournalFeedback, error) {
	var fb domain.JournalFeedback
	if err := db.WithContext(ctx).Where("journal_id = ?", journalID).First(&fb).Error; err != nil {
		return nil, err
	}
	return &fb, nil
}
