// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Journal
// model and its feedback.
//
// Error semantics:
//   - When a journal is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// The status column moves strictly forward (DRAFT -> PUBLISHED -> ANALYZED).
// MarkJournalStatus enforces this in SQL by predicating the update on the
// expected current status, which doubles as the de-duplication guard for
// redelivered analysis events.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/domain"
)

// CreateJournal inserts a new Journal row owned by userID. The journal ID is
// a randomly generated UUID (string), and CreatedAt is set to UTC.
func CreateJournal(ctx context.Context, db *gorm.DB, userID, title, content string, entryDate time.Time, status string) (*domain.Journal, error) {
	j := &domain.Journal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		EntryDate: entryDate,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(j).Error; err != nil {
		return nil, err
	}
	return j, nil
}

// GetJournal fetches a single journal by its ID and owner (userID). If the
// record does not exist, it returns ErrNotFound.
func GetJournal(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Journal, error) {
	var j domain.Journal
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&j).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJournalByID fetches a journal by its ID alone. The analysis-event path
// uses this form because the event carries both IDs and ownership is checked
// by the caller.
func GetJournalByID(ctx context.Context, db *gorm.DB, id string) (*domain.Journal, error) {
	var j domain.Journal
	if err := db.WithContext(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// CountJournals returns the total number of (non-deleted) journals owned by
// userID.
func CountJournals(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Journal{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// CountPublishedJournals returns the number of journals that have reached
// PUBLISHED or ANALYZED. This is the metric JOURNAL_COUNT achievements are
// evaluated against.
func CountPublishedJournals(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Journal{}).
		Where("user_id = ? AND status IN ?", userID, []string{domain.JournalStatusPublished, domain.JournalStatusAnalyzed}).
		Count(&total).Error
	return total, err
}

// ListJournalsPage returns a paginated slice of journals for userID, ordered
// by entry date descending then creation time descending. The caller is
// responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListJournalsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Journal, error) {
	var out []domain.Journal
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("entry_date desc, created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateJournal updates the mutable fields of a journal owned by userID.
// Returns ErrNotFound if no row matched.
func UpdateJournal(ctx context.Context, db *gorm.DB, id, userID string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Journal{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkJournalStatus advances a journal from one status to the next. The
// update is predicated on the expected current status, so a concurrent or
// repeated transition affects zero rows and reports ErrNotFound rather than
// regressing the state machine.
func MarkJournalStatus(ctx context.Context, db *gorm.DB, id, from, to string) error {
	res := db.WithContext(ctx).
		Model(&domain.Journal{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetJournalStarred flips the bookmark flag on a journal owned by userID.
func SetJournalStarred(ctx context.Context, db *gorm.DB, id, userID string, starred bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Journal{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("starred", starred)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteJournal soft-deletes a journal owned by userID (gorm.DeletedAt).
func DeleteJournal(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Journal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// JournalsStats returns aggregate metadata for a user's journals: the total
// number of rows and the maximum UpdatedAt timestamp among them. The HTTP
// layer uses this for ETag generation on list responses. When the user has
// no journals, count is 0 and maxUpdatedAt is nil.
func JournalsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Journal{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
