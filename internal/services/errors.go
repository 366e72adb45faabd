// Package services defines the business logic of the gamification engine:
// the point ledger and leveling, streak tracking, emotion aggregation, the
// achievement engine, journal lifecycle hooks, and the analysis-event
// processor. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/repo"
)

var (
	// ErrUserNotFound indicates that the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when registration collides with an
	// existing account (email uniqueness).
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidEmail is returned when registration is attempted with a
	// blank email.
	ErrInvalidEmail = errors.New("email is required")

	// ErrJournalNotFound indicates that the requested journal does not exist
	// or is not accessible to the current user.
	ErrJournalNotFound = errors.New("journal not found")

	// ErrAchievementNotFound indicates that the referenced achievement is not
	// part of the catalog.
	ErrAchievementNotFound = errors.New("achievement not found")

	// ErrInvalidCategory is returned when a streak operation names a category
	// outside the known set.
	ErrInvalidCategory = errors.New("unknown streak category")

	// ErrInvalidState is returned when an operation is not allowed in the
	// journal's current lifecycle status (e.g., editing a published entry or
	// re-publishing an analyzed one).
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrEmptyContent is returned when a journal is created or updated with
	// no content.
	ErrEmptyContent = errors.New("journal content is empty")

	// ErrTooLong is returned when a journal title exceeds the configured
	// rune-length limit after normalization.
	ErrTooLong = errors.New("title too long")
)

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way. It also checks gorm.ErrRecordNotFound for safety.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey or repo.ErrDuplicate.
func isDuplicate(err error) bool {
	if errors.Is(err, repo.ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
