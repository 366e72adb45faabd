// Package services – UserService
//
// This file implements the UserService. User CRUD proper belongs to the
// collaborator side of the system; what lives here is the registration hook
// into the achievement engine and the one user field the engine mutates (the
// device token used for notifications).
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/async"
	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/repo"
)

// UserService handles registration and device-token updates.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Achievements runs the registration trigger.
	Achievements *AchievementService
	// Dispatch runs the registration trigger off the request path.
	Dispatch *async.Dispatcher
}

// Register creates a user and fires the registration achievement trigger.
// Email uniqueness collisions surface as ErrDuplicateUser.
func (s *UserService) Register(ctx context.Context, email, displayName string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidEmail
	}

	u, err := repo.CreateUser(ctx, s.DB, email, strings.TrimSpace(displayName))
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}

	s.Dispatch.Go("user-registered-hooks", func(ctx context.Context) error {
		return s.Achievements.EvaluateRegistered(ctx, u.ID)
	})
	return u, nil
}

// Get fetches one user by ID.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateDeviceToken stores the push token notifications are addressed to.
func (s *UserService) UpdateDeviceToken(ctx context.Context, userID, token string) error {
	if err := repo.UpdateDeviceToken(ctx, s.DB, userID, strings.TrimSpace(token)); err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
