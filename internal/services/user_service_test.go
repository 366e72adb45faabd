package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/async"
	"github.com/tbourn/go-journal-backend/internal/domain"
)

func newUserService(db *gorm.DB) *UserService {
	ledger := &LedgerService{DB: db}
	streaks := &StreakService{DB: db}
	return &UserService{
		DB: db,
		Achievements: &AchievementService{
			DB:       db,
			Ledger:   ledger,
			Streaks:  streaks,
			Emotions: &EmotionService{DB: db},
		},
		Dispatch: async.NewDispatcher(2),
	}
}

func TestUser_Register_Normalization(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0)
	svc := newUserService(db)
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Ada@Example.COM  ", "  Ada  ")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "ada@example.com" || u.DisplayName != "Ada" {
		t.Fatalf("normalization wrong: %+v", u)
	}

	if _, err := svc.Register(ctx, "   ", "X"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("blank email: expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(ctx, "ada@example.com", "Other"); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("taken email: expected ErrDuplicateUser, got %v", err)
	}
	svc.Dispatch.Close()
}

func TestUser_Register_FiresRegistrationTrigger(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0)
	seedAchievement(t, db, "first-steps", domain.AchievementRegister, 0, 0, 50)
	svc := newUserService(db)
	ctx := context.Background()

	u, err := svc.Register(ctx, "new@example.com", "New")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	svc.Dispatch.Close()

	unlocked, err := svc.Achievements.CountForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if unlocked != 1 {
		t.Fatalf("registration unlocked %d achievements, want 1", unlocked)
	}
	total, err := svc.Achievements.Ledger.CurrentPoints(ctx, u.ID)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if total != 50 {
		t.Fatalf("registration bonus = %d, want 50", total)
	}
}

func TestUser_Get_And_DeviceToken(t *testing.T) {
	db := newTestDB(t)
	svc := newUserService(db)
	ctx := context.Background()
	uid := seedUser(t, db)

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.UpdateDeviceToken(ctx, "missing", "tok"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := svc.UpdateDeviceToken(ctx, uid, "  tok-1  "); err != nil {
		t.Fatalf("update token: %v", err)
	}
	u, err := svc.Get(ctx, uid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.DeviceToken != "tok-1" {
		t.Fatalf("device token = %q", u.DeviceToken)
	}
	svc.Dispatch.Close()
}
