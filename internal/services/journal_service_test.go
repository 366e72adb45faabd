package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/async"
	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/pubsub"
)

func newJournalService(db *gorm.DB) *JournalService {
	ledger := &LedgerService{DB: db}
	streaks := &StreakService{DB: db}
	ach := &AchievementService{
		DB:       db,
		Ledger:   ledger,
		Streaks:  streaks,
		Emotions: &EmotionService{DB: db},
	}
	svc := NewJournalService(db, ledger, streaks, ach, pubsub.NopPublisher{}, async.NewDispatcher(2), 10)
	svc.TitleLocale = language.English
	return svc
}

// drain closes the dispatcher so every scheduled side effect has finished.
func drain(svc *JournalService) { svc.Dispatch.Close() }

func TestJournal_Create_Validation(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0)
	uid := seedUser(t, db)
	svc := newJournalService(db)
	ctx := context.Background()

	if _, err := svc.Create(ctx, uid, "t", "   ", day(0), false); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if _, err := svc.Create(ctx, "missing", "t", "content", day(0), false); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestJournal_Create_Draft_NoHooks(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0)
	uid := seedUser(t, db)
	svc := newJournalService(db)
	ctx := context.Background()

	j, err := svc.Create(ctx, uid, "  My   Day  ", "quiet morning", day(0), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if j.Status != domain.JournalStatusDraft {
		t.Fatalf("status = %s, want DRAFT", j.Status)
	}
	if j.Title != "My Day" {
		t.Fatalf("title = %q, want collapsed whitespace", j.Title)
	}
	drain(svc)

	total, err := svc.Ledger.CurrentPoints(ctx, uid)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if total != 0 {
		t.Fatalf("draft creation awarded %d points", total)
	}
}

func TestJournal_Create_DerivedTitle(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0)
	uid := seedUser(t, db)
	svc := newJournalService(db)

	j, err := svc.Create(context.Background(), uid, "", "today i walked along the river and watched the light change", day(0), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if j.Title != "Today I Walked Along The River" {
		t.Fatalf("derived title = %q", j.Title)
	}
	drain(svc)
}

func TestJournal_Create_Published_FiresHooks(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0, 100)
	uid := seedUser(t, db)
	seedAchievement(t, db, "scribe-i", domain.AchievementJournalCount, 1, 1, 25)
	svc := newJournalService(db)
	ctx := context.Background()

	j, err := svc.Create(ctx, uid, "first", "content", day(0), true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if j.Status != domain.JournalStatusPublished {
		t.Fatalf("status = %s, want PUBLISHED", j.Status)
	}
	drain(svc)

	// Entry points plus the tier-1 journal-count bonus.
	total, err := svc.Ledger.CurrentPoints(ctx, uid)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if total != 35 {
		t.Fatalf("total = %d, want 35 (10 entry + 25 bonus)", total)
	}

	st, err := svc.Streaks.Current(ctx, uid, domain.StreakJournal)
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if st.Length != 1 {
		t.Fatalf("journal streak = %d, want 1", st.Length)
	}

	unlocked, err := svc.Achievements.CountForUser(ctx, uid)
	if err != nil {
		t.Fatalf("count achievements: %v", err)
	}
	if unlocked != 1 {
		t.Fatalf("unlocked = %d, want 1", unlocked)
	}
}

func TestJournal_Publish_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0)
	uid := seedUser(t, db)
	svc := newJournalService(db)
	ctx := context.Background()

	j, err := svc.Create(ctx, uid, "t", "content", day(0), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	pub, err := svc.Publish(ctx, uid, j.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if pub.Status != domain.JournalStatusPublished {
		t.Fatalf("status = %s, want PUBLISHED", pub.Status)
	}

	// Publishing twice is an invalid transition.
	if _, err := svc.Publish(ctx, uid, j.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on re-publish, got %v", err)
	}
	drain(svc)

	total, err := svc.Ledger.CurrentPoints(ctx, uid)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if total != 10 {
		t.Fatalf("total = %d, want the single entry award", total)
	}
}

func TestJournal_Update_DraftOnly(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0)
	uid := seedUser(t, db)
	svc := newJournalService(db)
	ctx := context.Background()

	j, err := svc.Create(ctx, uid, "t", "content", day(0), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newTitle := "revised"
	got, err := svc.Update(ctx, uid, j.ID, &newTitle, nil, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "revised" {
		t.Fatalf("title = %q", got.Title)
	}

	if _, err := svc.Publish(ctx, uid, j.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := svc.Update(ctx, uid, j.ID, &newTitle, nil, nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState editing published journal, got %v", err)
	}

	blank := " "
	draft, err := svc.Create(ctx, uid, "t2", "content", day(0), false)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := svc.Update(ctx, uid, draft.ID, nil, &blank, nil); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	drain(svc)
}

func TestJournal_OwnerScoping(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0)
	uid := seedUser(t, db)
	other := seedUser(t, db)
	svc := newJournalService(db)
	ctx := context.Background()

	j, err := svc.Create(ctx, uid, "t", "content", day(0), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, other, j.ID); !errors.Is(err, ErrJournalNotFound) {
		t.Fatalf("foreign get should be not-found, got %v", err)
	}
	if err := svc.Delete(ctx, other, j.ID); !errors.Is(err, ErrJournalNotFound) {
		t.Fatalf("foreign delete should be not-found, got %v", err)
	}
	drain(svc)
}

func TestJournal_Delete_AndList(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0)
	uid := seedUser(t, db)
	svc := newJournalService(db)
	ctx := context.Background()

	var first *domain.Journal
	for i := 0; i < 3; i++ {
		j, err := svc.Create(ctx, uid, "t", "content", day(i), false)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if i == 0 {
			first = j
		}
	}

	items, total, err := svc.ListPage(ctx, uid, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("total=%d page=%d, want 3/2", total, len(items))
	}
	// Newest entry date first.
	if !items[0].EntryDate.After(items[1].EntryDate) {
		t.Fatalf("page not ordered by entry date: %v then %v", items[0].EntryDate, items[1].EntryDate)
	}

	if err := svc.Delete(ctx, uid, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, uid, first.ID); !errors.Is(err, ErrJournalNotFound) {
		t.Fatalf("deleted journal still readable: %v", err)
	}
	_, total, err = svc.ListPage(ctx, uid, 1, 10)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if total != 2 {
		t.Fatalf("total after delete = %d, want 2", total)
	}
	drain(svc)
}

func TestJournal_ToggleStar(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0)
	uid := seedUser(t, db)
	svc := newJournalService(db)
	ctx := context.Background()

	j, err := svc.Create(ctx, uid, "t", "content", day(0), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.ToggleStar(ctx, uid, j.ID, true); err != nil {
		t.Fatalf("star: %v", err)
	}
	got, err := svc.Get(ctx, uid, j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Starred {
		t.Fatalf("journal not starred")
	}
	if err := svc.ToggleStar(ctx, uid, "missing", true); !errors.Is(err, ErrJournalNotFound) {
		t.Fatalf("expected ErrJournalNotFound, got %v", err)
	}
	drain(svc)
}

func TestJournal_TitleTooLong(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 0)
	uid := seedUser(t, db)
	svc := newJournalService(db)
	svc.TitleMaxLen = 10

	long := "a title well past ten characters"
	if _, err := svc.Create(context.Background(), uid, long, "content", time.Time{}, false); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	drain(svc)
}
