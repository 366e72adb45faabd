// Package services – JournalService
//
// This file implements the JournalService, which manages the journal
// lifecycle and fires the gamification hooks at its edges. Journals move
// DRAFT -> PUBLISHED -> ANALYZED, strictly forward. Content edits are allowed
// only while in DRAFT; publication is the event the engine cares about: it
// records the journal streak, awards the fixed entry points, evaluates the
// publish-triggered achievements, and hands the entry off for external
// emotion analysis. Everything past the status flip is dispatched
// fire-and-forget so a slow collaborator can never delay the response.
//
// Service-level errors (ErrJournalNotFound, ErrInvalidState, ...) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-journal-backend/internal/async"
	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/pubsub"
	"github.com/tbourn/go-journal-backend/internal/repo"
)

// JournalService provides journal CRUD plus the lifecycle hooks into the
// gamification engine.
type JournalService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Ledger awards the fixed entry points on publication.
	Ledger *LedgerService
	// Streaks records the journal streak on publication.
	Streaks *StreakService
	// Achievements runs the publish-triggered evaluation sweep.
	Achievements *AchievementService
	// Publisher hands published journals to the external analysis pipeline.
	// May be nil when no topic is configured.
	Publisher pubsub.Publisher
	// Dispatch runs the post-publish side effects off the request path.
	Dispatch *async.Dispatcher

	// EntryPoints is the fixed JOURNAL_ENTRY award per publication.
	EntryPoints int
	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// TitleLocale drives casing of generated fallback titles.
	TitleLocale language.Tag
}

// NewJournalService constructs a JournalService with sane defaults for title
// handling.
func NewJournalService(db *gorm.DB, ledger *LedgerService, streaks *StreakService, achievements *AchievementService, publisher pubsub.Publisher, dispatch *async.Dispatcher, entryPoints int) *JournalService {
	return &JournalService{
		DB:           db,
		Ledger:       ledger,
		Streaks:      streaks,
		Achievements: achievements,
		Publisher:    publisher,
		Dispatch:     dispatch,
		EntryPoints:  entryPoints,
		TitleMaxLen:  120,
		TitleLocale:  language.Und,
	}
}

// Create inserts a new journal for userID. The entry starts in DRAFT unless
// publish is set, in which case it is created PUBLISHED and the publication
// hooks fire immediately. A blank title is generated from the leading words
// of the content.
func (s *JournalService) Create(ctx context.Context, userID, title, content string, entryDate time.Time, publish bool) (*domain.Journal, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if _, err := repo.GetUser(ctx, s.DB, userID); err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	title = normalizeTitle(title)
	if title == "" {
		title = s.deriveTitle(content)
	}
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return nil, ErrTooLong
	}
	if entryDate.IsZero() {
		entryDate = time.Now().UTC()
	}

	status := domain.JournalStatusDraft
	if publish {
		status = domain.JournalStatusPublished
	}
	j, err := repo.CreateJournal(ctx, s.DB, userID, title, content, entryDate, status)
	if err != nil {
		return nil, err
	}
	if publish {
		s.firePublished(j)
	}
	return j, nil
}

// Get fetches one journal owned by userID.
func (s *JournalService) Get(ctx context.Context, userID, journalID string) (*domain.Journal, error) {
	j, err := repo.GetJournal(ctx, s.DB, journalID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrJournalNotFound
		}
		return nil, err
	}
	return j, nil
}

// ListPage returns a page of the user's journals, newest entry date first,
// with the total row count. Invalid page/pageSize values get defaults.
func (s *JournalService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Journal, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountJournals(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Journal{}, 0, nil
	}
	items, err := repo.ListJournalsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Update edits a journal's title/content/entry date. Edits are allowed only
// while the journal is in DRAFT; published and analyzed entries are
// immutable (ErrInvalidState).
func (s *JournalService) Update(ctx context.Context, userID, journalID string, title, content *string, entryDate *time.Time) (*domain.Journal, error) {
	j, err := s.Get(ctx, userID, journalID)
	if err != nil {
		return nil, err
	}
	if j.Status != domain.JournalStatusDraft {
		return nil, ErrInvalidState
	}

	fields := map[string]any{}
	if title != nil {
		t := normalizeTitle(*title)
		if s.TitleMaxLen > 0 && utf8.RuneCountInString(t) > s.TitleMaxLen {
			return nil, ErrTooLong
		}
		fields["title"] = t
	}
	if content != nil {
		if strings.TrimSpace(*content) == "" {
			return nil, ErrEmptyContent
		}
		fields["content"] = *content
	}
	if entryDate != nil {
		fields["entry_date"] = *entryDate
	}
	if len(fields) == 0 {
		return j, nil
	}

	if err := repo.UpdateJournal(ctx, s.DB, journalID, userID, fields); err != nil {
		if isNotFound(err) {
			return nil, ErrJournalNotFound
		}
		return nil, err
	}
	return s.Get(ctx, userID, journalID)
}

// Publish transitions a DRAFT journal to PUBLISHED and fires the publication
// hooks. Publishing an already-published or analyzed journal is
// ErrInvalidState; the status predicate in the update makes the transition
// race-free.
func (s *JournalService) Publish(ctx context.Context, userID, journalID string) (*domain.Journal, error) {
	j, err := s.Get(ctx, userID, journalID)
	if err != nil {
		return nil, err
	}
	if j.Status != domain.JournalStatusDraft {
		return nil, ErrInvalidState
	}

	err = repo.MarkJournalStatus(ctx, s.DB, journalID, domain.JournalStatusDraft, domain.JournalStatusPublished)
	if err != nil {
		if isNotFound(err) {
			// A concurrent publish won; the hooks already fired there.
			return nil, ErrInvalidState
		}
		return nil, err
	}
	j.Status = domain.JournalStatusPublished

	s.firePublished(j)
	return j, nil
}

// ToggleStar sets the bookmark flag on a journal owned by userID.
func (s *JournalService) ToggleStar(ctx context.Context, userID, journalID string, starred bool) error {
	if err := repo.SetJournalStarred(ctx, s.DB, journalID, userID, starred); err != nil {
		if isNotFound(err) {
			return ErrJournalNotFound
		}
		return err
	}
	return nil
}

// Delete soft-deletes a journal owned by userID. Points, streaks, and
// achievements already earned from it are deliberately left intact; the
// ledger is append-only.
func (s *JournalService) Delete(ctx context.Context, userID, journalID string) error {
	if err := repo.DeleteJournal(ctx, s.DB, journalID, userID); err != nil {
		if isNotFound(err) {
			return ErrJournalNotFound
		}
		return err
	}
	return nil
}

// Stats returns the user's journal count and latest modification time, used
// by the HTTP layer for ETag generation.
func (s *JournalService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.JournalsStats(ctx, s.DB, userID)
}

// firePublished schedules the publication side effects: journal-streak
// record, entry-point award, achievement sweep, and the analysis hand-off.
// The streak and points run first (and sequentially) because the achievement
// sweep reads both; the hand-off is independent. Failures are logged by the
// dispatcher and never reach the caller.
func (s *JournalService) firePublished(j *domain.Journal) {
	userID, journalID, content := j.UserID, j.ID, j.Content

	s.Dispatch.Go("journal-published-hooks", func(ctx context.Context) error {
		var errs []error
		if _, err := s.Streaks.Record(ctx, userID, domain.StreakJournal, time.Now()); err != nil {
			errs = append(errs, err)
		}
		if _, err := s.Ledger.AddPoints(ctx, userID, domain.PointTypeJournalEntry, s.EntryPoints); err != nil {
			errs = append(errs, err)
		}
		if err := s.Achievements.EvaluateJournalPublished(ctx, userID); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if s.Publisher != nil {
		s.Dispatch.Go("journal-analysis-handoff", func(ctx context.Context) error {
			return s.Publisher.PublishJournal(ctx, userID, journalID, content)
		})
	} else {
		log.Debug().Str("journal_id", journalID).Msg("no publisher configured; analysis hand-off skipped")
	}
}

// deriveTitle builds a fallback title from the first few words of the
// content, title-cased for the configured locale.
func (s *JournalService) deriveTitle(content string) string {
	words := strings.Fields(content)
	if len(words) > 6 {
		words = words[:6]
	}
	title := cases.Title(s.TitleLocale).String(strings.Join(words, " "))
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		title = string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
