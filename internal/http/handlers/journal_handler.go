// Journal HTTP handlers.
//
// This file exposes REST endpoints for journal resources:
//   - POST   /journals              (create, optionally publish immediately)
//   - GET    /journals              (list, paginated, ETag support)
//   - GET    /journals/{id}         (fetch one)
//   - PUT    /journals/{id}         (edit draft / publish)
//   - POST   /journals/{id}/star    (bookmark toggle)
//   - DELETE /journals/{id}         (soft delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/pubsub"
	"github.com/tbourn/go-journal-backend/internal/repo"
	"github.com/tbourn/go-journal-backend/internal/services"
	"github.com/tbourn/go-journal-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// JournalService defines journal lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type JournalService interface {
	// Create inserts a journal for userID, optionally publishing it at once.
	Create(ctx context.Context, userID, title, content string, entryDate time.Time, publish bool) (*domain.Journal, error)
	// Get fetches one journal owned by userID.
	Get(ctx context.Context, userID, journalID string) (*domain.Journal, error)
	// ListPage returns a page of the user's journals and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Journal, int64, error)
	// Update edits a DRAFT journal's fields.
	Update(ctx context.Context, userID, journalID string, title, content *string, entryDate *time.Time) (*domain.Journal, error)
	// Publish transitions a DRAFT journal to PUBLISHED and fires the hooks.
	Publish(ctx context.Context, userID, journalID string) (*domain.Journal, error)
	// ToggleStar sets the bookmark flag.
	ToggleStar(ctx context.Context, userID, journalID string, starred bool) error
	// Delete soft-deletes a journal.
	Delete(ctx context.Context, userID, journalID string) error
	// Stats returns journal count and latest modification time for ETags.
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// UserService defines registration and device-token operations.
type UserService interface {
	Register(ctx context.Context, email, displayName string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateDeviceToken(ctx context.Context, userID, token string) error
}

// GameService defines the read side of the points/level ledger.
type GameService interface {
	CurrentPoints(ctx context.Context, userID string) (int, error)
	CurrentLevel(ctx context.Context, userID string) (*services.LevelProgress, error)
	Transactions(ctx context.Context, userID string, limit int) ([]domain.PointTransaction, error)
}

// StreakReader exposes current streak state per category.
type StreakReader interface {
	Current(ctx context.Context, userID, category string) (*services.StreakStatus, error)
}

// AchievementReader exposes the achievement catalog with per-user completion.
type AchievementReader interface {
	All(ctx context.Context, userID string) ([]repo.AchievementWithStatus, error)
	Get(ctx context.Context, userID, achievementID string) (*repo.AchievementWithStatus, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
}

// EmotionReader exposes the emotion aggregates.
type EmotionReader interface {
	Counts(ctx context.Context, userID string) (*services.EmotionCounts, error)
	Grouped(ctx context.Context, userID string) ([]services.JournalEmotions, error)
	RiseCount(ctx context.Context, userID string) (int, error)
}

// AnalysisProcessor consumes inbound analysis events.
type AnalysisProcessor interface {
	Process(ctx context.Context, ev *pubsub.AnalysisEvent) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for users, journals, gamification reads, and
// the analysis-event intake. It depends on abstract service interfaces to
// keep transport concerns separate from business logic.
type Handlers struct {
	userSvc     UserService
	journalSvc  JournalService
	gameSvc     GameService
	streakSvc   StreakReader
	achSvc      AchievementReader
	emotionSvc  EmotionReader
	analysisSvc AnalysisProcessor
}

// New constructs and returns a Handlers instance bound to the given services.
func New(userSvc UserService, journalSvc JournalService, gameSvc GameService, streakSvc StreakReader, achSvc AchievementReader, emotionSvc EmotionReader, analysisSvc AnalysisProcessor) *Handlers {
	return &Handlers{
		userSvc:     userSvc,
		journalSvc:  journalSvc,
		gameSvc:     gameSvc,
		streakSvc:   streakSvc,
		achSvc:      achSvc,
		emotionSvc:  emotionSvc,
		analysisSvc: analysisSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateJournalRequest is the JSON payload for creating a journal.
type CreateJournalRequest struct {
	// Title optionally names the entry; derived from content when empty.
	Title string `json:"title" example:"Tuesday, finally sunny"`
	// Content is the entry body (required).
	Content string `json:"content" binding:"required" example:"Slept well, long walk after lunch..."`
	// EntryDate is the day the entry is about (RFC3339); defaults to now.
	EntryDate *time.Time `json:"entry_date,omitempty"`
	// Publish creates the entry already published, firing the gamification hooks.
	Publish bool `json:"publish" example:"true"`
}

// UpdateJournalRequest is the JSON payload for editing or publishing a
// journal. Omitted fields are left unchanged.
type UpdateJournalRequest struct {
	Title     *string    `json:"title,omitempty"`
	Content   *string    `json:"content,omitempty"`
	EntryDate *time.Time `json:"entry_date,omitempty"`
	// Status may only be "PUBLISHED": drafts transition forward, nothing
	// transitions back.
	Status *string `json:"status,omitempty" example:"PUBLISHED"`
}

// StarRequest is the JSON payload for the bookmark toggle.
type StarRequest struct {
	Starred bool `json:"starred"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListJournalsResponse wraps a page of journals and pagination information.
type ListJournalsResponse struct {
	Journals   []domain.Journal `json:"journals"`
	Pagination Pagination       `json:"pagination"`
}

// JournalDetailResponse is one journal plus the commentary the analysis
// pipeline attached to it. Feedback is omitted until the entry is analyzed.
type JournalDetailResponse struct {
	*domain.Journal
	Feedback *string `json:"feedback,omitempty"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// CreateJournal godoc
// @ID          createJournal
// @Summary     Create a journal entry
// @Description Creates a journal for the current user. With publish=true the entry is created published and the gamification hooks fire.
// @Tags        Journals
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateJournalRequest  true  "Create journal payload"
//
// @Success     201  {object}  domain.Journal
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /journals [post]
func (h *Handlers) CreateJournal(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	var entryDate time.Time
	if req.EntryDate != nil {
		entryDate = *req.EntryDate
	}

	currentUser := userID(c)

	// Idempotency (replay path) – read validated key if present. The record's
	// JournalID points at the journal the original request created.
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.journalSvc.(*services.JournalService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotencyByKey(ctx, svc.DB, currentUser, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := h.journalSvc.Get(ctx, currentUser, rec.JournalID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, rec.Status, prev)
					return
				}
			}
		}
	}

	j, err := h.journalSvc.Create(ctx, currentUser, strings.TrimSpace(req.Title), req.Content, entryDate, req.Publish)
	if err != nil {
		failFromErr(c, err)
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.journalSvc.(*services.JournalService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, j.ID, idemKey, http.StatusCreated, ttl)
		}
	}

	ok(c, http.StatusCreated, j)
}

// ListJournals godoc
// @ID          listJournals
// @Summary     List journals (paginated)
// @Description Returns a page of the user's journals, newest entry date first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Journals
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListJournalsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /journals [get]
func (h *Handlers) ListJournals(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.journalSvc.Stats(ctx, uid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"journals:%s:%d:%d"`, uid, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.journalSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListJournalsResponse{
		Journals: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetJournal godoc
// @ID          getJournal
// @Summary     Fetch one journal
// @Tags        Journals
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Journal ID (UUID)" format(uuid)
//
// @Success     200  {object} handlers.JournalDetailResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Journal not found"
// @Router      /journals/{id} [get]
func (h *Handlers) GetJournal(c *gin.Context) {
	ctx := c.Request.Context()
	journalID := c.Param("id")
	if _, err := uuid.Parse(journalID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "journal id must be a UUID")
		return
	}
	j, err := h.journalSvc.Get(ctx, userID(c), journalID)
	if err != nil {
		failFromErr(c, err)
		return
	}

	resp := JournalDetailResponse{Journal: j}
	if j.Status == domain.JournalStatusAnalyzed {
		if svc, okSvc := h.journalSvc.(*services.JournalService); okSvc && svc.DB != nil {
			if fb, err := repo.GetJournalFeedback(ctx, svc.DB, j.ID); err == nil && fb != nil {
				resp.Feedback = &fb.Feedback
			}
		}
	}
	ok(c, http.StatusOK, resp)
}

// UpdateJournal godoc
// @ID          updateJournal
// @Summary     Edit or publish a journal
// @Description Edits a DRAFT journal's fields. Setting status to PUBLISHED publishes the entry and fires the gamification hooks; no other status value is accepted.
// @Tags        Journals
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Journal ID (UUID)" format(uuid)
// @Param       body       body    handlers.UpdateJournalRequest  true  "Fields to change"
//
// @Success     200  {object} domain.Journal
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Journal not found"
// @Failure     409  {object} handlers.ErrorResponse "Not editable in current state"
// @Router      /journals/{id} [put]
func (h *Handlers) UpdateJournal(c *gin.Context) {
	journalID := c.Param("id")
	if _, err := uuid.Parse(journalID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "journal id must be a UUID")
		return
	}
	var req UpdateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Status != nil && *req.Status != domain.JournalStatusPublished {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "status may only be set to PUBLISHED")
		return
	}

	ctx := c.Request.Context()
	uid := userID(c)

	// Idempotency (replay path) – the original request's effects (including a
	// publish and its hooks) already hold; return the journal as it stands.
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.journalSvc.(*services.JournalService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, uid, journalID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := h.journalSvc.Get(ctx, uid, journalID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, rec.Status, prev)
					return
				}
			}
		}
	}

	var (
		j   *domain.Journal
		err error
	)
	if req.Title != nil || req.Content != nil || req.EntryDate != nil {
		j, err = h.journalSvc.Update(ctx, uid, journalID, req.Title, req.Content, req.EntryDate)
	} else {
		j, err = h.journalSvc.Get(ctx, uid, journalID)
	}
	if err != nil {
		failFromErr(c, err)
		return
	}

	if req.Status != nil {
		j, err = h.journalSvc.Publish(ctx, uid, journalID)
		if err != nil {
			failFromErr(c, err)
			return
		}
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.journalSvc.(*services.JournalService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, uid, journalID, idemKey, http.StatusOK, ttl)
		}
	}

	ok(c, http.StatusOK, j)
}

// StarJournal godoc
// @ID          starJournal
// @Summary     Bookmark a journal
// @Tags        Journals
// @Accept      json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Journal ID (UUID)" format(uuid)
// @Param       body       body    handlers.StarRequest  true  "Bookmark flag"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Journal not found"
// @Router      /journals/{id}/star [post]
func (h *Handlers) StarJournal(c *gin.Context) {
	journalID := c.Param("id")
	if _, err := uuid.Parse(journalID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "journal id must be a UUID")
		return
	}
	var req StarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.journalSvc.ToggleStar(c.Request.Context(), userID(c), journalID, req.Starred); err != nil {
		failFromErr(c, err)
		return
	}
	noContent(c)
}

// DeleteJournal godoc
// @ID          deleteJournal
// @Summary     Delete a journal
// @Description Soft-deletes a journal. Points and achievements already earned from it are kept.
// @Tags        Journals
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Journal ID (UUID)" format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Journal not found"
// @Router      /journals/{id} [delete]
func (h *Handlers) DeleteJournal(c *gin.Context) {
	journalID := c.Param("id")
	if _, err := uuid.Parse(journalID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "journal id must be a UUID")
		return
	}
	if err := h.journalSvc.Delete(c.Request.Context(), userID(c), journalID); err != nil {
		failFromErr(c, err)
		return
	}
	noContent(c)
}

// middlewareGetIdempotencyKey extracts an idempotency key if an upstream
// middleware has already validated/stashed it. The fallback behavior reads
// the "Idempotency-Key" header directly when no dedicated middleware exists.
func middlewareGetIdempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}
