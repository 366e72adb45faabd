// Gamification HTTP handlers.
//
// This file exposes the read side of the gamification engine:
//   - GET /game/points            (ledger total + recent transactions)
//   - GET /game/level             (level and progress to the next)
//   - GET /game/streak            (one category's streak; ?category=)
//   - GET /game/stats             (combined dashboard payload)
//   - GET /game/achievements      (catalog with completion flags)
//   - GET /game/achievements/{id} (one catalog entry)
//
// All writes into the engine happen through the journal lifecycle and the
// analysis-event intake; there is deliberately no endpoint that adds points
// or unlocks achievements directly.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/services"
	"github.com/tbourn/go-journal-backend/internal/utils"
)

// PointsResponse wraps the ledger total and the most recent transactions.
type PointsResponse struct {
	TotalPoints  int                       `json:"total_points"`
	Transactions []domain.PointTransaction `json:"transactions"`
}

// GameStatsResponse is the combined dashboard payload.
type GameStatsResponse struct {
	TotalPoints    int                     `json:"total_points"`
	Level          *services.LevelProgress `json:"level"`
	JournalStreak  *services.StreakStatus  `json:"journal_streak"`
	PositiveStreak *services.StreakStatus  `json:"positive_streak"`
	Achievements   int64                   `json:"achievements_completed"`
	Emotions       *services.EmotionCounts `json:"emotions"`
}

// GetPoints godoc
// @ID          getPoints
// @Summary     Current points
// @Description Returns the user's ledger total and their most recent transactions.
// @Tags        Game
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       limit      query   int     false "Max transactions returned"  default(20)
//
// @Success     200  {object} handlers.PointsResponse
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /game/points [get]
func (h *Handlers) GetPoints(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	total, err := h.gameSvc.CurrentPoints(ctx, uid)
	if err != nil {
		failFromErr(c, err)
		return
	}
	limit := utils.AtoiDefault(c.Query("limit"), 20)
	txs, err := h.gameSvc.Transactions(ctx, uid, limit)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, PointsResponse{TotalPoints: total, Transactions: txs})
}

// GetLevel godoc
// @ID          getLevel
// @Summary     Current level
// @Description Returns the user's level, points, and progress toward the next level.
// @Tags        Game
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object} services.LevelProgress
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /game/level [get]
func (h *Handlers) GetLevel(c *gin.Context) {
	p, err := h.gameSvc.CurrentLevel(c.Request.Context(), userID(c))
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// GetStreak godoc
// @ID          getStreak
// @Summary     Current streak
// @Description Returns the streak for one category. The category defaults to JOURNAL_STREAK when omitted.
// @Tags        Game
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       category   query   string  false "JOURNAL_STREAK or POSITIVE_STREAK"  default(JOURNAL_STREAK)
//
// @Success     200  {object} services.StreakStatus
// @Failure     400  {object} handlers.ErrorResponse "Unknown category"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /game/streak [get]
func (h *Handlers) GetStreak(c *gin.Context) {
	category := strings.ToUpper(strings.TrimSpace(c.Query("category")))
	if category == "" {
		category = domain.StreakJournal
	}
	st, err := h.streakSvc.Current(c.Request.Context(), userID(c), category)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// GetGameStats godoc
// @ID          getGameStats
// @Summary     Gamification dashboard
// @Description Returns points, level, both streaks, completed-achievement count, and emotion counts in one payload.
// @Tags        Game
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object} handlers.GameStatsResponse
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /game/stats [get]
func (h *Handlers) GetGameStats(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	total, err := h.gameSvc.CurrentPoints(ctx, uid)
	if err != nil {
		failFromErr(c, err)
		return
	}
	level, err := h.gameSvc.CurrentLevel(ctx, uid)
	if err != nil {
		failFromErr(c, err)
		return
	}
	journalStreak, err := h.streakSvc.Current(ctx, uid, domain.StreakJournal)
	if err != nil {
		failFromErr(c, err)
		return
	}
	positiveStreak, err := h.streakSvc.Current(ctx, uid, domain.StreakPositive)
	if err != nil {
		failFromErr(c, err)
		return
	}
	completed, err := h.achSvc.CountForUser(ctx, uid)
	if err != nil {
		failFromErr(c, err)
		return
	}
	emotions, err := h.emotionSvc.Counts(ctx, uid)
	if err != nil {
		failFromErr(c, err)
		return
	}

	ok(c, http.StatusOK, GameStatsResponse{
		TotalPoints:    total,
		Level:          level,
		JournalStreak:  journalStreak,
		PositiveStreak: positiveStreak,
		Achievements:   completed,
		Emotions:       emotions,
	})
}

// ListAchievements godoc
// @ID          listAchievements
// @Summary     Achievement catalog
// @Description Returns the full catalog with the user's completion state, ordered by type then tier.
// @Tags        Game
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {array}  repo.AchievementWithStatus
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /game/achievements [get]
func (h *Handlers) ListAchievements(c *gin.Context) {
	items, err := h.achSvc.All(c.Request.Context(), userID(c))
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// GetAchievement godoc
// @ID          getAchievement
// @Summary     One achievement
// @Tags        Game
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Achievement ID (UUID)" format(uuid)
//
// @Success     200  {object} repo.AchievementWithStatus
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Achievement not found"
// @Router      /game/achievements/{id} [get]
func (h *Handlers) GetAchievement(c *gin.Context) {
	achievementID := c.Param("id")
	if _, err := uuid.Parse(achievementID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "achievement id must be a UUID")
		return
	}
	a, err := h.achSvc.Get(c.Request.Context(), userID(c), achievementID)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}
