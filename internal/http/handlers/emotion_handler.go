// Emotion-analysis HTTP handlers (read side).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-journal-backend/internal/services"
)

// EmotionsResponse wraps the grouped per-journal analysis history with the
// aggregate counts derived from it.
type EmotionsResponse struct {
	Counts    *services.EmotionCounts    `json:"counts"`
	RiseCount int                        `json:"rise_count"`
	Journals  []services.JournalEmotions `json:"journals"`
}

// GetEmotions godoc
// @ID          getEmotions
// @Summary     Emotion analysis history
// @Description Returns the user's emotion records grouped per journal, plus the per-label counts and the rise count.
// @Tags        Emotions
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object} handlers.EmotionsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /emotions [get]
func (h *Handlers) GetEmotions(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	counts, err := h.emotionSvc.Counts(ctx, uid)
	if err != nil {
		failFromErr(c, err)
		return
	}
	rises, err := h.emotionSvc.RiseCount(ctx, uid)
	if err != nil {
		failFromErr(c, err)
		return
	}
	grouped, err := h.emotionSvc.Grouped(ctx, uid)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, EmotionsResponse{Counts: counts, RiseCount: rises, Journals: grouped})
}
