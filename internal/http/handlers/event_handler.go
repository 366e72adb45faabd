// Analysis-event intake handler.
//
// This endpoint is the push target of the external emotion-analysis pipeline.
// The transport delivers at-least-once and cannot repair a bad payload, so
// the handler acknowledges with 200 in every case it can attribute to the
// payload (processed, already analyzed, unknown journal, schema violation) —
// a non-200 would only trigger a redelivery storm of the same event. The
// response body says what happened; the status code deliberately does not.
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-journal-backend/internal/http/middleware"
	"github.com/tbourn/go-journal-backend/internal/pubsub"
)

// JournalAnalyzed godoc
// @ID          journalAnalyzed
// @Summary     Ingest a journal analysis result
// @Description Accepts either the bare analysis-event JSON or a pub/sub push envelope with the event base64-encoded under message.data. Always returns 200 for decodable deliveries.
// @Tags        Events
// @Accept      json
// @Produce     json
//
// @Param       body  body  pubsub.PushEnvelope  true  "Push envelope or direct analysis event"
//
// @Success     200  {object} map[string]string
// @Failure     400  {object} handlers.ErrorResponse "Unreadable request body"
// @Router      /events/journal-analyzed [post]
func (h *Handlers) JournalAnalyzed(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable request body")
		return
	}

	lg := middleware.LoggerFrom(c)

	ev, err := pubsub.DecodeAnalysisEvent(body)
	if err != nil {
		// Acknowledged: the source cannot redeliver a corrected payload.
		lg.Warn().Err(err).Msg("analysis event rejected")
		ok(c, http.StatusOK, gin.H{"status": "rejected"})
		return
	}

	if err := h.analysisSvc.Process(c.Request.Context(), ev); err != nil {
		lg.Warn().Err(err).
			Str("journal_id", ev.JournalID).
			Msg("analysis event skipped")
		ok(c, http.StatusOK, gin.H{"status": "skipped"})
		return
	}
	ok(c, http.StatusOK, gin.H{"status": "processed"})
}
