package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-journal-backend/internal/services"
)

func TestGetEmotions(t *testing.T) {
	gin.SetMode(gin.TestMode)

	emotions := stubEmotionSvc{
		counts: func(context.Context, string) (*services.EmotionCounts, error) {
			return &services.EmotionCounts{Happy: 3, Sad: 1}, nil
		},
		rises: func(context.Context, string) (int, error) { return 2, nil },
		grouped: func(context.Context, string) ([]services.JournalEmotions, error) {
			return []services.JournalEmotions{{JournalID: "j1"}, {JournalID: "j2"}}, nil
		},
	}
	h := newHandlers(nil, nil, nil, nil, nil, emotions, nil)
	r := gin.New()
	r.GET("/emotions", h.GetEmotions)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/emotions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("emotions -> %d body=%s", w.Code, w.Body.String())
	}
	var out EmotionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Counts.Happy != 3 || out.RiseCount != 2 || len(out.Journals) != 2 {
		t.Fatalf("unexpected payload: %+v", out)
	}
}
