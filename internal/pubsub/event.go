// Package pubsub defines the analysis-event wire format and the outbound
// publisher used to hand published journals to the external emotion
// classifier.
//
// Inbound events arrive in one of two shapes: the bare analysis-event JSON
// body, or the push envelope of a managed pub/sub transport where the inner
// event is base64-encoded under message.data. DecodeAnalysisEvent accepts
// both and validates against the same inner schema.
package pubsub

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEvent reports an analysis event that decoded but fails schema
// validation (missing ids, unknown shape). Callers acknowledge such events
// to the transport rather than letting them redeliver forever.
var ErrInvalidEvent = errors.New("invalid analysis event")

// EmotionScore is one emotion/confidence pair reported by the classifier.
type EmotionScore struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// AnalysisEvent is the inner payload delivered when the external model has
// analyzed a published journal. EmotionAnalysis, AnalyzedAt, Feedback, and
// CreatedAt are all optional on the wire; absent values decode to zero
// values.
type AnalysisEvent struct {
	UserID          string         `json:"userId"`
	JournalID       string         `json:"journalId"`
	JournalContent  string         `json:"journalContent,omitempty"`
	EmotionAnalysis []EmotionScore `json:"emotionAnalysis,omitempty"`
	AnalyzedAt      string         `json:"analyzedAt,omitempty"`
	Feedback        string         `json:"feedback,omitempty"`
	CreatedAt       string         `json:"createdAt,omitempty"`
}

// Validate checks the fields the processor cannot work without.
func (e *AnalysisEvent) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: missing userId", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.JournalID) == "" {
		return fmt.Errorf("%w: missing journalId", ErrInvalidEvent)
	}
	return nil
}

// PushMessage is the message portion of a managed pub/sub push envelope.
// Data carries the base64-encoded inner event.
type PushMessage struct {
	Data        string `json:"data"`
	MessageID   string `json:"messageId"`
	PublishTime string `json:"publishTime"`
}

// PushEnvelope is the wrapped delivery shape posted by a push subscription.
type PushEnvelope struct {
	Message      PushMessage `json:"message"`
	Subscription string      `json:"subscription"`
}

// DecodeAnalysisEvent parses an inbound request body as either a push
// envelope (base64 JSON under message.data) or a direct analysis-event JSON
// body, and validates the resulting inner event. The envelope shape is
// detected first so a direct body containing a "message" field of the wrong
// type still falls through to direct decoding.
func DecodeAnalysisEvent(body []byte) (*AnalysisEvent, error) {
	var env PushEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message.Data != "" {
		raw, err := base64.StdEncoding.DecodeString(env.Message.Data)
		if err != nil {
			// Push subscriptions may use URL-safe encoding.
			raw, err = base64.URLEncoding.DecodeString(env.Message.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: message.data is not base64: %v", ErrInvalidEvent, err)
			}
		}
		var ev AnalysisEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("%w: message.data is not an analysis event: %v", ErrInvalidEvent, err)
		}
		if err := ev.Validate(); err != nil {
			return nil, err
		}
		return &ev, nil
	}

	var ev AnalysisEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
