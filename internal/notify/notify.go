// Package notify provides best-effort notifier implementations behind the
// services.Notifier interface. Delivery failures are the caller's to log;
// neither implementation retries.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// LogNotifier writes notifications to the structured log instead of
// delivering them. It is the default when no webhook is configured.
type LogNotifier struct{}

// Send logs the notification at info level.
func (LogNotifier) Send(_ context.Context, userID, title, body string) error {
	log.Info().
		Str("user_id", userID).
		Str("title", title).
		Str("body", body).
		Msg("notification")
	return nil
}

// WebhookNotifier POSTs notifications to a collaborator endpoint that owns
// actual device delivery (push tokens, retries, batching).
type WebhookNotifier struct {
	// URL is the collaborator endpoint.
	URL string
	// Client is the HTTP client used for delivery; a short-timeout default
	// is applied when nil.
	Client *http.Client
}

// NewWebhookNotifier builds a notifier with a 5s delivery timeout.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

type webhookPayload struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Send delivers the notification as a JSON POST. Any non-2xx response is an
// error.
func (n *WebhookNotifier) Send(ctx context.Context, userID, title, body string) error {
	payload, err := json.Marshal(webhookPayload{UserID: userID, Title: title, Body: body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}
