package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogNotifier_Send(t *testing.T) {
	if err := (LogNotifier{}).Send(context.Background(), "u1", "hi", "there"); err != nil {
		t.Fatalf("log notifier: %v", err)
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), "u1", "Achievement unlocked!", "Scribe I"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.UserID != "u1" || got.Title != "Achievement unlocked!" || got.Body != "Scribe I" {
		t.Fatalf("payload wrong: %+v", got)
	}
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), "u1", "t", "b"); err == nil {
		t.Fatalf("expected error on 502")
	}
}
