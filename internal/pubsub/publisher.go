package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
)

// Publisher hands a published journal off for external emotion analysis.
// Implementations must be safe for concurrent use.
type Publisher interface {
	// PublishJournal emits the analysis request for one journal.
	PublishJournal(ctx context.Context, userID, journalID, content string) error
	// Close releases transport resources.
	Close() error
}

// journalEvent is the outbound payload; the classifier echoes userId and
// journalId back in its analysis result.
type journalEvent struct {
	UserID         string `json:"userId"`
	JournalID      string `json:"journalId"`
	JournalContent string `json:"journalContent"`
}

// GooglePublisher publishes analysis requests to a Google Cloud Pub/Sub
// topic.
type GooglePublisher struct {
	client *gcppubsub.Client
	topic  *gcppubsub.Topic
}

// NewGooglePublisher connects to the project and binds the topic. The topic
// must already exist; creation is an infrastructure concern.
func NewGooglePublisher(ctx context.Context, projectID, topicID string) (*GooglePublisher, error) {
	client, err := gcppubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return &GooglePublisher{client: client, topic: client.Topic(topicID)}, nil
}

// PublishJournal publishes the journal as a JSON message and waits for the
// server's ack.
func (p *GooglePublisher) PublishJournal(ctx context.Context, userID, journalID, content string) error {
	data, err := json.Marshal(journalEvent{UserID: userID, JournalID: journalID, JournalContent: content})
	if err != nil {
		return err
	}
	res := p.topic.Publish(ctx, &gcppubsub.Message{Data: data})
	id, err := res.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish journal %s: %w", journalID, err)
	}
	log.Debug().Str("journal_id", journalID).Str("message_id", id).Msg("analysis request published")
	return nil
}

// Close flushes pending messages and closes the client.
func (p *GooglePublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// NopPublisher drops every event. Used when no topic is configured, e.g. in
// local development without an analysis pipeline.
type NopPublisher struct{}

// PublishJournal logs and discards the event.
func (NopPublisher) PublishJournal(_ context.Context, _, journalID, _ string) error {
	log.Debug().Str("journal_id", journalID).Msg("publisher disabled; analysis request dropped")
	return nil
}

// Close is a no-op.
func (NopPublisher) Close() error { return nil }
