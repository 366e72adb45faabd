package services

import "context"

// Notifier is the outbound notification collaborator. Implementations are
// best-effort: callers log a send failure and move on, they never fail the
// primary operation because of it.
type Notifier interface {
	// Send delivers a notification to the user's device. The error is
	// advisory; callers must not propagate it past a log line.
	Send(ctx context.Context, userID, title, body string) error
}
