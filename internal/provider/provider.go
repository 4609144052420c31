package provider

import (
	"context"

	"github.com/eventcraft/notifications/internal/domain"
)

// Adapter is the outbound delivery port for one channel. Implementations are
// stateless wrappers around a transport; they return classified errors and
// never panic across this boundary, so the dispatcher can record a partial
// failure without aborting the rest of the fan-out.
type Adapter interface {
	Channel() domain.Channel
	Send(ctx context.Context, msg Message) (*SendResult, error)
}

// Message is the channel-appropriate payload handed to an adapter: HTML body
// for email, plain text for SMS, nothing external for in-app.
type Message struct {
	To      string
	Subject string
	Body    string
}

// SendResult stores provider call metadata for audit and logging.
type SendResult struct {
	ProviderID string
	StatusCode int
}
