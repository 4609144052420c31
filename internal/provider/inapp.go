package provider

import (
	"context"

	"github.com/eventcraft/notifications/internal/domain"
)

// InAppAdapter is the trivial channel: the persisted record is the delivery,
// so a send succeeds the instant it is called.
type InAppAdapter struct{}

func NewInAppAdapter() *InAppAdapter {
	return &InAppAdapter{}
}

func (a *InAppAdapter) Channel() domain.Channel {
	return domain.ChannelInApp
}

func (a *InAppAdapter) Send(_ context.Context, _ Message) (*SendResult, error) {
	return &SendResult{}, nil
}
