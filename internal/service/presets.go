package service

import (
	"context"
	"fmt"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
)

// Predefined convenience wrappers: thin parameter presets over
// CreateNotification for the domain moments the main backend reacts to.
// They inherit all creation and dispatch contracts.

func boolPtr(v bool) *bool { return &v }

func (s *DispatchService) NotifyTicketConfirmation(ctx context.Context, userID string, event *domain.Event, ticketID string) (*domain.Notification, error) {
	return s.CreateNotification(ctx, CreateNotificationInput{
		RecipientID:     userID,
		Title:           fmt.Sprintf("Ticket confirmed: %s", event.Title),
		Message:         fmt.Sprintf("Your registration for %s on %s is confirmed.", event.Title, event.StartsAt.Format("2 Jan 2006 15:04")),
		Category:        domain.CategoryTicketConfirmation,
		RelatedEventID:  &event.ID,
		RelatedTicketID: &ticketID,
		Channels:        domain.ChannelRequest{Email: boolPtr(true)},
		Action: &domain.Action{
			Text: "View ticket",
			URL:  fmt.Sprintf("/tickets/%s", ticketID),
			Type: "link",
		},
	})
}

func (s *DispatchService) NotifyTicketCheckin(ctx context.Context, userID string, event *domain.Event, ticketID string) (*domain.Notification, error) {
	return s.CreateNotification(ctx, CreateNotificationInput{
		RecipientID:     userID,
		Title:           fmt.Sprintf("Checked in: %s", event.Title),
		Message:         fmt.Sprintf("You checked in to %s. Enjoy the event!", event.Title),
		Category:        domain.CategoryTicketCheckin,
		RelatedEventID:  &event.ID,
		RelatedTicketID: &ticketID,
	})
}

func (s *DispatchService) NotifyEventApproved(ctx context.Context, organizerID string, event *domain.Event) (*domain.Notification, error) {
	return s.CreateNotification(ctx, CreateNotificationInput{
		RecipientID:    organizerID,
		Title:          fmt.Sprintf("Event approved: %s", event.Title),
		Message:        fmt.Sprintf("%s was approved and is now published.", event.Title),
		Category:       domain.CategoryEventApproved,
		Priority:       domain.PriorityHigh,
		RelatedEventID: &event.ID,
		Channels:       domain.ChannelRequest{Email: boolPtr(true)},
	})
}

func (s *DispatchService) NotifyEventRejected(ctx context.Context, organizerID string, event *domain.Event, reason string) (*domain.Notification, error) {
	message := fmt.Sprintf("%s was not approved.", event.Title)
	if reason != "" {
		message = reason
	}
	return s.CreateNotification(ctx, CreateNotificationInput{
		RecipientID:    organizerID,
		Title:          fmt.Sprintf("Event not approved: %s", event.Title),
		Message:        message,
		Category:       domain.CategoryEventRejected,
		Priority:       domain.PriorityHigh,
		RelatedEventID: &event.ID,
		Channels:       domain.ChannelRequest{Email: boolPtr(true)},
	})
}

// NotifyEventCancelled fans a cancellation out to every attendee, including
// SMS for attendees who opted in.
func (s *DispatchService) NotifyEventCancelled(ctx context.Context, attendeeIDs []string, event *domain.Event) ([]domain.Notification, error) {
	return s.CreateBulk(ctx, attendeeIDs, CreateNotificationInput{
		Title:          fmt.Sprintf("Cancelled: %s", event.Title),
		Message:        fmt.Sprintf("%s on %s has been cancelled.", event.Title, event.StartsAt.Format("2 Jan 2006 15:04")),
		Category:       domain.CategoryEventCancelled,
		Priority:       domain.PriorityUrgent,
		RelatedEventID: &event.ID,
		Channels:       domain.ChannelRequest{Email: boolPtr(true), SMS: boolPtr(true)},
	})
}

func (s *DispatchService) NotifyEventUpdated(ctx context.Context, attendeeIDs []string, event *domain.Event, changes string) ([]domain.Notification, error) {
	message := fmt.Sprintf("Details for %s have changed.", event.Title)
	if changes != "" {
		message = changes
	}
	return s.CreateBulk(ctx, attendeeIDs, CreateNotificationInput{
		Title:          fmt.Sprintf("Update: %s", event.Title),
		Message:        message,
		Category:       domain.CategoryEventUpdated,
		RelatedEventID: &event.ID,
		Channels:       domain.ChannelRequest{Email: boolPtr(true)},
	})
}

// NotifyEventReminder is the daily "event is tomorrow" preset.
func (s *DispatchService) NotifyEventReminder(ctx context.Context, userID string, event *domain.Event) (*domain.Notification, error) {
	return s.CreateNotification(ctx, CreateNotificationInput{
		RecipientID:    userID,
		Title:          fmt.Sprintf("Reminder: %s is tomorrow", event.Title),
		Message:        fmt.Sprintf("%s starts on %s at %s.", event.Title, event.StartsAt.Format("Mon, 2 Jan 15:04"), event.Venue),
		Category:       domain.CategoryEventReminder,
		RelatedEventID: &event.ID,
		Channels:       domain.ChannelRequest{Email: boolPtr(true)},
	})
}

// NotifyImminentStart is the hourly "starts within the hour" preset. It
// prefers SMS when the recipient can receive one and falls back to email.
func (s *DispatchService) NotifyImminentStart(ctx context.Context, user *domain.User, event *domain.Event) (*domain.Notification, error) {
	channels := domain.ChannelRequest{Email: boolPtr(true)}
	if user.HasPhone() && user.Preferences.SMS {
		channels = domain.ChannelRequest{SMS: boolPtr(true)}
	}

	minutes := int(time.Until(event.StartsAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}

	return s.CreateNotification(ctx, CreateNotificationInput{
		RecipientID:    user.ID,
		Title:          fmt.Sprintf("Starting soon: %s", event.Title),
		Message:        fmt.Sprintf("%s starts in about %d minutes at %s.", event.Title, minutes, event.Venue),
		Category:       domain.CategoryEventReminder,
		Priority:       domain.PriorityUrgent,
		RelatedEventID: &event.ID,
		Channels:       channels,
	})
}
