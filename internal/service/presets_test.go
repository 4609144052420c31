package service

import (
	"context"
	"testing"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
)

func presetEvent() *domain.Event {
	return &domain.Event{
		ID:       "ev-1",
		Title:    "GopherCon",
		Venue:    "Main Hall",
		Status:   domain.EventStatusPublished,
		StartsAt: time.Now().UTC().Add(45 * time.Minute),
	}
}

func TestNotifyTicketConfirmation(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	inApp := &fakeAdapter{channel: domain.ChannelInApp}
	email := &fakeAdapter{channel: domain.ChannelEmail}
	svc := newTestService(t, store, testUser(), inApp, email)

	result, err := svc.NotifyTicketConfirmation(context.Background(), "user-1", presetEvent(), "t-1")
	if err != nil {
		t.Fatalf("NotifyTicketConfirmation() error = %v", err)
	}

	if result.Category != domain.CategoryTicketConfirmation {
		t.Fatalf("category = %s, want ticket_confirmation", result.Category)
	}
	if !result.Channels.Email.Enabled {
		t.Fatal("confirmation should request the email channel")
	}
	if result.RelatedTicketID == nil || *result.RelatedTicketID != "t-1" {
		t.Fatalf("related ticket = %v, want t-1", result.RelatedTicketID)
	}
	if result.Action == nil || result.Action.URL != "/tickets/t-1" {
		t.Fatalf("action = %+v, want a ticket link", result.Action)
	}
}

func TestNotifyImminentStartPrefersSMS(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	sms := &fakeAdapter{channel: domain.ChannelSMS}
	inApp := &fakeAdapter{channel: domain.ChannelInApp}
	svc := newTestService(t, store, testUser(), sms, inApp)

	result, err := svc.NotifyImminentStart(context.Background(), testUser(), presetEvent())
	if err != nil {
		t.Fatalf("NotifyImminentStart() error = %v", err)
	}

	if !result.Channels.SMS.Enabled {
		t.Fatal("sms should be chosen for an opted-in recipient with a phone")
	}
	if result.Channels.Email.Enabled {
		t.Fatal("email should not be requested when sms is viable")
	}
	if result.Priority != domain.PriorityUrgent {
		t.Fatalf("priority = %s, want urgent", result.Priority)
	}
}

func TestNotifyImminentStartFallsBackToEmail(t *testing.T) {
	t.Parallel()

	user := &domain.User{
		ID:    "user-1",
		Name:  "Ada",
		Email: "ada@example.com",
		// No phone, so sms is not viable even though it would be preferred.
		Preferences: domain.NotificationPreferences{SMS: true},
	}

	store := &memoryNotificationStore{}
	email := &fakeAdapter{channel: domain.ChannelEmail}
	inApp := &fakeAdapter{channel: domain.ChannelInApp}
	svc := newTestService(t, store, user, email, inApp)

	result, err := svc.NotifyImminentStart(context.Background(), user, presetEvent())
	if err != nil {
		t.Fatalf("NotifyImminentStart() error = %v", err)
	}

	if result.Channels.SMS.Enabled {
		t.Fatal("sms cannot be enabled without a phone number")
	}
	if !result.Channels.Email.Enabled {
		t.Fatal("email should be the fallback channel")
	}
}

func TestNotifyEventCancelledFansOut(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	inApp := &fakeAdapter{channel: domain.ChannelInApp}
	email := &fakeAdapter{channel: domain.ChannelEmail}
	sms := &fakeAdapter{channel: domain.ChannelSMS}
	svc := newTestService(t, store, testUser(), inApp, email, sms)

	created, err := svc.NotifyEventCancelled(context.Background(), []string{"ghost", "user-1"}, presetEvent())
	if err != nil {
		t.Fatalf("NotifyEventCancelled() error = %v", err)
	}

	if len(created) != 1 {
		t.Fatalf("created = %d, want 1, unknown attendees are skipped", len(created))
	}
	if created[0].Priority != domain.PriorityUrgent {
		t.Fatalf("priority = %s, want urgent", created[0].Priority)
	}
	if !created[0].Channels.SMS.Enabled {
		t.Fatal("cancellation should reach opted-in attendees by sms too")
	}
}
