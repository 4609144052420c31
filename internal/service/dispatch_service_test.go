package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
	"github.com/eventcraft/notifications/internal/provider"
)

// memoryNotificationStore backs the fakes with a minimal in-memory record so
// create-then-send flows observe their own writes.
type memoryNotificationStore struct {
	mu     sync.Mutex
	record *domain.Notification
}

func (s *memoryNotificationStore) repo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		createFn: func(ctx context.Context, n *domain.Notification) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			copied := *n
			s.record = &copied
			return nil
		},
		getByIDFn: func(ctx context.Context, id string) (*domain.Notification, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.record == nil || s.record.ID != id {
				return nil, domain.ErrNotFound
			}
			copied := *s.record
			return &copied, nil
		},
		markChannelSentFn: func(ctx context.Context, id string, channel domain.Channel, at time.Time) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			state := channelStateRef(s.record, channel)
			state.Sent = true
			state.SentAt = &at
			state.DeliveryStatus = domain.DeliveryDelivered
			return nil
		},
		setChannelDeliveryStatusFn: func(ctx context.Context, id string, channel domain.Channel, status string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			channelStateRef(s.record, channel).DeliveryStatus = status
			return nil
		},
		promoteToSentIfCompleteFn: func(ctx context.Context, id string) (bool, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.record.Status != domain.StatusPending || !s.record.Channels.AllEnabledSent() {
				return false, nil
			}
			s.record.Status = domain.StatusSent
			return true, nil
		},
	}
}

func channelStateRef(n *domain.Notification, ch domain.Channel) *domain.ChannelState {
	switch ch {
	case domain.ChannelEmail:
		return &n.Channels.Email
	case domain.ChannelSMS:
		return &n.Channels.SMS
	default:
		return &n.Channels.InApp
	}
}

func testUser() *domain.User {
	return &domain.User{
		ID:    "user-1",
		Name:  "Ada",
		Email: "ada@example.com",
		Phone: "+15550001111",
		Preferences: domain.NotificationPreferences{
			SMS: true,
		},
	}
}

func userRepoReturning(user *domain.User) *fakeUserRepo {
	return &fakeUserRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.User, error) {
			if user != nil && user.ID == id {
				return user, nil
			}
			return nil, domain.ErrNotFound
		},
	}
}

func newTestService(t *testing.T, store *memoryNotificationStore, user *domain.User, adapters ...provider.Adapter) *DispatchService {
	t.Helper()

	svc, err := NewDispatchService(
		store.repo(),
		userRepoReturning(user),
		&fakeEventRepo{},
		adapters,
		&fakeLimiter{},
		time.Second,
		nil,
	)
	if err != nil {
		t.Fatalf("NewDispatchService() error = %v", err)
	}
	return svc
}

func TestCreateNotificationImmediateDispatch(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	email := &fakeAdapter{channel: domain.ChannelEmail}
	inApp := &fakeAdapter{channel: domain.ChannelInApp}
	svc := newTestService(t, store, testUser(), email, inApp)

	result, err := svc.CreateNotification(context.Background(), CreateNotificationInput{
		RecipientID: "user-1",
		Title:       "Welcome",
		Message:     "Hello there",
		Channels:    domain.ChannelRequest{Email: boolPtr(true)},
	})
	if err != nil {
		t.Fatalf("CreateNotification() error = %v", err)
	}

	if result.Status != domain.StatusSent {
		t.Fatalf("status = %s, want sent", result.Status)
	}
	if email.callCount() != 1 {
		t.Fatalf("email sends = %d, want 1", email.callCount())
	}
	if inApp.callCount() != 1 {
		t.Fatalf("in-app sends = %d, want 1", inApp.callCount())
	}
	if !result.Channels.Email.Sent || !result.Channels.InApp.Sent {
		t.Fatal("both enabled channels should be marked sent")
	}
	if result.Channels.SMS.Enabled {
		t.Fatal("sms should stay disabled when not requested")
	}
}

func TestCreateNotificationChannelFailureKeepsPending(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	email := &fakeAdapter{
		channel: domain.ChannelEmail,
		sendFn: func(ctx context.Context, msg provider.Message) (*provider.SendResult, error) {
			return nil, &provider.ProviderError{StatusCode: 502, Message: "upstream down", Transient: true}
		},
	}
	inApp := &fakeAdapter{channel: domain.ChannelInApp}
	svc := newTestService(t, store, testUser(), email, inApp)

	result, err := svc.CreateNotification(context.Background(), CreateNotificationInput{
		RecipientID: "user-1",
		Title:       "Welcome",
		Message:     "Hello there",
		Channels:    domain.ChannelRequest{Email: boolPtr(true)},
	})
	if err != nil {
		t.Fatalf("CreateNotification() error = %v", err)
	}

	if result.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending while a channel is unsent", result.Status)
	}
	if !result.Channels.InApp.Sent {
		t.Fatal("in-app should succeed independently of the email failure")
	}
	if result.Channels.Email.Sent {
		t.Fatal("failed email channel must not be marked sent")
	}
	if result.Channels.Email.DeliveryStatus != domain.DeliveryFailed {
		t.Fatalf("email delivery status = %q, want %q", result.Channels.Email.DeliveryStatus, domain.DeliveryFailed)
	}
}

func TestSendNotificationPartialFailureNotRedelivered(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	email := &fakeAdapter{
		channel: domain.ChannelEmail,
		sendFn: func(ctx context.Context, msg provider.Message) (*provider.SendResult, error) {
			return nil, &provider.ProviderError{StatusCode: 502, Message: "upstream down", Transient: true}
		},
	}
	inApp := &fakeAdapter{channel: domain.ChannelInApp}
	svc := newTestService(t, store, testUser(), email, inApp)

	created, err := svc.CreateNotification(context.Background(), CreateNotificationInput{
		RecipientID: "user-1",
		Title:       "Welcome",
		Message:     "Hello there",
		Channels:    domain.ChannelRequest{Email: boolPtr(true)},
	})
	if err != nil {
		t.Fatalf("CreateNotification() error = %v", err)
	}
	if created.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending after the email failure", created.Status)
	}

	// A second dispatch, as the due scanner would issue it.
	redone, err := svc.SendNotification(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("SendNotification() error = %v", err)
	}

	if inApp.callCount() != 1 {
		t.Fatalf("in-app sends = %d, want 1, a delivered channel must not be re-delivered", inApp.callCount())
	}
	if email.callCount() != 1 {
		t.Fatalf("email sends = %d, want 1, a failed channel is terminal", email.callCount())
	}
	if redone.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending while the email channel stays unsent", redone.Status)
	}
}

func TestCreateNotificationFutureScheduleSkipsDispatch(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	email := &fakeAdapter{channel: domain.ChannelEmail}
	svc := newTestService(t, store, testUser(), email)

	scheduledFor := time.Now().UTC().Add(2 * time.Hour)
	result, err := svc.CreateNotification(context.Background(), CreateNotificationInput{
		RecipientID:  "user-1",
		Title:        "Later",
		Message:      "See you soon",
		Channels:     domain.ChannelRequest{Email: boolPtr(true)},
		ScheduledFor: &scheduledFor,
	})
	if err != nil {
		t.Fatalf("CreateNotification() error = %v", err)
	}

	if result.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", result.Status)
	}
	if email.callCount() != 0 {
		t.Fatalf("email sends = %d, want 0 before the scheduled time", email.callCount())
	}
	if !result.ScheduledFor.Equal(scheduledFor) {
		t.Fatalf("scheduledFor = %v, want %v", result.ScheduledFor, scheduledFor)
	}
}

func TestCreateNotificationUnknownRecipient(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	svc := newTestService(t, store, testUser())

	_, err := svc.CreateNotification(context.Background(), CreateNotificationInput{
		RecipientID: "nobody",
		Title:       "Hi",
		Message:     "Hi",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCreateNotificationMissingRecipient(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	svc := newTestService(t, store, testUser())

	_, err := svc.CreateNotification(context.Background(), CreateNotificationInput{
		Title:   "Hi",
		Message: "Hi",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestCreateNotificationSMSRequiresPhoneAndOptIn(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		user    *domain.User
		wantSMS bool
	}{
		{
			name: "phone and opt-in",
			user: &domain.User{
				ID: "user-1", Email: "a@b.c", Phone: "+15550001111",
				Preferences: domain.NotificationPreferences{SMS: true},
			},
			wantSMS: true,
		},
		{
			name: "opt-in without phone",
			user: &domain.User{
				ID: "user-1", Email: "a@b.c",
				Preferences: domain.NotificationPreferences{SMS: true},
			},
			wantSMS: false,
		},
		{
			name: "phone without opt-in",
			user: &domain.User{
				ID: "user-1", Email: "a@b.c", Phone: "+15550001111",
			},
			wantSMS: false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := &memoryNotificationStore{}
			sms := &fakeAdapter{channel: domain.ChannelSMS}
			inApp := &fakeAdapter{channel: domain.ChannelInApp}
			svc := newTestService(t, store, tc.user, sms, inApp)

			result, err := svc.CreateNotification(context.Background(), CreateNotificationInput{
				RecipientID: "user-1",
				Title:       "Hi",
				Message:     "Hi",
				Channels:    domain.ChannelRequest{SMS: boolPtr(true)},
			})
			if err != nil {
				t.Fatalf("CreateNotification() error = %v", err)
			}

			if result.Channels.SMS.Enabled != tc.wantSMS {
				t.Fatalf("sms enabled = %v, want %v", result.Channels.SMS.Enabled, tc.wantSMS)
			}
			wantSends := 0
			if tc.wantSMS {
				wantSends = 1
			}
			if sms.callCount() != wantSends {
				t.Fatalf("sms sends = %d, want %d", sms.callCount(), wantSends)
			}
		})
	}
}

func TestCreateNotificationEmailOptOut(t *testing.T) {
	t.Parallel()

	optedOut := false
	user := &domain.User{
		ID: "user-1", Email: "a@b.c",
		Preferences: domain.NotificationPreferences{Email: &optedOut},
	}

	store := &memoryNotificationStore{}
	email := &fakeAdapter{channel: domain.ChannelEmail}
	inApp := &fakeAdapter{channel: domain.ChannelInApp}
	svc := newTestService(t, store, user, email, inApp)

	result, err := svc.CreateNotification(context.Background(), CreateNotificationInput{
		RecipientID: "user-1",
		Title:       "Hi",
		Message:     "Hi",
		Channels:    domain.ChannelRequest{Email: boolPtr(true)},
	})
	if err != nil {
		t.Fatalf("CreateNotification() error = %v", err)
	}

	if result.Channels.Email.Enabled {
		t.Fatal("email should be disabled for an opted-out recipient")
	}
	if email.callCount() != 0 {
		t.Fatalf("email sends = %d, want 0", email.callCount())
	}
	if result.Status != domain.StatusSent {
		t.Fatalf("status = %s, want sent once in-app (the only enabled channel) is sent", result.Status)
	}
}

func TestSendNotificationMissingAdapterRecordsFailure(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	// No email adapter registered even though the channel is enabled.
	inApp := &fakeAdapter{channel: domain.ChannelInApp}
	svc := newTestService(t, store, testUser(), inApp)

	result, err := svc.CreateNotification(context.Background(), CreateNotificationInput{
		RecipientID: "user-1",
		Title:       "Hi",
		Message:     "Hi",
		Channels:    domain.ChannelRequest{Email: boolPtr(true)},
	})
	if err != nil {
		t.Fatalf("CreateNotification() error = %v", err)
	}

	if result.Channels.Email.DeliveryStatus != domain.DeliveryFailed {
		t.Fatalf("email delivery status = %q, want %q", result.Channels.Email.DeliveryStatus, domain.DeliveryFailed)
	}
	if result.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", result.Status)
	}
}

func TestMarkAsReadIdempotent(t *testing.T) {
	t.Parallel()

	readAt := time.Now().UTC().Add(-time.Hour)
	markReadCalls := 0
	repo := &fakeNotificationRepo{
		getByIDForRecipientFn: func(ctx context.Context, id string, recipientID string) (*domain.Notification, error) {
			if id != "n-1" || recipientID != "user-1" {
				return nil, domain.ErrNotFound
			}
			return &domain.Notification{ID: "n-1", RecipientID: "user-1", IsRead: true, ReadAt: &readAt}, nil
		},
		markReadFn: func(ctx context.Context, id string, at time.Time) error {
			markReadCalls++
			return nil
		},
	}

	svc, err := NewDispatchService(repo, userRepoReturning(testUser()), &fakeEventRepo{}, nil, nil, time.Second, nil)
	if err != nil {
		t.Fatalf("NewDispatchService() error = %v", err)
	}

	result, err := svc.MarkAsRead(context.Background(), "n-1", "user-1")
	if err != nil {
		t.Fatalf("MarkAsRead() error = %v", err)
	}
	if !result.IsRead {
		t.Fatal("record should stay read")
	}
	if result.ReadAt == nil || !result.ReadAt.Equal(readAt) {
		t.Fatal("readAt must keep its original value on repeat calls")
	}
	if markReadCalls != 0 {
		t.Fatalf("MarkRead calls = %d, want 0 for an already-read record", markReadCalls)
	}
}

func TestMarkAsReadCrossUserLooksLikeNotFound(t *testing.T) {
	t.Parallel()

	repo := &fakeNotificationRepo{
		getByIDForRecipientFn: func(ctx context.Context, id string, recipientID string) (*domain.Notification, error) {
			return nil, domain.ErrNotFound
		},
	}

	svc, err := NewDispatchService(repo, userRepoReturning(testUser()), &fakeEventRepo{}, nil, nil, time.Second, nil)
	if err != nil {
		t.Fatalf("NewDispatchService() error = %v", err)
	}

	_, err = svc.MarkAsRead(context.Background(), "n-1", "someone-else")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteNotificationOwnership(t *testing.T) {
	t.Parallel()

	repo := &fakeNotificationRepo{
		deleteOwnedByFn: func(ctx context.Context, id string, recipientID string) (int64, error) {
			if recipientID == "user-1" {
				return 1, nil
			}
			return 0, nil
		},
	}

	svc, err := NewDispatchService(repo, userRepoReturning(testUser()), &fakeEventRepo{}, nil, nil, time.Second, nil)
	if err != nil {
		t.Fatalf("NewDispatchService() error = %v", err)
	}

	deleted, err := svc.DeleteNotification(context.Background(), "n-1", "user-1")
	if err != nil {
		t.Fatalf("DeleteNotification() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	deleted, err = svc.DeleteNotification(context.Background(), "n-1", "intruder")
	if err != nil {
		t.Fatalf("DeleteNotification() error = %v", err)
	}
	if deleted != 0 {
		t.Fatalf("deleted = %d, want 0 for a non-owner", deleted)
	}
}

func TestProcessScheduledContinuesPastFailures(t *testing.T) {
	t.Parallel()

	dispatched := make([]string, 0, 2)
	var mu sync.Mutex
	repo := &fakeNotificationRepo{
		getDuePendingFn: func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
			return []domain.Notification{
				{ID: "broken", RecipientID: "ghost"},
				{ID: "ok", RecipientID: "user-1", Channels: domain.ChannelSet{InApp: domain.ChannelState{Enabled: true}}},
			}, nil
		},
		getByIDFn: func(ctx context.Context, id string) (*domain.Notification, error) {
			switch id {
			case "broken":
				return &domain.Notification{ID: "broken", RecipientID: "ghost"}, nil
			case "ok":
				return &domain.Notification{ID: "ok", RecipientID: "user-1", Channels: domain.ChannelSet{InApp: domain.ChannelState{Enabled: true}}}, nil
			}
			return nil, domain.ErrNotFound
		},
		markChannelSentFn: func(ctx context.Context, id string, channel domain.Channel, at time.Time) error {
			mu.Lock()
			dispatched = append(dispatched, id)
			mu.Unlock()
			return nil
		},
	}

	inApp := &fakeAdapter{channel: domain.ChannelInApp}
	svc, err := NewDispatchService(repo, userRepoReturning(testUser()), &fakeEventRepo{}, []provider.Adapter{inApp}, nil, time.Second, nil)
	if err != nil {
		t.Fatalf("NewDispatchService() error = %v", err)
	}

	if err := svc.ProcessScheduled(context.Background()); err != nil {
		t.Fatalf("ProcessScheduled() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(dispatched) != 1 || dispatched[0] != "ok" {
		t.Fatalf("dispatched = %v, want only the resolvable record", dispatched)
	}
}

func TestCreateBulkSkipsUnknownRecipients(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	inApp := &fakeAdapter{channel: domain.ChannelInApp}
	svc := newTestService(t, store, testUser(), inApp)

	created, err := svc.CreateBulk(context.Background(), []string{"ghost", "user-1"}, CreateNotificationInput{
		Title:   "Hi",
		Message: "Hi",
	})
	if err != nil {
		t.Fatalf("CreateBulk() error = %v", err)
	}

	if len(created) != 1 {
		t.Fatalf("created = %d, want 1", len(created))
	}
	if created[0].RecipientID != "user-1" {
		t.Fatalf("recipient = %s, want user-1", created[0].RecipientID)
	}
}

func TestCreateBulkRequiresRecipients(t *testing.T) {
	t.Parallel()

	store := &memoryNotificationStore{}
	svc := newTestService(t, store, testUser())

	_, err := svc.CreateBulk(context.Background(), nil, CreateNotificationInput{Title: "Hi", Message: "Hi"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}
