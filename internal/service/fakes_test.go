package service

import (
	"context"
	"sync"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
	"github.com/eventcraft/notifications/internal/provider"
	"github.com/eventcraft/notifications/internal/repository"
)

type fakeNotificationRepo struct {
	createFn                   func(ctx context.Context, n *domain.Notification) error
	getByIDFn                  func(ctx context.Context, id string) (*domain.Notification, error)
	getByIDForRecipientFn      func(ctx context.Context, id string, recipientID string) (*domain.Notification, error)
	listFn                     func(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error)
	countUnreadFn              func(ctx context.Context, recipientID string) (int64, error)
	markReadFn                 func(ctx context.Context, id string, at time.Time) error
	markAllReadFn              func(ctx context.Context, recipientID string, at time.Time) (int64, error)
	markChannelSentFn          func(ctx context.Context, id string, channel domain.Channel, at time.Time) error
	setChannelDeliveryStatusFn func(ctx context.Context, id string, channel domain.Channel, status string) error
	promoteToSentIfCompleteFn  func(ctx context.Context, id string) (bool, error)
	deleteOwnedByFn            func(ctx context.Context, id string, recipientID string) (int64, error)
	getDuePendingFn            func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	deleteExpiredFn            func(ctx context.Context, now time.Time) (int64, error)
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if f.createFn != nil {
		return f.createFn(ctx, n)
	}
	return nil
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationRepo) GetByIDForRecipient(ctx context.Context, id string, recipientID string) (*domain.Notification, error) {
	if f.getByIDForRecipientFn != nil {
		return f.getByIDForRecipientFn(ctx, id, recipientID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	if f.countUnreadFn != nil {
		return f.countUnreadFn(ctx, recipientID)
	}
	return 0, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, id, at)
	}
	return nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, recipientID, at)
	}
	return 0, nil
}

func (f *fakeNotificationRepo) MarkChannelSent(ctx context.Context, id string, channel domain.Channel, at time.Time) error {
	if f.markChannelSentFn != nil {
		return f.markChannelSentFn(ctx, id, channel, at)
	}
	return nil
}

func (f *fakeNotificationRepo) SetChannelDeliveryStatus(ctx context.Context, id string, channel domain.Channel, status string) error {
	if f.setChannelDeliveryStatusFn != nil {
		return f.setChannelDeliveryStatusFn(ctx, id, channel, status)
	}
	return nil
}

func (f *fakeNotificationRepo) PromoteToSentIfComplete(ctx context.Context, id string) (bool, error) {
	if f.promoteToSentIfCompleteFn != nil {
		return f.promoteToSentIfCompleteFn(ctx, id)
	}
	return false, nil
}

func (f *fakeNotificationRepo) DeleteOwnedBy(ctx context.Context, id string, recipientID string) (int64, error) {
	if f.deleteOwnedByFn != nil {
		return f.deleteOwnedByFn(ctx, id, recipientID)
	}
	return 0, nil
}

func (f *fakeNotificationRepo) GetDuePending(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	if f.getDuePendingFn != nil {
		return f.getDuePendingFn(ctx, now, limit)
	}
	return nil, nil
}

func (f *fakeNotificationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if f.deleteExpiredFn != nil {
		return f.deleteExpiredFn(ctx, now)
	}
	return 0, nil
}

type fakeUserRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.User, error)
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type fakeEventRepo struct {
	getByIDFn                      func(ctx context.Context, id string) (*domain.Event, error)
	listPublishedStartingBetweenFn func(ctx context.Context, from time.Time, to time.Time) ([]domain.Event, error)
	listDueHourReminderFn          func(ctx context.Context, now time.Time) ([]domain.Event, error)
	markHourReminderSentFn         func(ctx context.Context, id string) error
	listAttendeeIDsFn              func(ctx context.Context, eventID string) ([]string, error)
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) ListPublishedStartingBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Event, error) {
	if f.listPublishedStartingBetweenFn != nil {
		return f.listPublishedStartingBetweenFn(ctx, from, to)
	}
	return nil, nil
}

func (f *fakeEventRepo) ListDueHourReminder(ctx context.Context, now time.Time) ([]domain.Event, error) {
	if f.listDueHourReminderFn != nil {
		return f.listDueHourReminderFn(ctx, now)
	}
	return nil, nil
}

func (f *fakeEventRepo) MarkHourReminderSent(ctx context.Context, id string) error {
	if f.markHourReminderSentFn != nil {
		return f.markHourReminderSentFn(ctx, id)
	}
	return nil
}

func (f *fakeEventRepo) ListAttendeeIDs(ctx context.Context, eventID string) ([]string, error) {
	if f.listAttendeeIDsFn != nil {
		return f.listAttendeeIDsFn(ctx, eventID)
	}
	return nil, nil
}

type fakeAdapter struct {
	channel domain.Channel
	sendFn  func(ctx context.Context, msg provider.Message) (*provider.SendResult, error)

	mu    sync.Mutex
	calls []provider.Message
}

func (f *fakeAdapter) Channel() domain.Channel { return f.channel }

func (f *fakeAdapter) Send(ctx context.Context, msg provider.Message) (*provider.SendResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, msg)
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.SendResult{}, nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLimiter struct {
	allowFn func(ctx context.Context, channel string) (bool, error)
	waitFn  func(ctx context.Context, channel string) error
}

func (f *fakeLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, channel)
	}
	return true, nil
}

func (f *fakeLimiter) Wait(ctx context.Context, channel string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, channel)
	}
	return nil
}

type fakeRunLock struct {
	tryAcquireFn func(ctx context.Context, name string, token string) (func(context.Context) error, bool, error)
}

func (f *fakeRunLock) TryAcquire(ctx context.Context, name string, token string) (func(context.Context) error, bool, error) {
	if f.tryAcquireFn != nil {
		return f.tryAcquireFn(ctx, name, token)
	}
	return func(context.Context) error { return nil }, true, nil
}
