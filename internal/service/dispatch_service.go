package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
	"github.com/eventcraft/notifications/internal/observability"
	"github.com/eventcraft/notifications/internal/provider"
	"github.com/eventcraft/notifications/internal/ratelimit"
	"github.com/eventcraft/notifications/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSendTimeout   = 5 * time.Second
	defaultDueBatchLimit = 100
)

// DispatchService is the single entry point domain code uses to originate a
// notification, and the engine that turns a persisted record into channel
// deliveries.
type DispatchService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	events        repository.EventRepository
	adapters      map[domain.Channel]provider.Adapter
	limiter       ratelimit.RateLimiter
	logger        *zap.Logger
	metrics       *observability.Metrics
	sendTimeout   time.Duration
	now           func() time.Time
}

func NewDispatchService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	events repository.EventRepository,
	adapters []provider.Adapter,
	limiter ratelimit.RateLimiter,
	sendTimeout time.Duration,
	logger *zap.Logger,
) (*DispatchService, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	byChannel := make(map[domain.Channel]provider.Adapter, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		byChannel[adapter.Channel()] = adapter
	}

	return &DispatchService{
		notifications: notifications,
		users:         users,
		events:        events,
		adapters:      byChannel,
		limiter:       limiter,
		logger:        logger,
		sendTimeout:   sendTimeout,
		now:           time.Now,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// CreateNotificationInput carries everything a collaborator can say about a
// new notification. RecipientID is the one canonical recipient field; the
// legacy alias is translated away at the HTTP boundary.
type CreateNotificationInput struct {
	RecipientID     string
	Title           string
	Message         string
	Category        domain.Category
	Priority        domain.Priority
	RelatedEventID  *string
	RelatedTicketID *string
	Action          *domain.Action
	ExpiresAt       *time.Time
	ScheduledFor    *time.Time
	Channels        domain.ChannelRequest
}

// CreateNotification resolves the enabled-channel set from the recipient's
// preferences, persists the record, and dispatches immediately when the
// record is already due. Future-scheduled records stay pending for the due
// scanner to pick up.
func (s *DispatchService) CreateNotification(ctx context.Context, input CreateNotificationInput) (*domain.Notification, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	recipientID := strings.TrimSpace(input.RecipientID)
	if recipientID == "" {
		return nil, fmt.Errorf("%w: recipient is required", domain.ErrValidation)
	}

	user, err := s.users.GetByID(ctx, recipientID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: recipient %s", domain.ErrNotFound, recipientID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient: %w", err)
	}

	category := input.Category
	if category == "" {
		category = domain.CategoryInfo
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}

	now := s.now().UTC()
	scheduledFor := now
	if input.ScheduledFor != nil {
		scheduledFor = input.ScheduledFor.UTC()
	}

	notification := &domain.Notification{
		ID:              uuid.NewString(),
		RecipientID:     user.ID,
		Title:           strings.TrimSpace(input.Title),
		Message:         strings.TrimSpace(input.Message),
		Category:        category,
		Priority:        priority,
		Status:          domain.StatusPending,
		Channels:        domain.DetermineChannels(user.Preferences, input.Channels, user.HasPhone()),
		RelatedEventID:  input.RelatedEventID,
		RelatedTicketID: input.RelatedTicketID,
		Action:          input.Action,
		ExpiresAt:       input.ExpiresAt,
		ScheduledFor:    scheduledFor,
	}

	if err := notification.Validate(); err != nil {
		return nil, err
	}

	if err := s.notifications.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}
	s.metrics.IncNotificationCreated(category.String())

	if !notification.DueAt(now) {
		return notification, nil
	}

	return s.SendNotification(ctx, notification.ID)
}

// SendNotification fans the record out to every enabled channel that still
// has work left. Channel attempts run concurrently and independently: one
// adapter's failure is recorded in that channel's delivery status and never
// aborts the others. Channels already sent are not delivered again and failed
// channels are terminal, so re-dispatching a partially failed record is safe.
// The record is promoted to sent only once every enabled channel is sent;
// zero enabled channels promote vacuously.
func (s *DispatchService) SendNotification(ctx context.Context, id string) (*domain.Notification, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	notification, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, notification.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient for send: %w", err)
	}

	event := s.loadRelatedEvent(ctx, notification)

	var wg sync.WaitGroup
	for _, channel := range notification.Channels.Enabled() {
		if state := notification.Channels.State(channel); state.Sent || state.DeliveryStatus == domain.DeliveryFailed {
			continue
		}
		wg.Add(1)
		go func(ch domain.Channel) {
			defer wg.Done()
			s.attemptChannel(ctx, notification, user, event, ch)
		}(channel)
	}
	wg.Wait()

	promoted, err := s.notifications.PromoteToSentIfComplete(ctx, notification.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize notification status: %w", err)
	}
	if promoted {
		s.logger.Info("notification sent",
			zap.String("notificationId", notification.ID),
			zap.String("category", notification.Category.String()),
		)
	}

	return s.notifications.GetByID(ctx, notification.ID)
}

// attemptChannel performs one channel's delivery attempt and records the
// outcome. Failures are captured, never propagated.
func (s *DispatchService) attemptChannel(
	ctx context.Context,
	notification *domain.Notification,
	user *domain.User,
	event *domain.Event,
	channel domain.Channel,
) {
	adapter, ok := s.adapters[channel]
	if !ok {
		s.recordChannelFailure(ctx, notification.ID, channel, "no adapter configured", fmt.Errorf("no adapter for channel %s", channel))
		return
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, channel.String()); err != nil {
			s.recordChannelFailure(ctx, notification.ID, channel, "rate limiter wait failed", err)
			return
		}
	}

	msg := s.buildMessage(notification, user, event, channel)

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	sendStart := s.now()
	result, err := adapter.Send(sendCtx, msg)
	s.metrics.ObserveChannelSendDuration(channel.String(), s.now().Sub(sendStart))

	if err != nil {
		s.recordChannelFailure(ctx, notification.ID, channel, "adapter send failed", err)
		return
	}

	if err := s.notifications.MarkChannelSent(ctx, notification.ID, channel, s.now().UTC()); err != nil {
		s.logger.Error("failed to mark channel sent",
			zap.String("notificationId", notification.ID),
			zap.String("channel", channel.String()),
			zap.Error(err),
		)
		return
	}

	s.metrics.IncChannelSent(channel.String())

	fields := []zap.Field{
		zap.String("notificationId", notification.ID),
		zap.String("channel", channel.String()),
	}
	if result != nil && result.ProviderID != "" {
		fields = append(fields, zap.String("providerId", result.ProviderID))
	}
	s.logger.Debug("channel delivered", fields...)
}

func (s *DispatchService) recordChannelFailure(ctx context.Context, id string, channel domain.Channel, msg string, cause error) {
	s.logger.Warn(msg,
		zap.String("notificationId", id),
		zap.String("channel", channel.String()),
		zap.Error(cause),
	)

	reason := "permanent"
	if provider.IsTransient(cause) {
		reason = "transient"
	}
	s.metrics.IncChannelFailed(channel.String(), reason)

	if err := s.notifications.SetChannelDeliveryStatus(ctx, id, channel, domain.DeliveryFailed); err != nil {
		s.logger.Error("failed to record channel failure",
			zap.String("notificationId", id),
			zap.String("channel", channel.String()),
			zap.Error(err),
		)
	}
}

// buildMessage picks the channel-appropriate payload, preferring a canned
// template when the record refers to an event the category knows how to
// render.
func (s *DispatchService) buildMessage(
	notification *domain.Notification,
	user *domain.User,
	event *domain.Event,
	channel domain.Channel,
) provider.Message {
	switch channel {
	case domain.ChannelEmail:
		return s.buildEmailMessage(notification, user, event)
	case domain.ChannelSMS:
		return s.buildSMSMessage(notification, user, event)
	}
	return provider.Message{}
}

func (s *DispatchService) buildEmailMessage(n *domain.Notification, user *domain.User, event *domain.Event) provider.Message {
	if event != nil {
		switch n.Category {
		case domain.CategoryEventReminder:
			return provider.EventReminderEmail(user, event)
		case domain.CategoryTicketConfirmation, domain.CategoryEventRegistered:
			return provider.TicketConfirmationEmail(user, event)
		case domain.CategoryEventApproved:
			return provider.EventApprovedEmail(user, event)
		case domain.CategoryEventRejected:
			return provider.EventRejectedEmail(user, event, n.Message)
		case domain.CategoryEventCancelled, domain.CategoryTicketCancelled:
			return provider.EventCancelledEmail(user, event)
		case domain.CategoryEventUpdated, domain.CategoryEventUpdate:
			return provider.EventUpdatedEmail(user, event, n.Message)
		case domain.CategoryTicketCheckin:
			return provider.TicketCheckinEmail(user, event, s.now())
		}
	}
	return provider.NotificationEmail(user, n.Title, n.Message, n.Action)
}

func (s *DispatchService) buildSMSMessage(n *domain.Notification, user *domain.User, event *domain.Event) provider.Message {
	if event != nil {
		switch n.Category {
		case domain.CategoryEventReminder:
			if event.StartsAt.Sub(s.now()) <= time.Hour {
				return provider.ImminentStartSMS(user, event)
			}
			return provider.EventReminderSMS(user, event)
		case domain.CategoryTicketConfirmation, domain.CategoryEventRegistered:
			return provider.TicketConfirmationSMS(user, event)
		}
	}
	return provider.NotificationSMS(user, n.Title, n.Message)
}

func (s *DispatchService) loadRelatedEvent(ctx context.Context, n *domain.Notification) *domain.Event {
	if n.RelatedEventID == nil || s.events == nil {
		return nil
	}

	event, err := s.events.GetByID(ctx, *n.RelatedEventID)
	if err != nil {
		// Template rendering falls back to the record's own content.
		s.logger.Warn("failed to load related event for rendering",
			zap.String("notificationId", n.ID),
			zap.String("eventId", *n.RelatedEventID),
			zap.Error(err),
		)
		return nil
	}
	return event
}

// MarkAsRead flips the read state for a record owned by the requesting user.
// A cross-user id looks identical to not found, and repeated calls are
// idempotent.
func (s *DispatchService) MarkAsRead(ctx context.Context, id string, userID string) (*domain.Notification, error) {
	notification, err := s.notifications.GetByIDForRecipient(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if notification.IsRead {
		return notification, nil
	}

	if err := s.notifications.MarkRead(ctx, id, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}

	return s.notifications.GetByIDForRecipient(ctx, id, userID)
}

func (s *DispatchService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return s.notifications.MarkAllRead(ctx, userID, s.now().UTC())
}

// DeleteNotification removes a record only when the requesting user owns it;
// an ownership mismatch deletes zero records.
func (s *DispatchService) DeleteNotification(ctx context.Context, id string, userID string) (int64, error) {
	if strings.TrimSpace(id) == "" {
		return 0, fmt.Errorf("%w: notification id is required", domain.ErrValidation)
	}
	return s.notifications.DeleteOwnedBy(ctx, id, userID)
}

func (s *DispatchService) ListForUser(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
	if strings.TrimSpace(params.RecipientID) == "" {
		return nil, 0, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return s.notifications.List(ctx, params)
}

func (s *DispatchService) CountUnread(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return s.notifications.CountUnread(ctx, userID)
}

// ProcessScheduled dispatches every pending record whose scheduledFor has
// passed. One record's failure is logged and skipped; the batch continues.
func (s *DispatchService) ProcessScheduled(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	due, err := s.notifications.GetDuePending(ctx, s.now().UTC(), defaultDueBatchLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch due notifications: %w", err)
	}

	for i := range due {
		if _, err := s.SendNotification(ctx, due[i].ID); err != nil {
			s.logger.Error("failed to dispatch scheduled notification",
				zap.String("notificationId", due[i].ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// CreateBulk creates one notification per recipient with shared content. A
// failing recipient (typically an unknown id) is logged and skipped rather
// than aborting the batch.
func (s *DispatchService) CreateBulk(ctx context.Context, recipientIDs []string, input CreateNotificationInput) ([]domain.Notification, error) {
	if len(recipientIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", domain.ErrValidation)
	}

	created := make([]domain.Notification, 0, len(recipientIDs))
	for _, recipientID := range recipientIDs {
		perRecipient := input
		perRecipient.RecipientID = recipientID

		notification, err := s.CreateNotification(ctx, perRecipient)
		if err != nil {
			s.logger.Warn("bulk create: skipping recipient",
				zap.String("recipientId", recipientID),
				zap.Error(err),
			)
			continue
		}
		created = append(created, *notification)
	}

	return created, nil
}
