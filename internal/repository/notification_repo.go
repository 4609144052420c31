package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
	"gorm.io/gorm"
)

// ListParams filters a recipient's notification feed. Nil filters are omitted
// from the query.
type ListParams struct {
	RecipientID string
	Category    *domain.Category
	IsRead      *bool
	Priority    *domain.Priority
	Page        int
	PageSize    int
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	GetByIDForRecipient(ctx context.Context, id string, recipientID string) (*domain.Notification, error)
	List(ctx context.Context, params ListParams) ([]domain.Notification, int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
	MarkChannelSent(ctx context.Context, id string, channel domain.Channel, at time.Time) error
	SetChannelDeliveryStatus(ctx context.Context, id string, channel domain.Channel, status string) error
	PromoteToSentIfComplete(ctx context.Context, id string) (bool, error)
	DeleteOwnedBy(ctx context.Context, id string, recipientID string) (int64, error)
	GetDuePending(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type GormNotificationRepo struct {
	db *gorm.DB
}

func NewGormNotificationRepo(db *gorm.DB) *GormNotificationRepo {
	return &GormNotificationRepo{db: db}
}

func (r *GormNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	model := notificationModelFromDomain(n)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if n != nil {
		*n = *notificationModelToDomain(model)
	}
	return nil
}

func (r *GormNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	var model NotificationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return notificationModelToDomain(&model), nil
}

// GetByIDForRecipient scopes the lookup by owner inside the query, so a
// cross-user id reads as not found.
func (r *GormNotificationRepo) GetByIDForRecipient(ctx context.Context, id string, recipientID string) (*domain.Notification, error) {
	var model NotificationModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return notificationModelToDomain(&model), nil
}

func (r *GormNotificationRepo) List(ctx context.Context, params ListParams) ([]domain.Notification, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("recipient_id = ?", params.RecipientID)

	if params.Category != nil {
		query = query.Where("category = ?", *params.Category)
	}
	if params.IsRead != nil {
		query = query.Where("is_read = ?", *params.IsRead)
	}
	if params.Priority != nil {
		query = query.Where("priority = ?", *params.Priority)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	pageSize = min(pageSize, 100)

	var models []NotificationModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *notificationModelToDomain(&models[i]))
	}

	return notifications, total, nil
}

func (r *GormNotificationRepo) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("recipient_id = ? AND is_read = false AND status IN ?",
			recipientID,
			[]domain.Status{domain.StatusPending, domain.StatusSent, domain.StatusDelivered}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead flips the read flag exactly once; a second call matches zero rows
// and leaves readAt untouched.
func (r *GormNotificationRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND is_read = false", id).
		Updates(map[string]any{
			"is_read": true,
			"read_at": at,
			"status":  domain.StatusRead,
		})
	return result.Error
}

func (r *GormNotificationRepo) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("recipient_id = ? AND is_read = false", recipientID).
		Updates(map[string]any{
			"is_read": true,
			"read_at": at,
			"status":  domain.StatusRead,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkChannelSent is a targeted column update so concurrent sends for the
// same record never clobber each other's channel state.
func (r *GormNotificationRepo) MarkChannelSent(ctx context.Context, id string, channel domain.Channel, at time.Time) error {
	prefix, err := channelColumnPrefix(channel)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			prefix + "_sent":            true,
			prefix + "_sent_at":         at,
			prefix + "_delivery_status": domain.DeliveryDelivered,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormNotificationRepo) SetChannelDeliveryStatus(ctx context.Context, id string, channel domain.Channel, status string) error {
	prefix, err := channelColumnPrefix(channel)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ?", id).
		Update(prefix+"_delivery_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PromoteToSentIfComplete flips status to sent iff the record is still
// pending and every enabled channel has been sent. The check runs inside the
// UPDATE predicate, so racing channel updates cannot promote twice or revert
// a later state.
func (r *GormNotificationRepo) PromoteToSentIfComplete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Where("(in_app_enabled = false OR in_app_sent = true)").
		Where("(email_enabled = false OR email_sent = true)").
		Where("(sms_enabled = false OR sms_sent = true)").
		Update("status", domain.StatusSent)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormNotificationRepo) DeleteOwnedBy(ctx context.Context, id string, recipientID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Delete(&NotificationModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// duePendingWork matches records the scanner can still act on: at least one
// enabled channel that is unsent and not terminally failed, or a complete set
// awaiting status promotion (which includes the zero-enabled vacuous case).
// A record whose only unsent channels have failed matches neither arm and is
// never re-picked, so failed channels stay failed instead of retrying forever.
const duePendingWork = "(in_app_enabled = true AND in_app_sent = false AND COALESCE(in_app_delivery_status, '') <> ?)" +
	" OR (email_enabled = true AND email_sent = false AND COALESCE(email_delivery_status, '') <> ?)" +
	" OR (sms_enabled = true AND sms_sent = false AND COALESCE(sms_delivery_status, '') <> ?)" +
	" OR ((in_app_enabled = false OR in_app_sent = true)" +
	" AND (email_enabled = false OR email_sent = true)" +
	" AND (sms_enabled = false OR sms_sent = true))"

func (r *GormNotificationRepo) GetDuePending(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	var models []NotificationModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", domain.StatusPending, now).
		Where(duePendingWork, domain.DeliveryFailed, domain.DeliveryFailed, domain.DeliveryFailed).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *notificationModelToDomain(&models[i]))
	}

	return notifications, nil
}

// DeleteExpired sweeps records whose expiresAt has passed. Postgres has no
// document TTL, so a periodic sweep stands in for store-level expiry.
func (r *GormNotificationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&NotificationModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func channelColumnPrefix(channel domain.Channel) (string, error) {
	switch channel {
	case domain.ChannelInApp:
		return "in_app", nil
	case domain.ChannelEmail:
		return "email", nil
	case domain.ChannelSMS:
		return "sms", nil
	}
	return "", fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, channel)
}
