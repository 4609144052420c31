package repository

import (
	"time"

	"github.com/eventcraft/notifications/internal/domain"
)

// NotificationModel is the persistence model for the notifications table.
// Channel sub-state is flattened into per-channel columns so channel updates
// stay targeted single-column writes instead of document rewrites.
type NotificationModel struct {
	ID          string          `gorm:"type:uuid;primaryKey"`
	RecipientID string          `gorm:"type:uuid;not null;index"`
	Title       string          `gorm:"type:varchar(255);not null"`
	Message     string          `gorm:"type:text;not null"`
	Category    domain.Category `gorm:"type:varchar(30);not null"`
	Priority    domain.Priority `gorm:"type:varchar(10);not null"`
	Status      domain.Status   `gorm:"type:varchar(20);not null"`

	IsRead bool `gorm:"not null;default:false"`
	ReadAt *time.Time

	InAppEnabled        bool `gorm:"not null;default:true"`
	InAppSent           bool `gorm:"not null;default:false"`
	InAppSentAt         *time.Time
	InAppDeliveryStatus *string `gorm:"type:varchar(20)"`

	EmailEnabled        bool `gorm:"not null;default:false"`
	EmailSent           bool `gorm:"not null;default:false"`
	EmailSentAt         *time.Time
	EmailDeliveryStatus *string `gorm:"type:varchar(20)"`

	SMSEnabled        bool       `gorm:"column:sms_enabled;not null;default:false"`
	SMSSent           bool       `gorm:"column:sms_sent;not null;default:false"`
	SMSSentAt         *time.Time `gorm:"column:sms_sent_at"`
	SMSDeliveryStatus *string    `gorm:"column:sms_delivery_status;type:varchar(20)"`

	RelatedEventID  *string `gorm:"type:uuid"`
	RelatedTicketID *string `gorm:"type:uuid"`

	ActionText *string `gorm:"type:varchar(100)"`
	ActionURL  *string `gorm:"type:varchar(500)"`
	ActionType *string `gorm:"type:varchar(30)"`

	ExpiresAt    *time.Time
	ScheduledFor time.Time `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// UserModel is the persistence model for users. Only the fields this service
// reads are mapped; the main backend owns the rest of the row.
type UserModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"type:varchar(255);not null"`
	Email     string `gorm:"type:varchar(255);not null"`
	Phone     string `gorm:"type:varchar(32);not null;default:''"`
	PrefEmail *bool  `gorm:"column:pref_email"`
	PrefSMS   bool   `gorm:"column:pref_sms;not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserModel) TableName() string {
	return "users"
}

// EventModel is the persistence model for events.
type EventModel struct {
	ID               string             `gorm:"type:uuid;primaryKey"`
	Title            string             `gorm:"type:varchar(255);not null"`
	Venue            string             `gorm:"type:varchar(255);not null;default:''"`
	StartsAt         time.Time          `gorm:"type:timestamptz;not null"`
	Status           domain.EventStatus `gorm:"type:varchar(20);not null"`
	HourReminderSent bool               `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (EventModel) TableName() string {
	return "events"
}

// TicketModel is the persistence model for tickets.
type TicketModel struct {
	ID        string              `gorm:"type:uuid;primaryKey"`
	EventID   string              `gorm:"type:uuid;not null;index"`
	UserID    string              `gorm:"type:uuid;not null;index"`
	Status    domain.TicketStatus `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TicketModel) TableName() string {
	return "tickets"
}

func notificationModelFromDomain(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}

	m := &NotificationModel{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Title:       n.Title,
		Message:     n.Message,
		Category:    n.Category,
		Priority:    n.Priority,
		Status:      n.Status,

		IsRead: n.IsRead,
		ReadAt: n.ReadAt,

		InAppEnabled:        n.Channels.InApp.Enabled,
		InAppSent:           n.Channels.InApp.Sent,
		InAppSentAt:         n.Channels.InApp.SentAt,
		InAppDeliveryStatus: optionalString(n.Channels.InApp.DeliveryStatus),

		EmailEnabled:        n.Channels.Email.Enabled,
		EmailSent:           n.Channels.Email.Sent,
		EmailSentAt:         n.Channels.Email.SentAt,
		EmailDeliveryStatus: optionalString(n.Channels.Email.DeliveryStatus),

		SMSEnabled:        n.Channels.SMS.Enabled,
		SMSSent:           n.Channels.SMS.Sent,
		SMSSentAt:         n.Channels.SMS.SentAt,
		SMSDeliveryStatus: optionalString(n.Channels.SMS.DeliveryStatus),

		RelatedEventID:  n.RelatedEventID,
		RelatedTicketID: n.RelatedTicketID,

		ExpiresAt:    n.ExpiresAt,
		ScheduledFor: n.ScheduledFor,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}

	if n.Action != nil {
		m.ActionText = optionalString(n.Action.Text)
		m.ActionURL = optionalString(n.Action.URL)
		m.ActionType = optionalString(n.Action.Type)
	}

	return m
}

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}

	n := &domain.Notification{
		ID:          m.ID,
		RecipientID: m.RecipientID,
		Title:       m.Title,
		Message:     m.Message,
		Category:    m.Category,
		Priority:    m.Priority,
		Status:      m.Status,

		IsRead: m.IsRead,
		ReadAt: m.ReadAt,

		Channels: domain.ChannelSet{
			InApp: domain.ChannelState{
				Enabled:        m.InAppEnabled,
				Sent:           m.InAppSent,
				SentAt:         m.InAppSentAt,
				DeliveryStatus: stringValue(m.InAppDeliveryStatus),
			},
			Email: domain.ChannelState{
				Enabled:        m.EmailEnabled,
				Sent:           m.EmailSent,
				SentAt:         m.EmailSentAt,
				DeliveryStatus: stringValue(m.EmailDeliveryStatus),
			},
			SMS: domain.ChannelState{
				Enabled:        m.SMSEnabled,
				Sent:           m.SMSSent,
				SentAt:         m.SMSSentAt,
				DeliveryStatus: stringValue(m.SMSDeliveryStatus),
			},
		},

		RelatedEventID:  m.RelatedEventID,
		RelatedTicketID: m.RelatedTicketID,

		ExpiresAt:    m.ExpiresAt,
		ScheduledFor: m.ScheduledFor,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}

	if m.ActionText != nil || m.ActionURL != nil || m.ActionType != nil {
		n.Action = &domain.Action{
			Text: stringValue(m.ActionText),
			URL:  stringValue(m.ActionURL),
			Type: stringValue(m.ActionType),
		}
	}

	return n
}

func userModelToDomain(m *UserModel) *domain.User {
	if m == nil {
		return nil
	}

	return &domain.User{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
		Phone: m.Phone,
		Preferences: domain.NotificationPreferences{
			Email: m.PrefEmail,
			SMS:   m.PrefSMS,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func eventModelToDomain(m *EventModel) *domain.Event {
	if m == nil {
		return nil
	}

	return &domain.Event{
		ID:               m.ID,
		Title:            m.Title,
		Venue:            m.Venue,
		StartsAt:         m.StartsAt,
		Status:           m.Status,
		HourReminderSent: m.HourReminderSent,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
