package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the record-level lifecycle state of a notification,
// distinct from any single channel's delivery status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Category classifies what a notification is about.
type Category string

const (
	CategoryInfo               Category = "info"
	CategorySuccess            Category = "success"
	CategoryWarning            Category = "warning"
	CategoryError              Category = "error"
	CategoryEventReminder      Category = "event_reminder"
	CategoryEventUpdate        Category = "event_update"
	CategoryEventRegistered    Category = "event_registered"
	CategoryEventApproved      Category = "event_approved"
	CategoryEventRejected      Category = "event_rejected"
	CategoryEventUpdated       Category = "event_updated"
	CategoryEventCancelled     Category = "event_cancelled"
	CategoryTicketConfirmation Category = "ticket_confirmation"
	CategoryTicketCancelled    Category = "ticket_cancelled"
	CategoryTicketCheckin      Category = "ticket_checkin"
	CategorySystem             Category = "system"
	CategorySystemAnnouncement Category = "system_announcement"
)

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	switch c {
	case CategoryInfo, CategorySuccess, CategoryWarning, CategoryError,
		CategoryEventReminder, CategoryEventUpdate, CategoryEventRegistered,
		CategoryEventApproved, CategoryEventRejected, CategoryEventUpdated,
		CategoryEventCancelled, CategoryTicketConfirmation, CategoryTicketCancelled,
		CategoryTicketCheckin, CategorySystem, CategorySystemAnnouncement:
		return true
	}
	return false
}

func ParseCategoryFromString(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: invalid category %q", ErrValidation, s)
	}
	return c, nil
}

// Priority is informational only; it has no scheduling effect.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func ParsePriorityFromString(s string) (Priority, error) {
	pr := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !pr.IsValid() {
		return "", fmt.Errorf("%w: invalid priority %q", ErrValidation, s)
	}
	return pr, nil
}

// Channel identifies one delivery mechanism.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

// AllChannels lists every delivery channel in fan-out order.
func AllChannels() []Channel {
	return []Channel{ChannelInApp, ChannelEmail, ChannelSMS}
}

// Delivery status values recorded per channel.
const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// MaxSMSContent caps SMS body length in characters.
const MaxSMSContent = 160

// ChannelState holds the delivery sub-state of one channel on one record.
type ChannelState struct {
	Enabled        bool
	Sent           bool
	SentAt         *time.Time
	DeliveryStatus string
}

// ChannelSet is the fixed per-record channel state triple.
type ChannelSet struct {
	InApp ChannelState
	Email ChannelState
	SMS   ChannelState
}

// State returns the sub-state for a channel.
func (cs ChannelSet) State(ch Channel) ChannelState {
	switch ch {
	case ChannelInApp:
		return cs.InApp
	case ChannelEmail:
		return cs.Email
	case ChannelSMS:
		return cs.SMS
	}
	return ChannelState{}
}

// Enabled returns the channels selected for delivery, in fan-out order.
func (cs ChannelSet) Enabled() []Channel {
	var enabled []Channel
	for _, ch := range AllChannels() {
		if cs.State(ch).Enabled {
			enabled = append(enabled, ch)
		}
	}
	return enabled
}

// AllEnabledSent reports whether every enabled channel has been sent.
// A set with zero enabled channels satisfies this vacuously.
func (cs ChannelSet) AllEnabledSent() bool {
	for _, ch := range AllChannels() {
		state := cs.State(ch)
		if state.Enabled && !state.Sent {
			return false
		}
	}
	return true
}

// Action is an optional UI call-to-action; purely presentational.
type Action struct {
	Text string
	URL  string
	Type string
}

// Notification is one message instance destined for one recipient.
type Notification struct {
	ID              string
	RecipientID     string
	Title           string
	Message         string
	Category        Category
	Priority        Priority
	Status          Status
	IsRead          bool
	ReadAt          *time.Time
	Channels        ChannelSet
	RelatedEventID  *string
	RelatedTicketID *string
	Action          *Action
	ExpiresAt       *time.Time
	ScheduledFor    time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (n *Notification) Validate() error {
	if strings.TrimSpace(n.RecipientID) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(n.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if !n.Category.IsValid() {
		return fmt.Errorf("%w: invalid category %q", ErrValidation, n.Category)
	}
	if !n.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, n.Priority)
	}
	if !n.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, n.Status)
	}
	return nil
}

// DueAt reports whether the record is due for immediate dispatch at now.
func (n *Notification) DueAt(now time.Time) bool {
	return !n.ScheduledFor.After(now)
}
