package domain

import "time"

// EventStatus is the moderation state of an event. Only published events are
// eligible for reminder fan-out.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPending   EventStatus = "pending"
	EventStatusPublished EventStatus = "published"
	EventStatusRejected  EventStatus = "rejected"
	EventStatusCancelled EventStatus = "cancelled"
)

func (s EventStatus) String() string { return string(s) }

// Event is the ticketed happening notifications refer to. Event CRUD is owned
// by the main backend; the scheduler reads start times and flips the
// hour-reminder flag.
type Event struct {
	ID               string
	Title            string
	Venue            string
	StartsAt         time.Time
	Status           EventStatus
	HourReminderSent bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusCheckedIn TicketStatus = "checked_in"
)

// Ticket links an attendee to an event. Attendee resolution for reminders
// goes through active tickets.
type Ticket struct {
	ID        string
	EventID   string
	UserID    string
	Status    TicketStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
