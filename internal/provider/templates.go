package provider

import (
	"fmt"
	"html"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
)

// Canned template builders. Each formats a domain object into the payload a
// channel expects: wrapped HTML for email, capped plain text for SMS.

const eventTimeLayout = "Mon, 2 Jan 2006 at 15:04 MST"

// NotificationEmail renders a record's own title and message; the fallback
// when no richer template matches the category.
func NotificationEmail(user *domain.User, title string, message string, action *domain.Action) Message {
	paragraphs := []string{
		fmt.Sprintf("Hi %s,", user.Name),
		html.EscapeString(message),
	}
	if action != nil && action.URL != "" {
		text := action.Text
		if text == "" {
			text = "View details"
		}
		paragraphs = append(paragraphs, fmt.Sprintf(`<a href="%s" style="color:#4f46e5">%s</a>`,
			action.URL, html.EscapeString(text)))
	}
	return Message{
		To:      user.Email,
		Subject: title,
		Body:    emailBody(paragraphs...),
	}
}

// NotificationSMS renders a record's own content as capped plain text.
func NotificationSMS(user *domain.User, title string, message string) Message {
	return Message{
		To:   user.Phone,
		Body: TruncateSMS(fmt.Sprintf("EventCraft: %s. %s", title, message)),
	}
}

func TicketConfirmationEmail(user *domain.User, event *domain.Event) Message {
	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your ticket for %s", event.Title),
		Body: emailBody(
			fmt.Sprintf("Hi %s,", user.Name),
			fmt.Sprintf("Your registration for <strong>%s</strong> is confirmed.", html.EscapeString(event.Title)),
			eventDetailsHTML(event),
			"Show this email at the entrance or present your ticket from the app.",
		),
	}
}

func EventApprovedEmail(user *domain.User, event *domain.Event) Message {
	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("%s has been approved", event.Title),
		Body: emailBody(
			fmt.Sprintf("Hi %s,", user.Name),
			fmt.Sprintf("Good news: your event <strong>%s</strong> was approved and is now published.", html.EscapeString(event.Title)),
			eventDetailsHTML(event),
		),
	}
}

func EventRejectedEmail(user *domain.User, event *domain.Event, reason string) Message {
	paragraphs := []string{
		fmt.Sprintf("Hi %s,", user.Name),
		fmt.Sprintf("Unfortunately your event <strong>%s</strong> was not approved.", html.EscapeString(event.Title)),
	}
	if reason != "" {
		paragraphs = append(paragraphs, fmt.Sprintf("Reason: %s", html.EscapeString(reason)))
	}
	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("%s was not approved", event.Title),
		Body:    emailBody(paragraphs...),
	}
}

func EventCancelledEmail(user *domain.User, event *domain.Event) Message {
	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("%s has been cancelled", event.Title),
		Body: emailBody(
			fmt.Sprintf("Hi %s,", user.Name),
			fmt.Sprintf("<strong>%s</strong>, originally scheduled for %s, has been cancelled.",
				html.EscapeString(event.Title), event.StartsAt.Format(eventTimeLayout)),
			"If you purchased a ticket, your refund will be processed automatically.",
		),
	}
}

func EventUpdatedEmail(user *domain.User, event *domain.Event, changes string) Message {
	paragraphs := []string{
		fmt.Sprintf("Hi %s,", user.Name),
		fmt.Sprintf("Details for <strong>%s</strong> have changed.", html.EscapeString(event.Title)),
	}
	if changes != "" {
		paragraphs = append(paragraphs, html.EscapeString(changes))
	}
	paragraphs = append(paragraphs, eventDetailsHTML(event))
	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Update: %s", event.Title),
		Body:    emailBody(paragraphs...),
	}
}

func EventReminderEmail(user *domain.User, event *domain.Event) Message {
	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Reminder: %s is tomorrow", event.Title),
		Body: emailBody(
			fmt.Sprintf("Hi %s,", user.Name),
			fmt.Sprintf("<strong>%s</strong> starts on %s.",
				html.EscapeString(event.Title), event.StartsAt.Format(eventTimeLayout)),
			eventDetailsHTML(event),
			"See you there!",
		),
	}
}

func TicketCheckinEmail(user *domain.User, event *domain.Event, at time.Time) Message {
	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Checked in: %s", event.Title),
		Body: emailBody(
			fmt.Sprintf("Hi %s,", user.Name),
			fmt.Sprintf("You checked in to <strong>%s</strong> at %s. Enjoy the event!",
				html.EscapeString(event.Title), at.Format("15:04")),
		),
	}
}

func EventReminderSMS(user *domain.User, event *domain.Event) Message {
	return Message{
		To: user.Phone,
		Body: TruncateSMS(fmt.Sprintf("EventCraft reminder: %s starts %s at %s.",
			event.Title, event.StartsAt.Format("Mon 15:04"), event.Venue)),
	}
}

func ImminentStartSMS(user *domain.User, event *domain.Event) Message {
	return Message{
		To: user.Phone,
		Body: TruncateSMS(fmt.Sprintf("EventCraft: %s starts at %s (%s). Doors are open!",
			event.Title, event.StartsAt.Format("15:04"), event.Venue)),
	}
}

func TicketConfirmationSMS(user *domain.User, event *domain.Event) Message {
	return Message{
		To: user.Phone,
		Body: TruncateSMS(fmt.Sprintf("EventCraft: ticket confirmed for %s on %s.",
			event.Title, event.StartsAt.Format("2 Jan 15:04"))),
	}
}

func eventDetailsHTML(event *domain.Event) string {
	return fmt.Sprintf("When: %s<br>Where: %s",
		event.StartsAt.Format(eventTimeLayout), html.EscapeString(event.Venue))
}

func emailBody(paragraphs ...string) string {
	body := `<div style="font-family:sans-serif;max-width:600px;margin:0 auto">`
	body += `<h2 style="color:#4f46e5">EventCraft</h2>`
	for _, p := range paragraphs {
		body += "<p>" + p + "</p>"
	}
	body += `<p style="color:#6b7280;font-size:12px">You are receiving this because of your EventCraft notification settings.</p>`
	body += `</div>`
	return body
}
