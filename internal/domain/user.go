package domain

import "time"

// User is the recipient entity. This service only consumes it: preference
// management and account lifecycle live in the main EventCraft backend.
type User struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	Preferences NotificationPreferences
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPhone reports whether the user can receive SMS at all.
func (u *User) HasPhone() bool {
	return u.Phone != ""
}
