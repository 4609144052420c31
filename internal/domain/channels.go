package domain

// ChannelRequest is the caller's channel hint on notification creation.
// Nil fields fall back to defaults: in-app on, email and SMS off.
type ChannelRequest struct {
	InApp *bool
	Email *bool
	SMS   *bool
}

func (r ChannelRequest) wantsInApp() bool {
	if r.InApp == nil {
		return true
	}
	return *r.InApp
}

func (r ChannelRequest) wantsEmail() bool {
	return r.Email != nil && *r.Email
}

func (r ChannelRequest) wantsSMS() bool {
	return r.SMS != nil && *r.SMS
}

// NotificationPreferences are the recipient-owned channel toggles. Email is
// tri-state: a nil value means the user never opted out.
type NotificationPreferences struct {
	Email *bool
	SMS   bool
}

func (p NotificationPreferences) emailAllowed() bool {
	if p.Email == nil {
		return true
	}
	return *p.Email
}

// DetermineChannels resolves the effective enabled-channel set for a new
// record by intersecting the caller's request with the recipient's stored
// preferences and capabilities:
//
//   - in-app is enabled unless the caller explicitly disabled it
//   - email requires the caller to ask for it and the recipient's email
//     preference to not be explicitly false
//   - SMS requires the caller to ask for it, the recipient's SMS preference,
//     and a phone number on file
func DetermineChannels(prefs NotificationPreferences, requested ChannelRequest, hasPhone bool) ChannelSet {
	return ChannelSet{
		InApp: ChannelState{Enabled: requested.wantsInApp()},
		Email: ChannelState{Enabled: requested.wantsEmail() && prefs.emailAllowed()},
		SMS:   ChannelState{Enabled: requested.wantsSMS() && prefs.SMS && hasPhone},
	}
}
