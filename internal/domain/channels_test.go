package domain

import "testing"

func boolPtr(v bool) *bool { return &v }

func TestDetermineChannelsDefaults(t *testing.T) {
	t.Parallel()

	cs := DetermineChannels(NotificationPreferences{}, ChannelRequest{}, false)

	if !cs.InApp.Enabled {
		t.Fatal("in-app should default on")
	}
	if cs.Email.Enabled {
		t.Fatal("email should default off when not requested")
	}
	if cs.SMS.Enabled {
		t.Fatal("sms should default off when not requested")
	}
}

func TestDetermineChannelsInAppOptOut(t *testing.T) {
	t.Parallel()

	cs := DetermineChannels(NotificationPreferences{}, ChannelRequest{InApp: boolPtr(false)}, false)
	if cs.InApp.Enabled {
		t.Fatal("an explicit false request disables in-app")
	}
}

func TestDetermineChannelsEmail(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		pref      *bool
		requested *bool
		want      bool
	}{
		{name: "requested with no stated preference", pref: nil, requested: boolPtr(true), want: true},
		{name: "requested and opted in", pref: boolPtr(true), requested: boolPtr(true), want: true},
		{name: "requested but opted out", pref: boolPtr(false), requested: boolPtr(true), want: false},
		{name: "opted in but not requested", pref: boolPtr(true), requested: nil, want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cs := DetermineChannels(
				NotificationPreferences{Email: tc.pref},
				ChannelRequest{Email: tc.requested},
				false,
			)
			if cs.Email.Enabled != tc.want {
				t.Fatalf("email enabled = %v, want %v", cs.Email.Enabled, tc.want)
			}
		})
	}
}

func TestDetermineChannelsSMS(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		optedIn   bool
		requested *bool
		hasPhone  bool
		want      bool
	}{
		{name: "all three conditions met", optedIn: true, requested: boolPtr(true), hasPhone: true, want: true},
		{name: "no phone", optedIn: true, requested: boolPtr(true), hasPhone: false, want: false},
		{name: "not opted in", optedIn: false, requested: boolPtr(true), hasPhone: true, want: false},
		{name: "not requested", optedIn: true, requested: nil, hasPhone: true, want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cs := DetermineChannels(
				NotificationPreferences{SMS: tc.optedIn},
				ChannelRequest{SMS: tc.requested},
				tc.hasPhone,
			)
			if cs.SMS.Enabled != tc.want {
				t.Fatalf("sms enabled = %v, want %v", cs.SMS.Enabled, tc.want)
			}
		})
	}
}

func TestDetermineChannelsStartUnsent(t *testing.T) {
	t.Parallel()

	cs := DetermineChannels(
		NotificationPreferences{SMS: true},
		ChannelRequest{InApp: boolPtr(true), Email: boolPtr(true), SMS: boolPtr(true)},
		true,
	)

	for _, ch := range AllChannels() {
		state := cs.State(ch)
		if state.Sent || state.SentAt != nil || state.DeliveryStatus != "" {
			t.Fatalf("channel %s should start with a clean delivery sub-state", ch)
		}
	}
}
