package notification

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestRoleCanSee(t *testing.T) {
	tests := []struct {
		role     string
		audience Audience
		want     bool
	}{
		{RoleAdmin, AudienceAll, true},
		{RoleAdmin, AudienceAdmin, true},
		{RoleAdmin, AudienceMembers, true},
		{RoleAdmin, AudienceSpecific, false},
		{RoleMember, AudienceAll, true},
		{RoleMember, AudienceMembers, true},
		{RoleMember, AudienceAdmin, false},
		{RoleVisitor, AudienceAll, true},
		{RoleVisitor, AudienceMembers, false},
		{"", AudienceAll, true},
		{"deacon", AudienceMembers, false},
	}
	for _, tt := range tests {
		if got := RoleCanSee(tt.role, tt.audience); got != tt.want {
			t.Errorf("RoleCanSee(%q, %q) = %v, want %v", tt.role, tt.audience, got, tt.want)
		}
	}
}

func TestCanSee(t *testing.T) {
	now := at(12, 0)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	specific := &Notification{TargetAudience: AudienceSpecific, SpecificUserIDs: []string{"user-a"}}

	tests := []struct {
		name   string
		n      *Notification
		userID string
		role   string
		want   bool
	}{
		{"specific recipient", specific, "user-a", RoleMember, true},
		{"specific non-recipient", specific, "user-b", RoleMember, false},
		{"specific admin non-recipient", specific, "user-b", RoleAdmin, false},
		{"specific visitor", specific, "", RoleVisitor, false},
		{"members for member", &Notification{TargetAudience: AudienceMembers}, "u", RoleMember, true},
		{"admin for member", &Notification{TargetAudience: AudienceAdmin}, "u", RoleMember, false},
		{"expired", &Notification{TargetAudience: AudienceAll, ExpiresAt: &past}, "u", RoleAdmin, false},
		{"expires exactly now", &Notification{TargetAudience: AudienceAll, ExpiresAt: &now}, "u", RoleAdmin, false},
		{"not yet expired", &Notification{TargetAudience: AudienceAll, ExpiresAt: &future}, "", RoleVisitor, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanSee(tt.n, tt.userID, tt.role, now); got != tt.want {
				t.Errorf("CanSee() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPushAllowed(t *testing.T) {
	quiet := func(start, end string) Preferences {
		p := DefaultPreferences("u")
		p.QuietHoursEnabled = true
		p.QuietHoursStart = start
		p.QuietHoursEnd = end
		return p
	}
	disabled := DefaultPreferences("u")
	disabled.PushEnabled = false
	noEvents := DefaultPreferences("u")
	noEvents.Events = false
	noSystem := DefaultPreferences("u")
	noSystem.SystemAlerts = false

	tests := []struct {
		name string
		p    Preferences
		typ  Type
		now  time.Time
		want bool
	}{
		{"defaults", DefaultPreferences("u"), TypeAnnouncement, at(3, 0), true},
		{"push disabled", disabled, TypeAnnouncement, at(12, 0), false},
		{"type disabled", noEvents, TypeEvent, at(12, 0), false},
		{"other type still enabled", noEvents, TypeAnnouncement, at(12, 0), true},
		{"admin covered by system alerts", noSystem, TypeAdmin, at(12, 0), false},
		{"wraparound late night", quiet("22:00", "07:00"), TypeEvent, at(23, 30), false},
		{"wraparound early morning", quiet("22:00", "07:00"), TypeEvent, at(6, 59), false},
		{"wraparound end exclusive", quiet("22:00", "07:00"), TypeEvent, at(7, 0), true},
		{"wraparound midday", quiet("22:00", "07:00"), TypeEvent, at(12, 0), true},
		{"same day inside", quiet("09:00", "17:00"), TypeEvent, at(12, 0), false},
		{"same day start inclusive", quiet("09:00", "17:00"), TypeEvent, at(9, 0), false},
		{"same day outside", quiet("09:00", "17:00"), TypeEvent, at(20, 0), true},
		{"unparseable bound", quiet("late", "07:00"), TypeEvent, at(23, 30), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PushAllowed(tt.p, tt.typ, tt.now); got != tt.want {
				t.Errorf("PushAllowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuietHoursDisabledIgnoresWindow(t *testing.T) {
	p := DefaultPreferences("u")
	p.QuietHoursStart = "00:00"
	p.QuietHoursEnd = "23:59"
	if !PushAllowed(p, TypeSystem, at(12, 0)) {
		t.Error("quiet hours applied while disabled")
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"7:05", 425, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"1200", 0, false},
		{"", 0, false},
		{"ab:cd", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseClock(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseClock(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
