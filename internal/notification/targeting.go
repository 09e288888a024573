package notification

import (
	"strconv"
	"strings"
	"time"
)

// VisibleAudiences returns the audiences a role may read. Unknown roles,
// including unauthenticated visitors, only see "all".
func VisibleAudiences(role string) []Audience {
	switch role {
	case RoleAdmin:
		return []Audience{AudienceAll, AudienceAdmin, AudienceMembers}
	case RoleMember:
		return []Audience{AudienceAll, AudienceMembers}
	default:
		return []Audience{AudienceAll}
	}
}

// RoleCanSee reports whether the role rule alone admits the audience.
func RoleCanSee(role string, audience Audience) bool {
	for _, a := range VisibleAudiences(role) {
		if a == audience {
			return true
		}
	}
	return false
}

// CanSee decides live-delivery visibility for one connection.
// Explicit recipients of a "specific" notification see it regardless of role.
func CanSee(n *Notification, userID, role string, now time.Time) bool {
	if n.ExpiresAt != nil && !n.ExpiresAt.After(now) {
		return false
	}
	if RoleCanSee(role, n.TargetAudience) {
		return true
	}
	if n.TargetAudience != AudienceSpecific || userID == "" {
		return false
	}
	for _, id := range n.SpecificUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// PushAllowed applies a user's push preferences. now should already be in
// the zone quiet hours are expressed in.
func PushAllowed(p Preferences, t Type, now time.Time) bool {
	if !p.PushEnabled {
		return false
	}
	if !typeEnabled(p, t) {
		return false
	}
	if p.QuietHoursEnabled && InQuietHours(p.QuietHoursStart, p.QuietHoursEnd, now) {
		return false
	}
	return true
}

func typeEnabled(p Preferences, t Type) bool {
	switch t {
	case TypeAnnouncement:
		return p.Announcements
	case TypeEvent:
		return p.Events
	case TypePrayerRequest:
		return p.PrayerRequests
	case TypeSystem, TypeAdmin:
		return p.SystemAlerts
	}
	return true
}

// InQuietHours evaluates a [start, end) window at minute resolution.
// start >= end wraps past midnight. Unparseable bounds never suppress.
func InQuietHours(start, end string, now time.Time) bool {
	s, ok := ParseClock(start)
	if !ok {
		return false
	}
	e, ok := ParseClock(end)
	if !ok {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	if s < e {
		return cur >= s && cur < e
	}
	return cur >= s || cur < e
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(v string) (int, bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(v), ":")
	if !found || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
