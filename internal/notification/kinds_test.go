package notification

import (
	"strings"
	"testing"
	"time"
)

func TestKindsAreValid(t *testing.T) {
	starts := time.Date(2025, 4, 20, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name     string
		in       CreateInput
		typ      Type
		audience Audience
		action   string
	}{
		{"public prayer", NewPrayerRequest("p1", "Ruth", true), TypePrayerRequest, AudienceMembers, "/prayer-requests/p1"},
		{"private prayer", NewPrayerRequest("p2", "", false), TypePrayerRequest, AudienceAdmin, "/prayer-requests/p2"},
		{"prayer answered", PrayerRequestAnswered("p1", "u1"), TypePrayerRequest, AudienceSpecific, "/prayer-requests/p1"},
		{"announcement", NewAnnouncement("a1", "Potluck", "Bring a dish", PriorityHigh), TypeAnnouncement, AudienceAll, "/announcements/a1"},
		{"event", NewEvent("e1", "Choir practice", starts), TypeEvent, AudienceAll, "/events/e1"},
		{"registration", EventRegistration("e1", "Choir practice", "Naomi"), TypeEvent, AudienceAdmin, "/admin/events/e1"},
		{"cancelled broadcast", EventCancelled("e1", "Choir practice", nil), TypeEvent, AudienceMembers, "/events/e1"},
		{"cancelled registrants", EventCancelled("e1", "Choir practice", []string{"u1", "u2"}), TypeEvent, AudienceSpecific, "/events/e1"},
		{"status", UserStatusChanged("u1", "Boaz", "active"), TypeSystem, AudienceSpecific, "/account"},
		{"member joined", NewMemberJoined("u9", "Esther"), TypeAdmin, AudienceAdmin, "/admin/users/u9"},
		{"system alert", SystemAlert("Maintenance", "Tonight", PriorityUrgent), TypeSystem, AudienceAll, ""},
		{"blog", NewBlogPost("b1", "Sermon notes"), TypeAnnouncement, AudienceAll, "/blog/b1"},
		{"donation", DonationReceived("d1", "Lydia", "50.00"), TypeAdmin, AudienceAdmin, "/admin/donations/d1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			norm, err := tt.in.normalize()
			if err != nil {
				t.Fatalf("normalize() error = %v", err)
			}
			if norm.Type != tt.typ {
				t.Errorf("Type = %q, want %q", norm.Type, tt.typ)
			}
			if norm.TargetAudience != tt.audience {
				t.Errorf("TargetAudience = %q, want %q", norm.TargetAudience, tt.audience)
			}
			if norm.ActionURL != tt.action {
				t.Errorf("ActionURL = %q, want %q", norm.ActionURL, tt.action)
			}
		})
	}
}

func TestNewEventExpiresAtStart(t *testing.T) {
	starts := time.Date(2025, 4, 20, 10, 30, 0, 0, time.UTC)
	in := NewEvent("e1", "Picnic", starts)
	if in.ExpiresAt == nil || !in.ExpiresAt.Equal(starts) {
		t.Errorf("ExpiresAt = %v, want %v", in.ExpiresAt, starts)
	}
}

func TestDonationAmountOnlyInMetadata(t *testing.T) {
	in := DonationReceived("d1", "Lydia", "250.00")
	if strings.Contains(in.Message, "250") || strings.Contains(in.Title, "250") {
		t.Error("amount leaked into visible text")
	}
	if in.Metadata["amount"] != "250.00" {
		t.Errorf("metadata amount = %v", in.Metadata["amount"])
	}
}
