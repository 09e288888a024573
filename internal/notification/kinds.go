package notification

import (
	"fmt"
	"time"
)

// Constructors for the notifications raised by the rest of the application.
// Each fixes type, audience and action link for its kind.

func NewPrayerRequest(requestID, authorName string, isPublic bool) CreateInput {
	audience := AudienceAdmin
	if isPublic {
		audience = AudienceMembers
	}
	return CreateInput{
		Title:          "New prayer request",
		Message:        fmt.Sprintf("%s shared a prayer request.", displayName(authorName)),
		Type:           TypePrayerRequest,
		Priority:       PriorityMedium,
		TargetAudience: audience,
		ActionURL:      "/prayer-requests/" + requestID,
		Metadata:       map[string]interface{}{"prayer_request_id": requestID, "public": isPublic},
	}
}

func PrayerRequestAnswered(requestID, requesterID string) CreateInput {
	return CreateInput{
		Title:           "Your prayer request was answered",
		Message:         "Someone from the prayer team has responded to your request.",
		Type:            TypePrayerRequest,
		Priority:        PriorityHigh,
		TargetAudience:  AudienceSpecific,
		SpecificUserIDs: []string{requesterID},
		ActionURL:       "/prayer-requests/" + requestID,
		Metadata:        map[string]interface{}{"prayer_request_id": requestID},
	}
}

func NewAnnouncement(announcementID, title, summary string, priority Priority) CreateInput {
	return CreateInput{
		Title:          title,
		Message:        summary,
		Type:           TypeAnnouncement,
		Priority:       priority,
		TargetAudience: AudienceAll,
		ActionURL:      "/announcements/" + announcementID,
		Metadata:       map[string]interface{}{"announcement_id": announcementID},
	}
}

// NewEvent expires the notification once the event has started.
func NewEvent(eventID, title string, startsAt time.Time) CreateInput {
	expires := startsAt
	return CreateInput{
		Title:          "Upcoming event: " + title,
		Message:        fmt.Sprintf("%s on %s.", title, startsAt.Format("Mon, Jan 2 at 3:04 PM")),
		Type:           TypeEvent,
		Priority:       PriorityMedium,
		TargetAudience: AudienceAll,
		ActionURL:      "/events/" + eventID,
		ExpiresAt:      &expires,
		Metadata:       map[string]interface{}{"event_id": eventID},
	}
}

func EventRegistration(eventID, eventTitle, attendeeName string) CreateInput {
	return CreateInput{
		Title:          "New event registration",
		Message:        fmt.Sprintf("%s registered for %s.", displayName(attendeeName), eventTitle),
		Type:           TypeEvent,
		Priority:       PriorityLow,
		TargetAudience: AudienceAdmin,
		ActionURL:      "/admin/events/" + eventID,
		Metadata:       map[string]interface{}{"event_id": eventID},
	}
}

// EventCancelled targets registrants when known, otherwise all members.
func EventCancelled(eventID, title string, registrantIDs []string) CreateInput {
	in := CreateInput{
		Title:          "Event cancelled: " + title,
		Message:        fmt.Sprintf("%s has been cancelled.", title),
		Type:           TypeEvent,
		Priority:       PriorityHigh,
		TargetAudience: AudienceMembers,
		ActionURL:      "/events/" + eventID,
		Metadata:       map[string]interface{}{"event_id": eventID},
	}
	if len(registrantIDs) > 0 {
		in.TargetAudience = AudienceSpecific
		in.SpecificUserIDs = registrantIDs
	}
	return in
}

func UserStatusChanged(userID, fullName, status string) CreateInput {
	return CreateInput{
		Title:           "Account status updated",
		Message:         fmt.Sprintf("Hi %s, your account is now %s.", displayName(fullName), status),
		Type:            TypeSystem,
		Priority:        PriorityHigh,
		TargetAudience:  AudienceSpecific,
		SpecificUserIDs: []string{userID},
		ActionURL:       "/account",
		Metadata:        map[string]interface{}{"status": status},
	}
}

func NewMemberJoined(userID, fullName string) CreateInput {
	return CreateInput{
		Title:          "New member joined",
		Message:        fmt.Sprintf("%s created an account and is awaiting approval.", displayName(fullName)),
		Type:           TypeAdmin,
		Priority:       PriorityMedium,
		TargetAudience: AudienceAdmin,
		ActionURL:      "/admin/users/" + userID,
		Metadata:       map[string]interface{}{"user_id": userID},
	}
}

func SystemAlert(title, message string, priority Priority) CreateInput {
	return CreateInput{
		Title:          title,
		Message:        message,
		Type:           TypeSystem,
		Priority:       priority,
		TargetAudience: AudienceAll,
	}
}

func NewBlogPost(postID, title string) CreateInput {
	return CreateInput{
		Title:          "New blog post",
		Message:        title,
		Type:           TypeAnnouncement,
		Priority:       PriorityLow,
		TargetAudience: AudienceAll,
		ActionURL:      "/blog/" + postID,
		Metadata:       map[string]interface{}{"post_id": postID},
	}
}

// DonationReceived keeps the amount out of the visible text.
func DonationReceived(donationID, donorName, amount string) CreateInput {
	return CreateInput{
		Title:          "Donation received",
		Message:        fmt.Sprintf("A donation was received from %s.", displayName(donorName)),
		Type:           TypeAdmin,
		Priority:       PriorityLow,
		TargetAudience: AudienceAdmin,
		ActionURL:      "/admin/donations/" + donationID,
		Metadata:       map[string]interface{}{"donation_id": donationID, "amount": amount},
	}
}

func displayName(name string) string {
	if name == "" {
		return "Someone"
	}
	return name
}
