// Package notify renders the canned notification messages the platform sends
// over WhatsApp. Rendering is pure; delivery goes through the queue.
package notify

import "fmt"

// Event carries the fields interpolated into invite and reminder messages.
// Empty optional fields fall back to placeholder wording.
type Event struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	RSVPLink string `json:"rsvpLink"`
}

func orElse(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func EventInvite(ev Event) string {
	return fmt.Sprintf("🎉 *Event Invitation*\n\n"+
		"You're invited to: *%s*\n\n"+
		"📅 Date: %s\n"+
		"⏰ Time: %s\n"+
		"📍 Location: %s\n\n"+
		"RSVP here: %s",
		ev.Title,
		ev.Date,
		orElse(ev.Time, "TBA"),
		orElse(ev.Location, "TBA"),
		orElse(ev.RSVPLink, "Contact organizer"),
	)
}

func MagicLink(link, userName string) string {
	return fmt.Sprintf("👋 Hi %s!\n\n"+
		"Click this link to access your Delta Events account:\n\n"+
		"🔗 %s\n\n"+
		"This link expires in 15 minutes.",
		orElse(userName, "there"),
		link,
	)
}

func EventReminder(ev Event) string {
	return fmt.Sprintf("⏰ *Event Reminder*\n\n"+
		"Don't forget: *%s*\n\n"+
		"📅 %s at %s\n"+
		"📍 %s\n\n"+
		"See you there!",
		ev.Title,
		ev.Date,
		ev.Time,
		ev.Location,
	)
}
