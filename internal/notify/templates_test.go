package notify

import (
	"strings"
	"testing"
)

func TestEventInviteFallbacks(t *testing.T) {
	msg := EventInvite(Event{Title: "Launch Party", Date: "2026-09-01"})
	for _, want := range []string{"*Launch Party*", "Time: TBA", "Location: TBA", "Contact organizer"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected invite to contain %q, got:\n%s", want, msg)
		}
	}
}

func TestMagicLink(t *testing.T) {
	msg := MagicLink("https://example.com/magic", "")
	if !strings.Contains(msg, "Hi there!") {
		t.Errorf("Expected fallback greeting, got:\n%s", msg)
	}
	if !strings.Contains(msg, "https://example.com/magic") {
		t.Error("Expected link to be interpolated")
	}

	named := MagicLink("https://example.com/magic", "Sam")
	if !strings.Contains(named, "Hi Sam!") {
		t.Errorf("Expected name greeting, got:\n%s", named)
	}
}

func TestEventReminder(t *testing.T) {
	msg := EventReminder(Event{Title: "Standup", Date: "Monday", Time: "9:00", Location: "HQ"})
	for _, want := range []string{"*Standup*", "Monday at 9:00", "HQ"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected reminder to contain %q, got:\n%s", want, msg)
		}
	}
}
