package transport

import "strings"

const (
	userSuffix  = "@s.whatsapp.net"
	groupSuffix = "@g.us"
)

// NormalizeRecipient converts a raw phone number into the transport's JID
// addressing form. Already-normalized addresses pass through unchanged, so the
// function is idempotent. Bare 10-digit numbers get the US country code, the
// historical default of this service.
func NormalizeRecipient(number string) string {
	if number == "" {
		return ""
	}

	if strings.Contains(number, userSuffix) || strings.Contains(number, groupSuffix) {
		return number
	}

	var clean strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			clean.WriteRune(r)
		}
	}
	digits := clean.String()
	if digits == "" {
		return ""
	}

	if !strings.HasPrefix(digits, "1") && len(digits) == 10 {
		digits = "1" + digits
	}

	return digits + userSuffix
}

// IsGroupJID reports whether a normalized address targets a group chat.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, groupSuffix)
}
