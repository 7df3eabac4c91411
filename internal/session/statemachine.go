package session

import "github.com/delta-events/whatsapp-service/internal/transport"

// action is the side effect the manager must perform after a transition. The
// transition function itself is pure so the state machine can be tested
// without a live transport.
type action int

const (
	actionNone action = iota
	// actionBroadcastPairing stores the challenge and announces PAIRING.
	actionBroadcastPairing
	actionBroadcastAuthenticated
	// actionBroadcastConnected clears the challenge and announces CONNECTED.
	actionBroadcastConnected
	// actionReconnect announces a transient DISCONNECTED and schedules a
	// re-initialize after the backoff.
	actionReconnect
	// actionTerminalDisconnect announces DISCONNECTED with no retry: the
	// credential was revoked on the transport side.
	actionTerminalDisconnect
	actionPublishMessage
	actionPublishAck
)

// transition maps (status, transport event) to (next status, side effect).
func transition(current Status, ev transport.Event) (Status, action) {
	switch ev := ev.(type) {
	case transport.QRChallengeEvent:
		return StatusPairing, actionBroadcastPairing
	case transport.AuthenticatedEvent:
		return StatusAuthenticated, actionBroadcastAuthenticated
	case transport.OpenedEvent:
		return StatusConnected, actionBroadcastConnected
	case transport.ClosedEvent:
		if ev.Reason == transport.ReasonLoggedOut {
			return StatusDisconnected, actionTerminalDisconnect
		}
		return StatusDisconnected, actionReconnect
	case transport.InboundMessageEvent:
		return current, actionPublishMessage
	case transport.AckEvent:
		return current, actionPublishAck
	}
	return current, actionNone
}
