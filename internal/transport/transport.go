// Package transport defines the boundary to the external WhatsApp transport.
// The service never touches the wire itself: it drives an Adapter, owns the
// returned Handle and consumes the event stream the adapter emits.
package transport

import (
	"context"
	"errors"
)

var (
	ErrNotConnected     = errors.New("transport handle is not connected")
	ErrInvalidRecipient = errors.New("recipient address is empty or invalid")
)

// CloseReason tells the session layer whether a dropped connection may be
// re-established. The distinction is an explicit enum at this boundary so no
// caller ever compares opaque reason strings.
type CloseReason int

const (
	// ReasonOther covers transient drops (network loss, server restart);
	// the session layer reconnects after a backoff.
	ReasonOther CloseReason = iota
	// ReasonLoggedOut means the credential was revoked on the transport
	// side; reconnecting is pointless until a new pairing happens.
	ReasonLoggedOut
)

func (r CloseReason) String() string {
	if r == ReasonLoggedOut {
		return "logged_out"
	}
	return "other"
}

// AckState mirrors the transport's delivery receipt scale:
// -1 error, 0 pending, 1 sent, 2 delivered, 3 read.
type AckState int

// Identity describes the account behind a live connection.
type Identity struct {
	JID      string
	PushName string
	Phone    string
}

// Message is an outbound or inbound message body. ImageURL, when set, turns
// the send into a media message with Text as the caption.
type Message struct {
	ID        string
	From      string
	To        string
	Text      string
	ImageURL  string
	Timestamp int64
	FromMe    bool
}

// GroupInfo is the minimal group listing exposed by the service.
type GroupInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"desc"`
	Participants int    `json:"participants"`
}

// Event is the tagged union emitted on an adapter's event channel. Exactly one
// of the concrete types below flows per channel element.
type Event interface {
	isTransportEvent()
}

// QRChallengeEvent carries a fresh pairing code to present to the user.
type QRChallengeEvent struct {
	Code string
}

// AuthenticatedEvent signals credential acceptance before the connection is
// fully open. Not every transport emits it.
type AuthenticatedEvent struct{}

// OpenedEvent signals a fully established, authenticated connection.
type OpenedEvent struct {
	Identity Identity
}

// ClosedEvent signals connection loss. After ReasonLoggedOut no further events
// arrive on the channel.
type ClosedEvent struct {
	Reason CloseReason
	Err    error
}

// InboundMessageEvent carries a message received from a remote party.
type InboundMessageEvent struct {
	Message Message
}

// AckEvent reports a delivery state change for a previously sent message.
type AckEvent struct {
	MessageID string
	State     AckState
}

func (QRChallengeEvent) isTransportEvent()    {}
func (AuthenticatedEvent) isTransportEvent()  {}
func (OpenedEvent) isTransportEvent()         {}
func (ClosedEvent) isTransportEvent()         {}
func (InboundMessageEvent) isTransportEvent() {}
func (AckEvent) isTransportEvent()            {}

// Handle is one live, authenticated connection. It is owned exclusively by the
// session manager; other components reach it through the manager.
type Handle interface {
	// Send delivers one message and returns the transport delivery
	// identifier. The recipient must already be normalized.
	Send(ctx context.Context, recipient string, msg Message) (string, error)
	// Identity returns the connected account, zero value before open.
	Identity() Identity
	// IsRegistered probes whether a phone number exists on the transport.
	IsRegistered(ctx context.Context, phone string) (bool, error)
	// Groups lists the groups the account participates in.
	Groups(ctx context.Context) ([]GroupInfo, error)
	// GroupInviteLink resolves the invite link for one group.
	GroupInviteLink(ctx context.Context, groupID string) (string, error)
	// Logout revokes the credential on the transport side and closes.
	Logout(ctx context.Context) error
	// Close tears the connection down without revoking the credential.
	Close() error
}

// Adapter creates connections. Connect loads credential material from
// credentialDir (creating it when absent), starts connecting in the background
// and returns immediately; progress arrives on the event channel. The channel
// is closed when the connection is finally torn down.
type Adapter interface {
	Connect(ctx context.Context, credentialDir string) (Handle, <-chan Event, error)
}
