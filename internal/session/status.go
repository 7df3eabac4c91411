package session

import "time"

// Status is the lifecycle state of one user's transport session.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInitializing
	// StatusPairing means a pairing challenge is waiting to be scanned.
	StatusPairing
	// StatusAuthenticated is the optional intermediate the transport emits
	// between credential acceptance and the connection opening.
	StatusAuthenticated
	StatusConnected
	StatusDisconnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "UNINITIALIZED"
	case StatusInitializing:
		return "INITIALIZING"
	case StatusPairing:
		return "PAIRING"
	case StatusAuthenticated:
		return "AUTHENTICATED"
	case StatusConnected:
		return "CONNECTED"
	case StatusDisconnected:
		return "DISCONNECTED"
	case StatusError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// inFlight reports whether a connection attempt is already underway, in which
// case Initialize is a no-op.
func (s Status) inFlight() bool {
	switch s {
	case StatusInitializing, StatusPairing, StatusAuthenticated, StatusConnected:
		return true
	}
	return false
}

// PairingChallenge is the short-lived artifact presented once per new device
// link. Field names mirror the wire shape the UI polls via /qr.
type PairingChallenge struct {
	Code     string    `json:"raw"`
	IssuedAt time.Time `json:"timestamp"`
}

// ConnectionInfo is the full session snapshot served by /status.
type ConnectionInfo struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	Ready     bool   `json:"ready,omitempty"`
	PushName  string `json:"pushname,omitempty"`
	JID       string `json:"wid,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// StatusSnapshot is the lighter snapshot that includes the live pairing
// challenge when one is outstanding.
type StatusSnapshot struct {
	Status    string            `json:"status"`
	Connected bool              `json:"connected"`
	QR        *PairingChallenge `json:"qr,omitempty"`
}
