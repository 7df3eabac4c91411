package transport

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/delta-events/whatsapp-service/internal/logger"
)

const credentialFileName = "creds.json"

// Loopback is an in-process Adapter used in development and tests. It follows
// the same lifecycle as the real transport: a pairing challenge when no
// credential material exists, an open event once paired, delivery identifiers
// and acks for every send, and a close event with an explicit reason.
type Loopback struct {
	// AutoPair completes the pairing challenge by itself after PairDelay,
	// as if the code had been scanned.
	AutoPair  bool
	PairDelay time.Duration

	mu     sync.Mutex
	groups []GroupInfo
}

func NewLoopback() *Loopback {
	return &Loopback{AutoPair: true}
}

// SeedGroups installs the group list returned by Handle.Groups.
func (l *Loopback) SeedGroups(groups []GroupInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.groups = append([]GroupInfo(nil), groups...)
}

func (l *Loopback) Connect(ctx context.Context, credentialDir string) (Handle, <-chan Event, error) {
	if err := os.MkdirAll(credentialDir, 0755); err != nil {
		return nil, nil, err
	}

	h := &loopbackHandle{
		adapter:       l,
		credentialDir: credentialDir,
		events:        make(chan Event, 32),
		done:          make(chan struct{}),
		paired:        make(chan struct{}),
		identity: Identity{
			JID:      "15550000001@s.whatsapp.net",
			PushName: filepath.Base(credentialDir),
			Phone:    "15550000001",
		},
	}

	go h.run(ctx)

	return h, h.events, nil
}

type loopbackHandle struct {
	adapter       *Loopback
	credentialDir string
	events        chan Event
	done          chan struct{}
	paired        chan struct{}
	identity      Identity

	mu        sync.Mutex
	connected bool
	closed    bool
	closeOnce sync.Once
	pairOnce  sync.Once
}

func (h *loopbackHandle) credentialPath() string {
	return filepath.Join(h.credentialDir, credentialFileName)
}

func (h *loopbackHandle) hasCredentials() bool {
	_, err := os.Stat(h.credentialPath())
	return err == nil
}

// Pair completes an outstanding pairing challenge, as if the presented code
// had been scanned on a phone. No-op when already paired.
func (h *loopbackHandle) Pair() {
	h.pairOnce.Do(func() { close(h.paired) })
}

func (h *loopbackHandle) run(ctx context.Context) {
	if !h.hasCredentials() {
		h.emit(QRChallengeEvent{Code: uuid.NewString()})

		if h.adapter.AutoPair {
			delay := h.adapter.PairDelay
			if delay <= 0 {
				delay = 10 * time.Millisecond
			}
			select {
			case <-time.After(delay):
			case <-h.paired:
			case <-ctx.Done():
				return
			case <-h.done:
				return
			}
		} else {
			select {
			case <-h.paired:
			case <-ctx.Done():
				return
			case <-h.done:
				return
			}
		}

		if err := os.WriteFile(h.credentialPath(), []byte("{}"), 0600); err != nil {
			logger.ErrorF("Fail to persist loopback credentials: %v", err)
		}
		h.emit(AuthenticatedEvent{})
	}

	h.mu.Lock()
	h.connected = true
	h.mu.Unlock()
	h.emit(OpenedEvent{Identity: h.identity})
}

func (h *loopbackHandle) emit(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.events <- ev:
	default:
		logger.WarnF("Loopback event buffer full, dropping %T", ev)
	}
}

func (h *loopbackHandle) Send(ctx context.Context, recipient string, msg Message) (string, error) {
	h.mu.Lock()
	connected := h.connected
	h.mu.Unlock()

	if !connected {
		return "", ErrNotConnected
	}
	if recipient == "" || NormalizeRecipient(recipient) == "" {
		return "", ErrInvalidRecipient
	}

	id := uuid.NewString()
	go h.emit(AckEvent{MessageID: id, State: 1})
	return id, nil
}

func (h *loopbackHandle) Identity() Identity {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connected {
		return Identity{}
	}
	return h.identity
}

func (h *loopbackHandle) IsRegistered(ctx context.Context, phone string) (bool, error) {
	return NormalizeRecipient(phone) != "", nil
}

func (h *loopbackHandle) Groups(ctx context.Context) ([]GroupInfo, error) {
	h.adapter.mu.Lock()
	defer h.adapter.mu.Unlock()
	return append([]GroupInfo(nil), h.adapter.groups...), nil
}

func (h *loopbackHandle) GroupInviteLink(ctx context.Context, groupID string) (string, error) {
	return "https://chat.whatsapp.com/" + uuid.NewString()[:22], nil
}

// Drop simulates a transient network failure. The session layer is expected to
// reconnect after its backoff.
func (h *loopbackHandle) Drop() {
	h.shutdown(ClosedEvent{Reason: ReasonOther})
}

func (h *loopbackHandle) Logout(ctx context.Context) error {
	_ = os.Remove(h.credentialPath())
	h.shutdown(ClosedEvent{Reason: ReasonLoggedOut})
	return nil
}

func (h *loopbackHandle) Close() error {
	h.shutdown(ClosedEvent{Reason: ReasonOther})
	return nil
}

func (h *loopbackHandle) shutdown(ev ClosedEvent) {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.connected = false
		h.closed = true
		// Deliver the close event before the channel goes away.
		select {
		case h.events <- ev:
		default:
		}
		h.mu.Unlock()
		close(h.done)
		close(h.events)
	})
}
