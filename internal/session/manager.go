// Package session owns one authenticated transport connection per user: a
// state machine driven by adapter events, an automatic reconnect loop and the
// snapshot accessors the HTTP layer serves. All registry mutation goes through
// the Manager; no caller ever touches a transport handle directly.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/delta-events/whatsapp-service/internal/broadcast"
	"github.com/delta-events/whatsapp-service/internal/credentials"
	"github.com/delta-events/whatsapp-service/internal/database"
	"github.com/delta-events/whatsapp-service/internal/logger"
	"github.com/delta-events/whatsapp-service/internal/transport"
)

// Session is one user's registry entry. The transport handle is owned
// exclusively by the manager; at most one live handle exists per user id.
type Session struct {
	UserID   string
	status   Status
	qr       *PairingChallenge
	handle   transport.Handle
	identity transport.Identity
	cancel   context.CancelFunc
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	adapter transport.Adapter
	creds   *credentials.Store
	records database.RecordStore
	bus     *broadcast.Broadcaster
	backoff time.Duration
}

func NewManager(adapter transport.Adapter, creds *credentials.Store, records database.RecordStore, bus *broadcast.Broadcaster, backoff time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		adapter:  adapter,
		creds:    creds,
		records:  records,
		bus:      bus,
		backoff:  backoff,
	}
}

// Initialize constructs or reuses the session entry for a user and launches
// the connection attempt. It returns once the attempt is underway, never
// waiting for CONNECTED. While a session is already connected or an attempt is
// in flight the call is a no-op. Adapter construction failure removes the
// entry and surfaces to the caller; it is not retried automatically.
func (m *Manager) Initialize(userID string) error {
	return m.initialize(userID, nil)
}

// initialize does the work of Initialize. A non-nil expected pins the call to
// one registry generation: it proceeds only while expected is still the
// current entry, so a pending backoff timer cannot resurrect a session that
// was logged out in the meantime.
func (m *Manager) initialize(userID string, expected *Session) error {
	m.mu.Lock()
	existing, ok := m.sessions[userID]
	if expected != nil && (!ok || existing != expected) {
		m.mu.Unlock()
		logger.DebugF("[%s] Session replaced or logged out before reconnect, skipping", userID)
		return nil
	}
	if ok {
		if existing.status.inFlight() {
			m.mu.Unlock()
			logger.DebugF("[%s] Session already in flight (%s), reusing", userID, existing.status)
			return nil
		}
		// Stale entry from a previous disconnect: tear the old handle
		// down before a new one may exist.
		if existing.cancel != nil {
			existing.cancel()
		}
		if existing.handle != nil {
			_ = existing.handle.Close()
		}
	}

	credPath, err := m.creds.Path(userID)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("initialize session for %s: %w", userID, err)
	}

	s := &Session{UserID: userID, status: StatusInitializing}
	m.sessions[userID] = s
	m.mu.Unlock()

	logger.InfoF("[%s] Initializing session", userID)
	m.publishStatus(s, "")

	ctx, cancel := context.WithCancel(context.Background())
	handle, events, err := m.adapter.Connect(ctx, credPath)
	if err != nil {
		cancel()
		m.mu.Lock()
		s.status = StatusError
		if m.sessions[userID] == s {
			delete(m.sessions, userID)
		}
		m.mu.Unlock()
		logger.ErrorF("[%s] Initialization error: %v", userID, err)
		m.bus.PublishStatus(broadcast.StatusEvent{UserID: userID, Status: StatusError.String(), Reason: err.Error()})
		_ = m.records.Delete(userID)
		return fmt.Errorf("initialize session for %s: %w", userID, err)
	}

	m.mu.Lock()
	if m.sessions[userID] != s {
		// A concurrent logout removed the entry while Connect was in
		// flight; the fresh handle must not outlive it.
		m.mu.Unlock()
		cancel()
		_ = handle.Close()
		logger.DebugF("[%s] Session removed during connect, discarding new handle", userID)
		return nil
	}
	s.handle = handle
	s.cancel = cancel
	m.mu.Unlock()

	go m.pump(ctx, s, events)
	return nil
}

// Logout closes the transport handle best-effort, removes the session entry,
// deletes the user's credential material and broadcasts a terminal
// DISCONNECTED. It never fails the caller; close errors are swallowed.
func (m *Manager) Logout(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	// Stop the event pump first so the close below cannot be mistaken for
	// a transient drop.
	if s.cancel != nil {
		s.cancel()
	}
	if s.handle != nil {
		ctx, cancelFunc := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.handle.Logout(ctx); err != nil {
			logger.ErrorF("[%s] Logout error: %v", userID, err)
		}
		cancelFunc()
	}

	if err := m.creds.Delete(userID); err != nil {
		logger.WarnF("[%s] Fail to delete credential directory: %v", userID, err)
	}
	if err := m.records.Delete(userID); err != nil {
		logger.DebugF("[%s] Fail to delete session record: %v", userID, err)
	}

	logger.InfoF("[%s] Logged out", userID)
	m.bus.PublishStatus(broadcast.StatusEvent{UserID: userID, Status: StatusDisconnected.String(), Reason: "logout"})
}

// Reconnect is manual recovery: logout followed by a fresh initialize.
func (m *Manager) Reconnect(userID string) error {
	m.Logout(userID)
	return m.Initialize(userID)
}

// Client returns the live transport handle for a user, or false when the
// session is absent or not connected. The delivery queue resolves handles
// through this accessor at send time.
func (m *Manager) Client(userID string) (transport.Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok || s.status != StatusConnected || s.handle == nil {
		return nil, false
	}
	return s.handle, true
}

// GetConnectionInfo returns the full snapshot served by /status.
func (m *Manager) GetConnectionInfo(userID string) ConnectionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return ConnectionInfo{Status: StatusDisconnected.String(), Connected: false}
	}
	if s.status != StatusConnected || s.handle == nil {
		return ConnectionInfo{Status: s.status.String(), Connected: false}
	}
	return ConnectionInfo{
		Status:    s.status.String(),
		Connected: true,
		Ready:     true,
		PushName:  s.identity.PushName,
		JID:       s.identity.JID,
		Phone:     s.identity.Phone,
	}
}

// GetStatus returns the lighter snapshot including any outstanding pairing
// challenge.
func (m *Manager) GetStatus(userID string) StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return StatusSnapshot{Status: StatusDisconnected.String(), Connected: false}
	}
	var qr *PairingChallenge
	if s.qr != nil {
		challenge := *s.qr
		qr = &challenge
	}
	return StatusSnapshot{
		Status:    s.status.String(),
		Connected: s.status == StatusConnected,
		QR:        qr,
	}
}

// LogoutAll logs every known session out; used on graceful shutdown.
func (m *Manager) LogoutAll() {
	m.mu.Lock()
	userIDs := make([]string, 0, len(m.sessions))
	for userID := range m.sessions {
		userIDs = append(userIDs, userID)
	}
	m.mu.Unlock()

	for _, userID := range userIDs {
		m.Logout(userID)
	}
}

type ShutdownCallback struct {
	manager *Manager
}

func (sc *ShutdownCallback) Invoke(ctx context.Context) error {
	sc.manager.LogoutAll()
	return nil
}

func (m *Manager) ShutdownCallback() *ShutdownCallback {
	return &ShutdownCallback{manager: m}
}

// pump consumes one connection's event stream until the stream ends or the
// session is torn down.
func (m *Manager) pump(ctx context.Context, s *Session, events <-chan transport.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.handleEvent(s, ev)
		}
	}
}

func (m *Manager) handleEvent(s *Session, ev transport.Event) {
	m.mu.Lock()
	if m.sessions[s.UserID] != s {
		// The entry was replaced or logged out; trailing events from
		// the old connection are dropped.
		m.mu.Unlock()
		return
	}

	next, act := transition(s.status, ev)
	s.status = next

	switch ev := ev.(type) {
	case transport.QRChallengeEvent:
		s.qr = &PairingChallenge{Code: ev.Code, IssuedAt: time.Now()}
	case transport.OpenedEvent:
		s.qr = nil
		s.identity = ev.Identity
	}
	m.mu.Unlock()

	switch act {
	case actionBroadcastPairing:
		logger.InfoF("[%s] Pairing challenge received", s.UserID)
		m.publishStatus(s, "")
	case actionBroadcastAuthenticated:
		logger.DebugF("[%s] Credentials accepted", s.UserID)
		m.publishStatus(s, "")
	case actionBroadcastConnected:
		logger.InfoF("[%s] Connection opened", s.UserID)
		m.publishStatus(s, "")
	case actionReconnect:
		logger.WarnF("[%s] Connection closed, reconnecting in %v", s.UserID, m.backoff)
		m.publishStatus(s, "connection closed")
		m.scheduleReconnect(s)
	case actionTerminalDisconnect:
		logger.InfoF("[%s] Connection closed: logged out from transport side", s.UserID)
		m.publishStatus(s, "logged_out")
	case actionPublishMessage:
		msg := ev.(transport.InboundMessageEvent).Message
		if !msg.FromMe {
			m.bus.PublishMessage(broadcast.MessageEvent{UserID: s.UserID, Message: msg})
		}
	case actionPublishAck:
		ack := ev.(transport.AckEvent)
		m.bus.PublishAck(broadcast.AckEvent{UserID: s.UserID, MessageID: ack.MessageID, State: ack.State})
	}
}

// scheduleReconnect re-initializes after the fixed backoff unless the session
// was logged out or replaced in the meantime.
func (m *Manager) scheduleReconnect(s *Session) {
	time.AfterFunc(m.backoff, func() {
		if err := m.initialize(s.UserID, s); err != nil {
			logger.ErrorF("[%s] Reconnect attempt failed: %v", s.UserID, err)
		}
	})
}

// publishStatus snapshots the session, persists the record and broadcasts the
// status change.
func (m *Manager) publishStatus(s *Session, reason string) {
	m.mu.Lock()
	status := s.status
	var qrCode string
	if s.qr != nil {
		qrCode = s.qr.Code
	}
	identity := s.identity
	m.mu.Unlock()

	record := &database.SessionRecord{
		UserID:    s.UserID,
		Status:    status.String(),
		UpdatedAt: time.Now(),
	}
	if status == StatusConnected {
		record.JID = identity.JID
		record.PushName = identity.PushName
		record.LastConnectedAt = time.Now()
	}
	if err := m.records.Save(record); err != nil {
		logger.WarnF("[%s] Fail to save session record: %v", s.UserID, err)
	}

	m.bus.PublishStatus(broadcast.StatusEvent{
		UserID: s.UserID,
		Status: status.String(),
		QR:     qrCode,
		Reason: reason,
	})
}
