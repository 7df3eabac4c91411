// Package broadcast is the process-wide fan-out point between the session and
// delivery core and the outer HTTP/websocket layers. Publishing is synchronous
// and best-effort: every subscriber registered at publish time is invoked in
// registration order, nothing is buffered or replayed.
package broadcast

import (
	"sync"

	"github.com/delta-events/whatsapp-service/internal/logger"
	"github.com/delta-events/whatsapp-service/internal/transport"
)

// StatusEvent reports a session status transition.
type StatusEvent struct {
	UserID string
	Status string
	QR     string
	Reason string
}

// MessageEvent reports an inbound message for a user's session.
type MessageEvent struct {
	UserID  string
	Message transport.Message
}

// AckEvent reports a delivery state change for a sent message.
type AckEvent struct {
	UserID    string
	MessageID string
	State     transport.AckState
}

type StatusListener func(StatusEvent)
type MessageListener func(MessageEvent)
type AckListener func(AckEvent)

type entry[L any] struct {
	id int
	fn L
}

// Broadcaster keeps three independent listener registries, one per event
// class. All methods are safe for concurrent use.
type Broadcaster struct {
	mu       sync.Mutex
	nextID   int
	status   []entry[StatusListener]
	messages []entry[MessageListener]
	acks     []entry[AckListener]
}

func New() *Broadcaster {
	return &Broadcaster{}
}

// OnStatus registers a status listener and returns its unsubscribe func.
func (b *Broadcaster) OnStatus(fn StatusListener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.status = append(b.status, entry[StatusListener]{id: id, fn: fn})
	return func() { b.removeStatus(id) }
}

// OnMessage registers an inbound-message listener.
func (b *Broadcaster) OnMessage(fn MessageListener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.messages = append(b.messages, entry[MessageListener]{id: id, fn: fn})
	return func() { b.removeMessage(id) }
}

// OnAck registers a delivery-ack listener.
func (b *Broadcaster) OnAck(fn AckListener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.acks = append(b.acks, entry[AckListener]{id: id, fn: fn})
	return func() { b.removeAck(id) }
}

func (b *Broadcaster) removeStatus(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.status {
		if e.id == id {
			b.status = append(b.status[:i], b.status[i+1:]...)
			return
		}
	}
}

func (b *Broadcaster) removeMessage(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.messages {
		if e.id == id {
			b.messages = append(b.messages[:i], b.messages[i+1:]...)
			return
		}
	}
}

func (b *Broadcaster) removeAck(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.acks {
		if e.id == id {
			b.acks = append(b.acks[:i], b.acks[i+1:]...)
			return
		}
	}
}

// PublishStatus fans a status event out to all current status listeners.
func (b *Broadcaster) PublishStatus(ev StatusEvent) {
	b.mu.Lock()
	listeners := make([]entry[StatusListener], len(b.status))
	copy(listeners, b.status)
	b.mu.Unlock()

	for _, l := range listeners {
		invoke(func() { l.fn(ev) })
	}
}

// PublishMessage fans an inbound message out to all message listeners.
func (b *Broadcaster) PublishMessage(ev MessageEvent) {
	b.mu.Lock()
	listeners := make([]entry[MessageListener], len(b.messages))
	copy(listeners, b.messages)
	b.mu.Unlock()

	for _, l := range listeners {
		invoke(func() { l.fn(ev) })
	}
}

// PublishAck fans a delivery ack out to all ack listeners.
func (b *Broadcaster) PublishAck(ev AckEvent) {
	b.mu.Lock()
	listeners := make([]entry[AckListener], len(b.acks))
	copy(listeners, b.acks)
	b.mu.Unlock()

	for _, l := range listeners {
		invoke(func() { l.fn(ev) })
	}
}

// invoke shields the fan-out loop from a panicking subscriber so delivery to
// the remaining subscribers still happens.
func invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorF("Event subscriber panicked: %v", r)
		}
	}()
	fn()
}
