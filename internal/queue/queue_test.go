package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/delta-events/whatsapp-service/internal/transport"
)

// recordingHandle captures send order and timestamps.
type recordingHandle struct {
	mu       sync.Mutex
	sent     []string
	sentAt   []time.Time
	failFor  string
	nextID   int
	identity transport.Identity
}

func (h *recordingHandle) Send(ctx context.Context, recipient string, msg transport.Message) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failFor != "" && strings.Contains(recipient, h.failFor) {
		return "", errors.New("transport rejected message")
	}
	h.sent = append(h.sent, recipient)
	h.sentAt = append(h.sentAt, time.Now())
	h.nextID++
	return fmt.Sprintf("delivery-%d", h.nextID), nil
}

func (h *recordingHandle) Identity() transport.Identity { return h.identity }
func (h *recordingHandle) IsRegistered(ctx context.Context, phone string) (bool, error) {
	return true, nil
}
func (h *recordingHandle) Groups(ctx context.Context) ([]transport.GroupInfo, error) {
	return nil, nil
}
func (h *recordingHandle) GroupInviteLink(ctx context.Context, groupID string) (string, error) {
	return "", nil
}
func (h *recordingHandle) Logout(ctx context.Context) error { return nil }
func (h *recordingHandle) Close() error                     { return nil }

// stubClients maps user ids to handles; absent users count as not connected.
type stubClients struct {
	mu      sync.Mutex
	handles map[string]transport.Handle
}

func (s *stubClients) Client(userID string) (transport.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[userID]
	return h, ok
}

func (s *stubClients) set(userID string, h transport.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles == nil {
		s.handles = make(map[string]transport.Handle)
	}
	s.handles[userID] = h
}

func waitAll(t *testing.T, outcomes []*Outcome) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, o := range outcomes {
		_, _ = o.Wait(ctx)
		select {
		case <-o.Done():
		default:
			t.Fatal("outcome did not resolve in time")
		}
	}
}

func TestDrainPreservesOrderAndPacing(t *testing.T) {
	delay := 40 * time.Millisecond
	handle := &recordingHandle{}
	clients := &stubClients{}
	clients.set("u1", handle)
	m := NewManager(clients, delay)

	start := time.Now()
	outcomes := []*Outcome{
		m.Enqueue("u1", "15550000001", transport.Message{Text: "one"}),
		m.Enqueue("u1", "15550000002", transport.Message{Text: "two"}),
		m.Enqueue("u1", "15550000003", transport.Message{Text: "three"}),
	}
	waitAll(t, outcomes)
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 2*delay, "three tasks must span at least two pacing delays")

	handle.mu.Lock()
	defer handle.mu.Unlock()
	require.Equal(t, []string{
		"15550000001@s.whatsapp.net",
		"15550000002@s.whatsapp.net",
		"15550000003@s.whatsapp.net",
	}, handle.sent)
	for i := 1; i < len(handle.sentAt); i++ {
		gap := handle.sentAt[i].Sub(handle.sentAt[i-1])
		require.GreaterOrEqual(t, gap, delay, "consecutive sends must respect the pacing delay")
	}

	seen := make(map[string]bool)
	for _, o := range outcomes {
		id, err := o.Result()
		require.NoError(t, err)
		require.False(t, seen[id], "delivery identifiers must be distinct")
		seen[id] = true
	}
}

func TestQueuesDrainIndependently(t *testing.T) {
	delay := 100 * time.Millisecond
	clients := &stubClients{}
	clients.set("u1", &recordingHandle{})
	clients.set("u2", &recordingHandle{})
	m := NewManager(clients, delay)

	start := time.Now()
	outcomes := []*Outcome{
		m.Enqueue("u1", "15550000001", transport.Message{Text: "a"}),
		m.Enqueue("u1", "15550000002", transport.Message{Text: "b"}),
		m.Enqueue("u2", "15550000003", transport.Message{Text: "c"}),
		m.Enqueue("u2", "15550000004", transport.Message{Text: "d"}),
	}
	waitAll(t, outcomes)
	elapsed := time.Since(start)

	// Each user waits one pacing delay; serialized across users it would
	// take at least two.
	require.GreaterOrEqual(t, elapsed, delay)
	require.Less(t, elapsed, 2*delay, "queues of different users must not wait on each other")
}

func TestNotConnectedFailsTaskWithoutStallingQueue(t *testing.T) {
	m := NewManager(&stubClients{}, 5*time.Millisecond)

	outcomes := []*Outcome{
		m.Enqueue("ghost", "15550000001", transport.Message{Text: "a"}),
		m.Enqueue("ghost", "15550000002", transport.Message{Text: "b"}),
	}
	waitAll(t, outcomes)

	for _, o := range outcomes {
		_, err := o.Result()
		require.ErrorIs(t, err, transport.ErrNotConnected)
	}
}

func TestSendFailureIsTaskLocal(t *testing.T) {
	handle := &recordingHandle{failFor: "15550000002"}
	clients := &stubClients{}
	clients.set("u1", handle)
	m := NewManager(clients, 5*time.Millisecond)

	outcomes := []*Outcome{
		m.Enqueue("u1", "15550000001", transport.Message{Text: "a"}),
		m.Enqueue("u1", "15550000002", transport.Message{Text: "b"}),
		m.Enqueue("u1", "15550000003", transport.Message{Text: "c"}),
	}
	waitAll(t, outcomes)

	_, err := outcomes[0].Result()
	require.NoError(t, err)
	_, err = outcomes[1].Result()
	require.Error(t, err)
	_, err = outcomes[2].Result()
	require.NoError(t, err, "a failing task must not abort the rest of the queue")
}

func TestSendBulkPartialFailure(t *testing.T) {
	handle := &recordingHandle{}
	clients := &stubClients{}
	clients.set("u1", handle)
	m := NewManager(clients, time.Millisecond)

	recipients := []string{"15550000001", "15550000002", "not-a-number", "15550000004", "15550000005"}
	outcomes := m.SendBulk("u1", recipients, transport.Message{Text: "hello"})
	require.Len(t, outcomes, 5)
	waitAll(t, outcomes)

	fulfilled, rejected := 0, 0
	for _, o := range outcomes {
		if _, err := o.Result(); err != nil {
			rejected++
			require.ErrorIs(t, err, transport.ErrInvalidRecipient)
		} else {
			fulfilled++
		}
	}
	require.Equal(t, 4, fulfilled)
	require.Equal(t, 1, rejected)
}

func TestDrainRestartsAfterQueueEmpties(t *testing.T) {
	handle := &recordingHandle{}
	clients := &stubClients{}
	clients.set("u1", handle)
	m := NewManager(clients, time.Millisecond)

	first := m.Enqueue("u1", "15550000001", transport.Message{Text: "a"})
	waitAll(t, []*Outcome{first})

	second := m.Enqueue("u1", "15550000002", transport.Message{Text: "b"})
	waitAll(t, []*Outcome{second})

	handle.mu.Lock()
	defer handle.mu.Unlock()
	require.Len(t, handle.sent, 2)
}

func TestEstimatedDrainSeconds(t *testing.T) {
	m := NewManager(&stubClients{}, 7*time.Second)
	require.Equal(t, 21, m.EstimatedDrainSeconds(3))
}
