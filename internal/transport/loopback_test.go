package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitForEvent[T Event](t *testing.T, events <-chan Event) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("event channel closed while waiting")
			}
			if typed, match := ev.(T); match {
				return typed
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func TestLoopbackPairingFlow(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "u1")
	adapter := NewLoopback()

	handle, events, err := adapter.Connect(context.Background(), dir)
	require.NoError(t, err)
	defer handle.Close()

	qr := waitForEvent[QRChallengeEvent](t, events)
	require.NotEmpty(t, qr.Code)

	waitForEvent[AuthenticatedEvent](t, events)
	opened := waitForEvent[OpenedEvent](t, events)
	require.NotEmpty(t, opened.Identity.JID)

	// Pairing persists credential material for the next connect.
	_, statErr := os.Stat(filepath.Join(dir, credentialFileName))
	require.NoError(t, statErr)
}

func TestLoopbackSkipsPairingWithCredentials(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "u1")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, credentialFileName), []byte("{}"), 0600))

	adapter := NewLoopback()
	handle, events, err := adapter.Connect(context.Background(), dir)
	require.NoError(t, err)
	defer handle.Close()

	ev := <-events
	_, isOpen := ev.(OpenedEvent)
	require.True(t, isOpen, "expected OpenedEvent first, got %T", ev)
}

func TestLoopbackSendAndAck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "u1")
	adapter := NewLoopback()
	handle, events, err := adapter.Connect(context.Background(), dir)
	require.NoError(t, err)
	defer handle.Close()

	waitForEvent[OpenedEvent](t, events)

	id, err := handle.Send(context.Background(), "15551234567@s.whatsapp.net", Message{Text: "hi"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ack := waitForEvent[AckEvent](t, events)
	require.Equal(t, id, ack.MessageID)

	_, err = handle.Send(context.Background(), "not-a-number", Message{Text: "hi"})
	require.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestLoopbackLogoutRemovesCredentials(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "u1")
	adapter := NewLoopback()
	handle, events, err := adapter.Connect(context.Background(), dir)
	require.NoError(t, err)

	waitForEvent[OpenedEvent](t, events)

	require.NoError(t, handle.Logout(context.Background()))

	closed := waitForEvent[ClosedEvent](t, events)
	require.Equal(t, ReasonLoggedOut, closed.Reason)

	_, statErr := os.Stat(filepath.Join(dir, credentialFileName))
	require.True(t, os.IsNotExist(statErr))

	_, err = handle.Send(context.Background(), "15551234567@s.whatsapp.net", Message{Text: "hi"})
	require.ErrorIs(t, err, ErrNotConnected)
}
