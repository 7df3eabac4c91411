package broadcast

import (
	"testing"

	"github.com/delta-events/whatsapp-service/internal/transport"
)

func TestPublishOrderAndPanicIsolation(t *testing.T) {
	b := New()
	var calls []int

	b.OnStatus(func(StatusEvent) { calls = append(calls, 1) })
	b.OnStatus(func(StatusEvent) { calls = append(calls, 2); panic("subscriber blew up") })
	b.OnStatus(func(StatusEvent) { calls = append(calls, 3) })

	b.PublishStatus(StatusEvent{UserID: "u1", Status: "CONNECTED"})

	if len(calls) != 3 {
		t.Fatalf("Expected all 3 subscribers invoked, got %v", calls)
	}
	for i, want := range []int{1, 2, 3} {
		if calls[i] != want {
			t.Fatalf("Expected registration order delivery, got %v", calls)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	unsubscribe := b.OnAck(func(AckEvent) { count++ })

	b.PublishAck(AckEvent{UserID: "u1", MessageID: "m1", State: 1})
	unsubscribe()
	b.PublishAck(AckEvent{UserID: "u1", MessageID: "m2", State: 2})

	if count != 1 {
		t.Fatalf("Expected exactly one delivery, got %d", count)
	}
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	b := New()
	b.PublishMessage(MessageEvent{UserID: "u1", Message: transport.Message{Text: "early"}})

	got := 0
	b.OnMessage(func(MessageEvent) { got++ })

	if got != 0 {
		t.Fatal("Late subscriber must not see earlier events")
	}

	b.PublishMessage(MessageEvent{UserID: "u1", Message: transport.Message{Text: "late"}})
	if got != 1 {
		t.Fatalf("Expected one delivery after subscribing, got %d", got)
	}
}
