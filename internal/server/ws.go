package server

import (
	"encoding/json"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/delta-events/whatsapp-service/internal/broadcast"
	"github.com/delta-events/whatsapp-service/internal/logger"
)

// wsFrame is the envelope pushed to websocket clients.
type wsFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// wsClient serializes writes to one connection; broadcaster callbacks fire
// from multiple goroutines.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) push(event string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := websocket.JSON.Send(c.conn, wsFrame{Event: event, Data: data}); err != nil {
		logger.DebugF("Fail to push %s frame to websocket client: %v", event, err)
	}
}

// handleWebSocket serves the realtime channel: an initial status snapshot for
// the default user on connect, then status, message and ack events as they
// happen. The handler blocks until the client goes away, which is what keeps
// the subscriptions alive.
func (s *Server) handleWebSocket(conn *websocket.Conn) {
	logger.Info("Client connected to WebSocket")
	client := &wsClient{conn: conn}

	snap := s.sessions.GetStatus(s.defaultUser)
	client.push("status", map[string]any{
		"connected": snap.Connected,
		"status":    snap.Status,
		"qr":        snap.QR,
	})

	unsubStatus := s.bus.OnStatus(func(ev broadcast.StatusEvent) {
		if ev.UserID == s.defaultUser {
			client.push("status_change", map[string]any{
				"status": ev.Status,
				"qr":     ev.QR,
				"reason": ev.Reason,
			})
		}
		client.push("session_status", map[string]any{
			"userId": ev.UserID,
			"status": ev.Status,
		})
	})
	unsubMessage := s.bus.OnMessage(func(ev broadcast.MessageEvent) {
		client.push("new_message", map[string]any{
			"userId":    ev.UserID,
			"id":        ev.Message.ID,
			"from":      ev.Message.From,
			"body":      ev.Message.Text,
			"timestamp": ev.Message.Timestamp,
		})
	})
	unsubAck := s.bus.OnAck(func(ev broadcast.AckEvent) {
		client.push("message_ack", map[string]any{
			"userId": ev.UserID,
			"id":     ev.MessageID,
			"ack":    ev.State,
		})
	})
	defer func() {
		unsubStatus()
		unsubMessage()
		unsubAck()
	}()

	// Inbound frames are ignored; the read loop only detects disconnect.
	for {
		var discard json.RawMessage
		if err := websocket.JSON.Receive(conn, &discard); err != nil {
			break
		}
	}
	logger.Info("Client disconnected from WebSocket")
}
