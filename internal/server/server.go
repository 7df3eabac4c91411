// Package server exposes the HTTP and websocket surface consumed by the UI
// layer. Handlers are thin: they validate input, call into the session
// manager or the delivery queue and shape JSON responses; all real state
// lives in those components.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/websocket"

	"github.com/delta-events/whatsapp-service/internal/broadcast"
	"github.com/delta-events/whatsapp-service/internal/database"
	"github.com/delta-events/whatsapp-service/internal/logger"
	"github.com/delta-events/whatsapp-service/internal/queue"
	"github.com/delta-events/whatsapp-service/internal/session"
)

const serviceVersion = "1.0.0"

type Server struct {
	sessions       *session.Manager
	queue          *queue.Manager
	records        database.RecordStore
	bus            *broadcast.Broadcaster
	defaultUser    string
	allowedOrigins []string
	httpServer     *http.Server
}

func NewServer(sessions *session.Manager, deliveryQueue *queue.Manager, records database.RecordStore, bus *broadcast.Broadcaster, defaultUser string, allowedOrigins []string) *Server {
	s := &Server{
		sessions:       sessions,
		queue:          deliveryQueue,
		records:        records,
		bus:            bus,
		defaultUser:    defaultUser,
		allowedOrigins: allowedOrigins,
	}
	s.httpServer = &http.Server{Handler: s.Handler()}
	return s
}

// Handler builds the full route table wrapped in the logging, CORS and
// recovery middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /qr", s.handleQR)
	mux.HandleFunc("POST /connect", s.handleConnect)
	mux.HandleFunc("POST /disconnect", s.handleDisconnect)
	mux.HandleFunc("POST /reconnect", s.handleReconnect)
	mux.HandleFunc("POST /send", s.handleSend)
	mux.HandleFunc("POST /send-bulk", s.handleSendBulk)
	mux.HandleFunc("POST /check-number", s.handleCheckNumber)
	mux.HandleFunc("GET /groups", s.handleGroups)
	mux.HandleFunc("GET /group-invite-link/{groupID}", s.handleGroupInviteLink)
	mux.HandleFunc("GET /sessions", s.handleSessions)
	mux.HandleFunc("POST /send-invite", s.handleSendInvite)
	mux.HandleFunc("POST /send-magic-link", s.handleSendMagicLink)
	mux.HandleFunc("POST /send-reminder", s.handleSendReminder)
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return s.withMiddleware(mux)
}

// StartServer blocks serving HTTP on the given port until shutdown.
func (s *Server) StartServer(port int) {
	s.httpServer.Addr = ":" + strconv.Itoa(port)
	logger.InfoF("WhatsApp service listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.FatalF("HTTP server error: %v", err)
	}
}

type ShutdownCallback struct {
	server *Server
}

func (sc *ShutdownCallback) Invoke(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sc.server.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) ShutdownCallback() *ShutdownCallback {
	return &ShutdownCallback{server: s}
}
