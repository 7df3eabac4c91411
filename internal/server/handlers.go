package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/delta-events/whatsapp-service/internal/logger"
	"github.com/delta-events/whatsapp-service/internal/notify"
	"github.com/delta-events/whatsapp-service/internal/queue"
	"github.com/delta-events/whatsapp-service/internal/transport"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WarnF("Fail to encode response body: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "whatsapp-service",
		"version":   serviceVersion,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.GetConnectionInfo(s.defaultUser))
}

// handleQR always answers 200; an absent challenge is encoded as a null qr
// field so the UI can keep polling with one code path.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	snap := s.sessions.GetStatus(s.defaultUser)
	writeJSON(w, http.StatusOK, map[string]any{
		"qr":     snap.QR,
		"status": snap.Status,
	})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if s.sessions.GetStatus(s.defaultUser).Connected {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":   "Already connected",
			"connected": true,
		})
		return
	}
	if err := s.sessions.Initialize(s.defaultUser); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Connection initiated, check /qr for QR code",
		"connected": false,
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(s.defaultUser)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Disconnected successfully"})
}

func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Reconnect(s.defaultUser); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Reconnection initiated"})
}

type sendRequest struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.To == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: to, message")
		return
	}
	s.deliver(w, r, req.To, transport.Message{Text: req.Message, ImageURL: req.ImageURL})
}

// deliver enqueues a single message and holds the request open until its
// outcome resolves, so the caller learns the delivery identifier.
func (s *Server) deliver(w http.ResponseWriter, r *http.Request, to string, msg transport.Message) {
	if _, ok := s.sessions.Client(s.defaultUser); !ok {
		writeError(w, http.StatusServiceUnavailable, "WhatsApp is not connected")
		return
	}

	outcome := s.queue.Enqueue(s.defaultUser, to, msg)
	messageID, err := outcome.Wait(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"messageId": messageID,
	})
}

type sendBulkRequest struct {
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
	ImageURL   string   `json:"imageUrl"`
}

// handleSendBulk accepts the batch and returns immediately; delivery proceeds
// in the background through the paced queue.
func (s *Server) handleSendBulk(w http.ResponseWriter, r *http.Request) {
	var req sendBulkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Recipients) == 0 || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: recipients, message")
		return
	}
	if _, ok := s.sessions.Client(s.defaultUser); !ok {
		writeError(w, http.StatusServiceUnavailable, "WhatsApp is not connected")
		return
	}

	outcomes := s.queue.SendBulk(s.defaultUser, req.Recipients, transport.Message{Text: req.Message, ImageURL: req.ImageURL})
	go s.reportBulk(len(req.Recipients), outcomes)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "Bulk send started",
		"total":            len(req.Recipients),
		"accepted":         len(outcomes),
		"estimatedSeconds": s.queue.EstimatedDrainSeconds(len(outcomes)),
	})
}

func (s *Server) reportBulk(total int, outcomes []*queue.Outcome) {
	delivered := 0
	for _, o := range outcomes {
		<-o.Done()
		if _, err := o.Result(); err == nil {
			delivered++
		}
	}
	logger.InfoF("Bulk send finished: %d/%d delivered", delivered, total)
}

type checkNumberRequest struct {
	Phone string `json:"phone"`
}

func (s *Server) handleCheckNumber(w http.ResponseWriter, r *http.Request) {
	var req checkNumberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: phone")
		return
	}
	handle, ok := s.sessions.Client(s.defaultUser)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "WhatsApp is not connected")
		return
	}
	registered, err := handle.IsRegistered(r.Context(), req.Phone)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"phone":      req.Phone,
		"registered": registered,
	})
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	handle, ok := s.sessions.Client(s.defaultUser)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "WhatsApp is not connected")
		return
	}
	groups, err := handle.Groups(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if groups == nil {
		groups = []transport.GroupInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (s *Server) handleGroupInviteLink(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupID")
	handle, ok := s.sessions.Client(s.defaultUser)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "WhatsApp is not connected")
		return
	}
	link, err := handle.GroupInviteLink(r.Context(), groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"groupId":    groupID,
		"inviteLink": link,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": records})
}

type sendInviteRequest struct {
	Phone string       `json:"phone"`
	Event notify.Event `json:"event"`
}

func (s *Server) handleSendInvite(w http.ResponseWriter, r *http.Request) {
	var req sendInviteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Phone == "" || req.Event.Title == "" || req.Event.Date == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: phone, event.title, event.date")
		return
	}
	s.deliver(w, r, req.Phone, transport.Message{Text: notify.EventInvite(req.Event)})
}

type sendMagicLinkRequest struct {
	Phone     string `json:"phone"`
	MagicLink string `json:"magicLink"`
	UserName  string `json:"userName"`
}

func (s *Server) handleSendMagicLink(w http.ResponseWriter, r *http.Request) {
	var req sendMagicLinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Phone == "" || req.MagicLink == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: phone, magicLink")
		return
	}
	s.deliver(w, r, req.Phone, transport.Message{Text: notify.MagicLink(req.MagicLink, req.UserName)})
}

type sendReminderRequest struct {
	Phone string       `json:"phone"`
	Event notify.Event `json:"event"`
}

func (s *Server) handleSendReminder(w http.ResponseWriter, r *http.Request) {
	var req sendReminderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Phone == "" || req.Event.Title == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: phone, event.title")
		return
	}
	s.deliver(w, r, req.Phone, transport.Message{Text: notify.EventReminder(req.Event)})
}
