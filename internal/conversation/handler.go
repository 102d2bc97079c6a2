package conversation

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aim-injury/aim-intake/pkg/logging"
)

// Handler serves the chat widget.
type Handler struct {
	orchestrator *Orchestrator
	logger       *logging.Logger
}

func NewHandler(orchestrator *Orchestrator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orchestrator: orchestrator, logger: logger}
}

type chatRequest struct {
	Message        string        `json:"message"`
	History        []ChatMessage `json:"history"`
	SessionID      string        `json:"sessionId"`
	SessionIDSnake string        `json:"session_id"`
	ServiceName    string        `json:"serviceName"`
	ServiceContext string        `json:"serviceContext"`
	PersonaType    string        `json:"personaType"`
}

// Chat handles POST /ai/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message is required"})
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(req.SessionIDSnake)
	}

	resp := h.orchestrator.Respond(r.Context(), Request{
		SessionID:      sessionID,
		Message:        req.Message,
		History:        req.History,
		ServiceName:    strings.TrimSpace(req.ServiceName),
		ServiceContext: strings.TrimSpace(req.ServiceContext),
		PersonaHint:    strings.TrimSpace(req.PersonaType),
	})
	if resp.SuggestedActions == nil {
		resp.SuggestedActions = []SuggestedAction{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
