package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/aim-injury/aim-intake/internal/catalog"
	"github.com/aim-injury/aim-intake/internal/events"
	"github.com/aim-injury/aim-intake/internal/phi"
	"github.com/aim-injury/aim-intake/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// EventTracker records tracked events.
type EventTracker interface {
	Track(ctx context.Context, evt events.Tracked) error
}

// Handler exposes the tracking endpoint and persona lookups.
type Handler struct {
	service *Service
	events  EventTracker
	catalog *catalog.Catalog
	logger  *logging.Logger
}

func NewHandler(service *Service, tracker EventTracker, cat *catalog.Catalog, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	return &Handler{service: service, events: tracker, catalog: cat, logger: logger}
}

type trackRequest struct {
	EventType       string          `json:"event_type"`
	SessionID       string          `json:"session_id"`
	EventData       map[string]any  `json:"event_data"`
	PersonaSnapshot json.RawMessage `json:"persona_snapshot,omitempty"`
}

type personaResponse struct {
	SessionID    string   `json:"session_id"`
	PersonaType  Type     `json:"persona_type"`
	PersonaCode  string   `json:"persona_code"`
	Scores       Scores   `json:"confidence_scores"`
	Signals      Signals  `json:"behavioral_signals"`
	SelfBookable []string `json:"self_bookable_services"`
}

// TrackEvent handles POST /events.
func (h *Handler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	req.EventType = strings.TrimSpace(req.EventType)
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.EventType == "" || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event_type and session_id are required"})
		return
	}
	if req.EventData == nil {
		req.EventData = map[string]any{}
	}
	if res := phi.ScanObject(req.EventData); !res.IsValid {
		h.logger.Warn("dropping event data containing phi", "session_id", req.SessionID, "event_type", req.EventType, "categories", res.Categories())
		req.EventData = map[string]any{"phi_redacted": true}
	}

	ctx := r.Context()
	rec := h.service.Initialize(ctx, req.SessionID)
	if sig, ok := SignalFromEvent(req.EventType, req.EventData); ok {
		rec = h.service.Track(ctx, req.SessionID, sig)
	}

	var snapshot any
	if len(req.PersonaSnapshot) > 0 {
		snapshot = req.PersonaSnapshot
	}
	if h.events != nil {
		err := h.events.Track(ctx, events.Tracked{
			SessionID:         req.SessionID,
			EventType:         req.EventType,
			Data:              req.EventData,
			PersonaCode:       rec.PersonaType.Code(),
			PersonaConfidence: rec.Scores.Max(),
			PersonaSnapshot:   snapshot,
		})
		if err != nil {
			h.logger.Error("failed to save event", "session_id", req.SessionID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save event"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"persona_type":      rec.PersonaType,
		"confidence_scores": rec.Scores,
	})
}

// GetPersona handles GET /persona/{sessionID}.
func (h *Handler) GetPersona(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}
	rec := h.service.Initialize(r.Context(), sessionID)
	writeJSON(w, http.StatusOK, personaResponse{
		SessionID:    rec.SessionID,
		PersonaType:  rec.PersonaType,
		PersonaCode:  rec.PersonaType.Code(),
		Scores:       rec.Scores,
		Signals:      rec.Signals,
		SelfBookable: h.catalog.SelfBookableFor(string(rec.PersonaType)),
	})
}

// SignalFromEvent maps a tracking event onto a scoring signal.
func SignalFromEvent(eventType string, data map[string]any) (Signal, bool) {
	switch eventType {
	case "page_view":
		path := firstString(data, "path", "page", "url")
		return Signal{Kind: SignalPageView, Value: path}, path != ""
	case "cta_click":
		id := firstString(data, "cta_id", "cta", "id")
		return Signal{Kind: SignalCTAClick, Value: id}, id != ""
	case "ai_message":
		return Signal{Kind: SignalAIMessage, Value: firstString(data, "intent", "detected_intent")}, true
	case "scroll_depth":
		page := firstString(data, "page", "path")
		return Signal{Kind: SignalScrollDepth, Value: page, Amount: intValue(data["depth"])}, page != ""
	case "form_start", "form_submit":
		form := firstString(data, "form_type", "form")
		if form == "" {
			form = eventType
		}
		return Signal{Kind: SignalFormInteraction, Value: form}, true
	case "time_on_site":
		return Signal{Kind: SignalTimeOnSite, Amount: intValue(data["seconds"])}, true
	}
	return Signal{}, false
}

func firstString(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := data[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func intValue(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		i, _ := strconv.Atoi(n)
		return i
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	default:
		if v == nil {
			return 0
		}
		i, _ := strconv.Atoi(fmt.Sprint(v))
		return i
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
