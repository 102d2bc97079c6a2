package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aim-injury/aim-intake/internal/aimos"
	"github.com/aim-injury/aim-intake/internal/catalog"
	"github.com/aim-injury/aim-intake/internal/events"
	"github.com/aim-injury/aim-intake/internal/leads"
	"github.com/aim-injury/aim-intake/internal/notify"
	"github.com/aim-injury/aim-intake/internal/observability/metrics"
	"github.com/aim-injury/aim-intake/internal/phi"
	"github.com/aim-injury/aim-intake/pkg/logging"
)

const maxBodyBytes = 64 << 10

// IntakeInitiator opens an intake case downstream.
type IntakeInitiator interface {
	InitiateIntake(ctx context.Context, handoff aimos.IntakeHandoff) (aimos.IntakeResponse, error)
}

// OrgNotifier tells the team about employer and insurer enquiries.
type OrgNotifier interface {
	NotifyOrgRequest(ctx context.Context, o notify.OrgRequest) error
}

// HandlerConfig wires the intake endpoints.
type HandlerConfig struct {
	Machine     *Machine
	Sessions    SessionStore
	Submissions SubmissionStore
	Initiator   IntakeInitiator
	Orgs        leads.OrgRepository
	Notifier    OrgNotifier
	Audit       Auditor
	Catalog     *catalog.Catalog
	Metrics     *metrics.Metrics
	Logger      *logging.Logger
}

// Handler exposes the intake endpoints.
type Handler struct {
	machine     *Machine
	sessions    SessionStore
	submissions SubmissionStore
	initiator   IntakeInitiator
	orgs        leads.OrgRepository
	notifier    OrgNotifier
	audit       Auditor
	catalog     *catalog.Catalog
	metrics     *metrics.Metrics
	logger      *logging.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Sessions == nil {
		cfg.Sessions = NewMemorySessionStore()
	}
	return &Handler{
		machine:     cfg.Machine,
		sessions:    cfg.Sessions,
		submissions: cfg.Submissions,
		initiator:   cfg.Initiator,
		orgs:        cfg.Orgs,
		notifier:    cfg.Notifier,
		audit:       cfg.Audit,
		catalog:     cfg.Catalog,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

type conversationRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type conversationResponse struct {
	Reply        string `json:"reply"`
	Step         Step   `json:"step"`
	Progress     int    `json:"progress"`
	SubmissionID string `json:"submission_id,omitempty"`
	BookingRef   string `json:"booking_ref,omitempty"`
	Complete     bool   `json:"complete"`
}

// Conversation handles POST /intake/conversation. A new session with an empty
// message receives the greeting.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Session ID is required"})
		return
	}

	ctx := r.Context()
	sess, err := h.sessions.Load(ctx, req.SessionID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		sess = NewSession(req.SessionID)
	case err != nil:
		h.logger.Error("failed to load intake session", "session_id", req.SessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load intake session"})
		return
	}

	var reply string
	if strings.TrimSpace(req.Message) == "" {
		if sess.Step != StepWelcome {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message is required"})
			return
		}
		reply = h.machine.Greeting()
	} else {
		reply = h.machine.Handle(ctx, sess, req.Message)
	}

	if err := h.sessions.Save(ctx, sess); err != nil {
		h.logger.Error("failed to save intake session", "session_id", sess.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save intake progress"})
		return
	}
	writeJSON(w, http.StatusOK, conversationResponse{
		Reply:        reply,
		Step:         sess.Step,
		Progress:     sess.Step.Progress(),
		SubmissionID: sess.SubmissionID,
		BookingRef:   sess.BookingRef,
		Complete:     sess.Complete(),
	})
}

type saveRequest struct {
	SessionID    string `json:"session_id"`
	SubmissionID string `json:"submission_id,omitempty"`
	Collected
	Status string `json:"status,omitempty"`
}

// Save handles POST /intake/save: insert when no submission id is given,
// update otherwise.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Session ID is required"})
		return
	}
	status := req.Status
	if status == "" {
		status = StatusDraft
	}
	if status != StatusDraft && status != StatusSubmitted {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be draft or submitted"})
		return
	}

	saved, err := h.submissions.Save(r.Context(), &Submission{
		ID:        req.SubmissionID,
		SessionID: req.SessionID,
		Collected: req.Collected,
		Status:    status,
	})
	if err != nil {
		if errors.Is(err, ErrSubmissionNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Intake submission not found"})
			return
		}
		msg := "Failed to save intake"
		if req.SubmissionID != "" {
			msg = "Failed to update intake"
		}
		h.logger.Error("intake save failed", "session_id", req.SessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
		return
	}
	if saved.Status == StatusSubmitted {
		h.record(r.Context(), events.TypeIntakeSubmitted, map[string]any{
			"session_id":    saved.SessionID,
			"submission_id": saved.ID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": saved.ID, "status": saved.Status})
}

// Init handles POST /intake/init, the hand-off of a qualified visitor to AIM OS.
func (h *Handler) Init(w http.ResponseWriter, r *http.Request) {
	var req aimos.IntakeHandoff
	if !h.decodeScreened(w, r, "intake_init", &req) {
		return
	}
	if req.HandoffToken == "" || req.Persona == "" || req.Urgency == "" || req.ContactPref == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields: handoff_token, persona, urgency, contact_pref"})
		return
	}

	if h.initiator == nil {
		writeJSON(w, http.StatusOK, h.callbackResponse())
		return
	}
	resp, err := h.initiator.InitiateIntake(r.Context(), req)
	if err != nil {
		if !errors.Is(err, aimos.ErrNotConfigured) {
			h.logger.Error("intake initiation failed", "persona", req.Persona, "error", err)
		}
		writeJSON(w, http.StatusOK, h.callbackResponse())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"intake_id": resp.IntakeID,
		"next_step": resp.NextStep,
	})
}

func (h *Handler) callbackResponse() map[string]any {
	return map[string]any{
		"success":   true,
		"next_step": aimos.NextStepCallback,
		"message":   fmt.Sprintf("Thank you. Our team will call you shortly. You can also reach us at %s.", h.catalog.Contact.PhoneDisplay),
	}
}

type orgRequestBody struct {
	HandoffType string `json:"handoff_type,omitempty"`
	leads.OrgRequest
	Confidence *float64 `json:"confidence,omitempty"`
}

// Org handles POST /intake/org for employer and insurer enquiries.
func (h *Handler) Org(w http.ResponseWriter, r *http.Request) {
	var body orgRequestBody
	if !h.decodeScreened(w, r, "intake_org", &body) {
		return
	}
	problems := body.OrgRequest.Validate()
	if body.HandoffType != "" && body.HandoffType != "org_request" {
		problems = append(problems, "handoff_type must be org_request")
	}
	if body.Confidence != nil && (*body.Confidence < 0 || *body.Confidence > 1) {
		problems = append(problems, "confidence must be between 0 and 1")
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request data", "details": problems})
		return
	}
	if h.orgs == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to submit organization request"})
		return
	}

	ctx := r.Context()
	req := body.OrgRequest
	req.Status = leads.StatusNew
	saved, err := h.orgs.CreateOrgRequest(ctx, &req)
	if err != nil {
		h.logger.Error("org request insert failed", "org_type", req.OrgType, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to submit organization request"})
		return
	}

	h.record(ctx, events.TypeOrgRequestSubmitted, map[string]any{
		"org_request_id": saved.ID,
		"org_type":       saved.OrgType,
		"intent":         saved.Intent,
		"persona":        saved.Persona,
	})
	if h.notifier != nil {
		err := h.notifier.NotifyOrgRequest(ctx, notify.OrgRequest{
			RequestID:     saved.ID,
			OrgType:       saved.OrgType,
			OrgName:       saved.OrgName,
			Intent:        saved.Intent,
			ContactMethod: saved.ContactMethod,
			ContactValue:  saved.ContactValue,
			ContactWindow: saved.ContactWindow,
			At:            time.Now().UTC(),
		})
		if err != nil {
			h.logger.Warn("org request notification failed", "org_request_id", saved.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Organization request submitted successfully",
		"request_id": saved.ID,
	})
}

// Contact details and opaque tokens are expected on hand-off payloads, so only
// their keys are screened.
var phiExemptKeys = []string{"contact_value", "contact_pref", "handoff_token"}

// decodeScreened reads the body, rejects it on any PHI finding and decodes it
// into dst.
func (h *Handler) decodeScreened(w http.ResponseWriter, r *http.Request, surface string, dst any) bool {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return false
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return false
	}
	if res := phi.ScanObject(generic, phi.ExemptValues(phiExemptKeys...)); !res.IsValid {
		cats := res.Categories()
		h.metrics.ObservePHI(surface, cats)
		h.logger.Warn("phi detected in intake request", "surface", surface, "categories", cats)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "PHI detected in request", "violations": cats})
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return false
	}
	return true
}

func (h *Handler) record(ctx context.Context, eventType string, data map[string]any) {
	if h.audit != nil {
		h.audit.Audit(ctx, eventType, data)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
