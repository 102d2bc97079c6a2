package aimos

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aim-injury/aim-intake/pkg/logging"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-AIMOS-Signature"

const maxWebhookBody = 1 << 20

// IntakeStatusUpdater applies downstream status changes to intake records.
type IntakeStatusUpdater interface {
	UpdateStatus(ctx context.Context, intakeID, status string) error
}

// ProcessedTracker remembers delivery ids that were already applied.
type ProcessedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

const webhookProvider = "aimos"

// WebhookHandler receives status notifications from AIM OS.
type WebhookHandler struct {
	secret    string
	intakes   IntakeStatusUpdater
	processed ProcessedTracker
	logger    *logging.Logger
}

func NewWebhookHandler(secret string, intakes IntakeStatusUpdater, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{secret: strings.TrimSpace(secret), intakes: intakes, logger: logger}
}

// WithProcessedTracker drops replayed deliveries that carry an event_id.
func (h *WebhookHandler) WithProcessedTracker(p ProcessedTracker) *WebhookHandler {
	h.processed = p
	return h
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if h.secret == "" {
		h.logger.Warn("aimos webhook secret not configured, rejecting")
	}
	if !VerifySignature(h.secret, payload, r.Header.Get(SignatureHeader)) {
		h.logger.Warn("invalid aimos webhook signature")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
		return
	}

	var body WebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if h.processed != nil && body.EventID != "" {
		seen, err := h.processed.AlreadyProcessed(r.Context(), webhookProvider, body.EventID)
		if err != nil {
			h.logger.Warn("processed lookup failed", "event_id", body.EventID, "error", err)
		} else if seen {
			writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
	}

	switch body.Type {
	case "intake_status_update":
		if body.IntakeID == "" || !IntakeStatuses[body.Status] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "intake_id and a valid status are required"})
			return
		}
		if h.intakes == nil {
			h.logger.Error("aimos webhook received but no intake store configured")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Webhook processing failed"})
			return
		}
		err := h.intakes.UpdateStatus(r.Context(), body.IntakeID, body.Status)
		if errors.Is(err, ErrIntakeNotFound) {
			h.logger.Warn("aimos webhook for unknown intake", "intake_id", body.IntakeID, "status", body.Status)
			break
		}
		if err != nil {
			h.logger.Error("failed to update intake status", "intake_id", body.IntakeID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Webhook processing failed"})
			return
		}
		h.logger.Info("intake status updated", "intake_id", body.IntakeID, "status", body.Status)
	default:
		h.logger.Warn("unknown aimos webhook type", "type", body.Type)
	}
	if h.processed != nil && body.EventID != "" {
		if _, err := h.processed.MarkProcessed(r.Context(), webhookProvider, body.EventID); err != nil {
			h.logger.Warn("failed to mark webhook processed", "event_id", body.EventID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VerifySignature checks a hex HMAC-SHA256 signature in constant time. An
// empty secret never verifies.
func VerifySignature(secret string, payload []byte, signature string) bool {
	if strings.TrimSpace(secret) == "" || strings.TrimSpace(signature) == "" {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(Sign(secret, payload), provided)
}

// Sign computes the raw HMAC-SHA256 of payload.
func Sign(secret string, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return mac.Sum(nil)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
