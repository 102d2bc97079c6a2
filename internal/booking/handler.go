package booking

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aim-injury/aim-intake/internal/observability/metrics"
	"github.com/aim-injury/aim-intake/internal/phi"
	"github.com/aim-injury/aim-intake/pkg/logging"
)

const maxBodyBytes = 64 << 10

const (
	cancelledMessage   = "Your appointment has been cancelled. If you'd like to rebook, please let us know."
	rescheduledMessage = "Reschedule request submitted. Our team will contact you to confirm the new time."
)

// Contact details and free-form times legitimately look like phone numbers and
// dates, so only their keys are screened.
var phiExemptKeys = []string{"contact_value", "preferred_times", "new_time"}

// Handler exposes the booking endpoints.
type Handler struct {
	service *Service
	metrics *metrics.Metrics
	logger  *logging.Logger
}

func NewHandler(service *Service, m *metrics.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, metrics: m, logger: logger}
}

// Confirm handles POST /booking/confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !h.decode(w, r, "confirm", &req) {
		return
	}
	out, err := h.service.Confirm(r.Context(), req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			h.metrics.ObserveBooking("confirm", "invalid")
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request data", "details": verr.Details})
			return
		}
		h.metrics.ObserveBooking("confirm", "error")
		h.logger.Error("booking confirm failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create booking request"})
		return
	}
	h.metrics.ObserveBooking("confirm", "ok")
	resp := map[string]any{
		"success":     true,
		"message":     out.Message,
		"booking_ref": out.BookingRef,
		"expires_at":  out.ExpiresAt,
	}
	if out.HandoffStatus != "" {
		resp["status"] = out.HandoffStatus
	}
	writeJSON(w, http.StatusOK, resp)
}

// Lookup handles POST /booking/lookup.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingRef string `json:"booking_ref"`
		Action     string `json:"action,omitempty"`
	}
	if !h.decode(w, r, "lookup", &req) {
		return
	}
	if req.Action != "" && req.Action != "lookup" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request data", "details": []string{"action must be lookup"}})
		return
	}
	out, err := h.service.Lookup(r.Context(), req.BookingRef)
	if err != nil {
		h.writeError(w, "lookup", err)
		return
	}
	h.metrics.ObserveBooking("lookup", "ok")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "booking": out})
}

// Cancel handles POST /booking/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if !h.decode(w, r, "cancel", &req) {
		return
	}
	if err := h.service.Cancel(r.Context(), req); err != nil {
		h.writeError(w, "cancel", err)
		return
	}
	h.metrics.ObserveBooking("cancel", "ok")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": cancelledMessage})
}

// Reschedule handles POST /booking/reschedule.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if !h.decode(w, r, "reschedule", &req) {
		return
	}
	if err := h.service.Reschedule(r.Context(), req); err != nil {
		h.writeError(w, "reschedule", err)
		return
	}
	h.metrics.ObserveBooking("reschedule", "ok")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": rescheduledMessage})
}

// decode reads the body, rejects PHI and unmarshals into dst. It writes the
// error response and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, op string, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		h.metrics.ObserveBooking(op, "invalid")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request data", "details": []string{"body must be a JSON object"}})
		return false
	}
	if res := phi.ScanObject(raw, phi.ExemptValues(phiExemptKeys...)); !res.IsValid {
		h.metrics.ObserveBooking(op, "phi_blocked")
		h.metrics.ObservePHI("booking", res.Categories())
		h.logger.Warn("booking request rejected for phi", "operation", op, "categories", res.Categories())
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "PHI detected in request", "violations": res.Categories()})
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		h.metrics.ObserveBooking(op, "invalid")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request data", "details": []string{strings.TrimPrefix(err.Error(), "json: ")}})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		h.metrics.ObserveBooking(op, "invalid")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request data", "details": verr.Details})
	case errors.Is(err, ErrExpired):
		h.metrics.ObserveBooking(op, "expired")
		writeJSON(w, http.StatusGone, map[string]string{"error": "Booking reference has expired"})
	case errors.Is(err, ErrNotFound):
		h.metrics.ObserveBooking(op, "not_found")
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Invalid or expired booking reference"})
	default:
		h.metrics.ObserveBooking(op, "error")
		h.logger.Error("booking request failed", "operation", op, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
