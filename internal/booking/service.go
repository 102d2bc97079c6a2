package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aim-injury/aim-intake/internal/catalog"
	"github.com/aim-injury/aim-intake/internal/events"
	"github.com/aim-injury/aim-intake/internal/leads"
	"github.com/aim-injury/aim-intake/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Auditor records booking events. Failures are the auditor's concern.
type Auditor interface {
	Audit(ctx context.Context, eventType string, data map[string]any)
}

// Cancel reasons accepted from visitors.
var cancelReasons = map[string]bool{
	"schedule_conflict": true,
	"feeling_better":    true,
	"need_clinic":       true,
	"other":             true,
}

// ConfirmRequest is a validated booking request.
type ConfirmRequest struct {
	Persona        string   `json:"persona"`
	Program        string   `json:"program,omitempty"`
	Location       string   `json:"location,omitempty"`
	PreferredTimes []string `json:"preferred_times,omitempty"`
	ContactMethod  string   `json:"contact_method"`
	ContactValue   string   `json:"contact_value"`
	BookingMode    string   `json:"booking_mode,omitempty"`
	Urgency        string   `json:"urgency,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	// CreatedVia records the entry point (ai_chat, ai_intake, web_form).
	CreatedVia string `json:"-"`
}

// Confirmation is returned for a newly created booking request.
type Confirmation struct {
	BookingRef    string    `json:"booking_ref"`
	LeadID        string    `json:"-"`
	ExpiresAt     time.Time `json:"expires_at"`
	Message       string    `json:"message"`
	HandoffStatus string    `json:"status,omitempty"`
}

// Lookup is the public view of a booking reference.
type Lookup struct {
	BookingRef string         `json:"booking_ref"`
	Status     TokenStatus    `json:"status"`
	Location   string         `json:"location,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
	Metadata   map[string]any `json:"metadata"`
}

// CancelRequest cancels a pending booking.
type CancelRequest struct {
	BookingRef   string `json:"booking_ref"`
	CancelReason string `json:"cancel_reason,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// RescheduleRequest asks the team to move a pending booking.
type RescheduleRequest struct {
	BookingRef     string   `json:"booking_ref"`
	NewTime        string   `json:"new_time,omitempty"`
	PreferredTimes []string `json:"preferred_times,omitempty"`
}

// Options tune a Service.
type Options struct {
	TokenTTL time.Duration
	// SelfBook handles PATIENT_SELF_BOOK requests; Manual handles the rest.
	SelfBook Adapter
	Manual   Adapter
	Catalog  *catalog.Catalog
	Now      func() time.Time
}

// Service implements the booking gateway: lead capture, reference issue and
// the reference lifecycle.
type Service struct {
	leads    leads.Repository
	tokens   TokenStore
	audit    Auditor
	selfBook Adapter
	manual   Adapter
	catalog  *catalog.Catalog
	ttl      time.Duration
	now      func() time.Time
	logger   *logging.Logger
	tracer   trace.Tracer
}

func NewService(leadRepo leads.Repository, tokens TokenStore, audit Auditor, opts Options, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Manual == nil {
		opts.Manual = NewManualHandoffAdapter(nil, "", logger)
	}
	return &Service{
		leads:    leadRepo,
		tokens:   tokens,
		audit:    audit,
		selfBook: opts.SelfBook,
		manual:   opts.Manual,
		catalog:  opts.Catalog,
		ttl:      opts.TokenTTL,
		now:      opts.Now,
		logger:   logger,
		tracer:   otel.Tracer("aim.internal.booking"),
	}
}

// Confirm records the lead, issues a reference and hands the lead on.
// Lead and token writes are critical; audit and handoff failures are not.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "booking.confirm")
	defer span.End()

	leadReq := &leads.CreateLeadRequest{
		Persona:        req.Persona,
		Program:        strings.TrimSpace(req.Program),
		LocationSlug:   strings.TrimSpace(req.Location),
		Urgency:        req.Urgency,
		ContactMethod:  req.ContactMethod,
		ContactValue:   req.ContactValue,
		BookingMode:    req.BookingMode,
		PreferredTimes: req.PreferredTimes,
		Notes:          req.Notes,
	}
	if err := leadReq.Validate(s.catalog.MainHub().Slug); err != nil {
		return nil, invalid(strings.TrimPrefix(err.Error(), "leads: "))
	}
	span.SetAttributes(
		attribute.String("booking.mode", leadReq.BookingMode),
		attribute.String("booking.persona", leadReq.Persona),
	)

	lead, err := s.leads.Create(ctx, leadReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: create lead: %w", err)
	}

	createdVia := req.CreatedVia
	if createdVia == "" {
		createdVia = "ai_chat"
	}
	now := s.now().UTC()
	tok := Token{
		BookingRef: NewRef(),
		LeadID:     lead.ID,
		Status:     TokenActive,
		ActionType: "booking",
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
		Metadata: map[string]any{
			"persona":     leadReq.Persona,
			"location":    leadReq.LocationSlug,
			"created_via": createdVia,
		},
	}
	if err := s.tokens.Create(ctx, tok); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: issue token: %w", err)
	}

	s.record(ctx, events.TypeBookingRequested, map[string]any{
		"lead_id":      lead.ID,
		"booking_ref":  tok.BookingRef,
		"persona":      leadReq.Persona,
		"location":     leadReq.LocationSlug,
		"booking_mode": leadReq.BookingMode,
	})

	adapter := s.manual
	if leadReq.BookingMode == leads.ModePatientSelfBook && s.selfBook != nil {
		adapter = s.selfBook
	}
	summary := LeadSummary{
		LeadID:         lead.ID,
		BookingRef:     tok.BookingRef,
		Persona:        leadReq.Persona,
		Program:        leadReq.Program,
		LocationSlug:   leadReq.LocationSlug,
		BookingMode:    leadReq.BookingMode,
		Urgency:        leadReq.Urgency,
		ContactMethod:  leadReq.ContactMethod,
		ContactValue:   leadReq.ContactValue,
		PreferredTimes: leadReq.PreferredTimes,
		Notes:          leadReq.Notes,
		CollectedAt:    now,
	}
	if loc, ok := s.catalog.LocationBySlug(leadReq.LocationSlug); ok {
		summary.LocationName = loc.Name
	}

	out := &Confirmation{BookingRef: tok.BookingRef, LeadID: lead.ID, ExpiresAt: tok.ExpiresAt}
	res, err := adapter.Handoff(ctx, summary)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("booking handoff failed", "adapter", adapter.Name(), "booking_ref", tok.BookingRef, "error", err)
	}
	if res != nil {
		out.Message = res.Message
		out.HandoffStatus = res.Status
	}
	if out.Message == "" {
		out.Message = TeamFollowUpMessage
	}
	s.logger.Info("booking request confirmed", "booking_ref", tok.BookingRef, "mode", leadReq.BookingMode, "adapter", adapter.Name())
	return out, nil
}

// Lookup returns the public view of an active reference.
func (s *Service) Lookup(ctx context.Context, ref string) (*Lookup, error) {
	ctx, span := s.tracer.Start(ctx, "booking.lookup")
	defer span.End()

	tok, err := s.activeToken(ctx, ref)
	if err != nil {
		return nil, err
	}
	out := &Lookup{
		BookingRef: tok.BookingRef,
		Status:     tok.Status,
		CreatedAt:  tok.CreatedAt,
		ExpiresAt:  tok.ExpiresAt,
		Metadata:   tok.Metadata,
	}
	if lead, err := s.leads.GetByID(ctx, tok.LeadID); err == nil {
		out.Location = lead.LocationSlug
	} else {
		s.logger.Warn("booking lookup: lead missing", "booking_ref", tok.BookingRef, "error", err)
	}
	s.record(ctx, events.TypeBookingLookup, map[string]any{"booking_ref": tok.BookingRef, "lead_id": tok.LeadID})
	return out, nil
}

// Cancel cancels the lead and retires its reference.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) error {
	ctx, span := s.tracer.Start(ctx, "booking.cancel")
	defer span.End()

	if req.CancelReason != "" && !cancelReasons[req.CancelReason] {
		return invalid("cancel_reason must be one of schedule_conflict, feeling_better, need_clinic, other")
	}
	tok, err := s.activeToken(ctx, req.BookingRef)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	reason := req.CancelReason
	if reason == "" {
		reason = "not specified"
	}
	notes := strings.TrimSpace(fmt.Sprintf("Cancelled at %s. Reason: %s. %s", now.Format(time.RFC3339), reason, req.Notes))
	if err := s.leads.Update(ctx, tok.LeadID, leads.Update{Status: leads.StatusCancelled, Notes: notes}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: cancel lead: %w", err)
	}

	meta := copyMetadata(tok.Metadata)
	meta["cancelled_at"] = now.Format(time.RFC3339)
	if req.CancelReason != "" {
		meta["cancel_reason"] = req.CancelReason
	}
	if req.Notes != "" {
		meta["notes"] = req.Notes
	}
	if err := s.tokens.Transition(ctx, tok.BookingRef, TokenCancelled, meta); err != nil {
		return s.transitionError(err)
	}

	s.record(ctx, events.TypeBookingCancelled, map[string]any{
		"booking_ref":   tok.BookingRef,
		"lead_id":       tok.LeadID,
		"cancel_reason": req.CancelReason,
	})
	return nil
}

// Reschedule records new preferred times and marks the reference used; the
// team confirms the new time by phone.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) error {
	ctx, span := s.tracer.Start(ctx, "booking.reschedule")
	defer span.End()

	tok, err := s.activeToken(ctx, req.BookingRef)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	detail := "Preferred times updated"
	if req.NewTime != "" {
		detail = "Requested time: " + req.NewTime
	}
	preferred := req.PreferredTimes
	if preferred == nil {
		preferred = []string{}
	}
	upd := leads.Update{
		Status:         leads.StatusContacted,
		Notes:          fmt.Sprintf("Reschedule requested at %s. %s", now.Format(time.RFC3339), detail),
		PreferredTimes: preferred,
	}
	if err := s.leads.Update(ctx, tok.LeadID, upd); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: reschedule lead: %w", err)
	}

	meta := copyMetadata(tok.Metadata)
	meta["reschedule_requested_at"] = now.Format(time.RFC3339)
	if req.NewTime != "" {
		meta["new_time"] = req.NewTime
	}
	if req.PreferredTimes != nil {
		meta["preferred_times"] = req.PreferredTimes
	}
	if err := s.tokens.Transition(ctx, tok.BookingRef, TokenUsed, meta); err != nil {
		return s.transitionError(err)
	}

	s.record(ctx, events.TypeBookingRescheduleRequested, map[string]any{
		"booking_ref":     tok.BookingRef,
		"lead_id":         tok.LeadID,
		"new_time":        req.NewTime,
		"preferred_times": req.PreferredTimes,
	})
	return nil
}

// activeToken resolves ref to an active, unexpired token. A token past its
// expiry yields ErrExpired on every call; the first such call also flips a
// still-active token to expired.
func (s *Service) activeToken(ctx context.Context, ref string) (Token, error) {
	ref = NormalizeRef(ref)
	if ref == "" {
		return Token{}, invalid("booking_ref is required")
	}
	tok, err := s.tokens.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Token{}, ErrNotFound
		}
		return Token{}, fmt.Errorf("booking: load token: %w", err)
	}
	switch tok.Status {
	case TokenActive:
		if tok.Expired(s.now()) {
			flipped, err := s.tokens.Expire(ctx, ref)
			if err != nil {
				s.logger.Warn("booking: expire token failed", "booking_ref", ref, "error", err)
			} else if flipped {
				s.logger.Info("booking reference expired", "booking_ref", ref)
			}
			return Token{}, ErrExpired
		}
		return tok, nil
	case TokenExpired:
		return Token{}, ErrExpired
	default:
		return Token{}, ErrNotFound
	}
}

func (s *Service) transitionError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("booking: update token: %w", err)
}

func (s *Service) record(ctx context.Context, eventType string, data map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Audit(ctx, eventType, data)
}
