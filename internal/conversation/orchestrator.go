package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aim-injury/aim-intake/internal/aimos"
	"github.com/aim-injury/aim-intake/internal/catalog"
	"github.com/aim-injury/aim-intake/internal/compliance"
	"github.com/aim-injury/aim-intake/internal/events"
	"github.com/aim-injury/aim-intake/internal/notify"
	"github.com/aim-injury/aim-intake/internal/observability/metrics"
	"github.com/aim-injury/aim-intake/internal/persona"
	"github.com/aim-injury/aim-intake/internal/phi"
	"github.com/aim-injury/aim-intake/internal/reviews"
	"github.com/aim-injury/aim-intake/pkg/logging"
)

var tracer = otel.Tracer("aim.internal.conversation")

// SafeExitMessage replaces replies the output guard blocks.
const SafeExitMessage = "I want to make sure this is handled properly. Let me connect you with our team at %s."

// PersonaTracker loads and updates the session persona.
type PersonaTracker interface {
	Initialize(ctx context.Context, sessionID string) persona.Record
	TrackIntent(ctx context.Context, sessionID, intent string) persona.Record
}

// ContextSource supplies downstream eligibility guidance.
type ContextSource interface {
	GetAIContext(ctx context.Context, personaCode, program string) (aimos.AIContext, error)
}

// ComplianceAuditor records compliance-relevant chat events.
type ComplianceAuditor interface {
	LogPHIRedacted(ctx context.Context, sessionID string, categories []string) error
	LogEscalation(ctx context.Context, sessionID string, reasons []string, intent string) error
	LogResponseModified(ctx context.Context, sessionID, modification string) error
}

// EscalationNotifier tells the team a conversation needs a human.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, e notify.Escalation) error
}

// EventRecorder appends chat events to the event log.
type EventRecorder interface {
	Track(ctx context.Context, evt events.Tracked) error
	Audit(ctx context.Context, eventType string, data map[string]any)
}

// Request is one inbound chat message.
type Request struct {
	SessionID      string
	Message        string
	History        []ChatMessage
	ServiceName    string
	ServiceContext string
	PersonaHint    string
}

// OrchestratorConfig wires the orchestrator's collaborators. Only Responder
// is required.
type OrchestratorConfig struct {
	Responder    ChatResponder
	Personas     PersonaTracker
	Context      ContextSource
	Testimonials reviews.Store
	Log          LogStore
	Audit        ComplianceAuditor
	Disclaimer   *compliance.DisclaimerService
	Notifier     EscalationNotifier
	Events       EventRecorder
	Catalog      *catalog.Catalog
	Metrics      *metrics.Metrics
	Logger       *logging.Logger
}

// Orchestrator runs one chat turn end to end: PHI scrubbing, context
// gathering, the responder, output checks and bookkeeping.
type Orchestrator struct {
	cfg OrchestratorConfig
	now func() time.Time
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Responder == nil {
		panic("conversation: responder cannot be nil")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Orchestrator{cfg: cfg, now: time.Now}
}

// Respond never returns an error; responder failures become FailureResponse.
func (o *Orchestrator) Respond(ctx context.Context, req Request) Response {
	ctx, span := tracer.Start(ctx, "conversation.respond")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", req.SessionID))

	message := o.scrub(ctx, req.SessionID, req.Message)

	var rec *persona.Record
	current := persona.Undetermined
	if o.cfg.Personas != nil && req.SessionID != "" {
		r := o.cfg.Personas.Initialize(ctx, req.SessionID)
		rec = &r
		current = r.PersonaType
	}

	pc := PromptContext{
		Persona:        rec,
		ServiceName:    req.ServiceName,
		ServiceDetails: o.scrub(ctx, req.SessionID, req.ServiceContext),
		PersonaHint:    req.PersonaHint,
	}
	if current != persona.Undetermined && o.cfg.Context != nil {
		aiCtx, err := o.cfg.Context.GetAIContext(ctx, current.Code(), req.ServiceName)
		switch {
		case err == nil:
			pc.AIMOS = &aiCtx
		case !errors.Is(err, aimos.ErrNotConfigured):
			o.cfg.Logger.Warn("aimos context unavailable", "session_id", req.SessionID, "error", err)
		}
	}
	if ShowsHesitation(message) || current != persona.Undetermined {
		pc.Testimonials = o.testimonials(ctx, current)
	}

	history := make([]ChatMessage, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, ChatMessage{Role: m.Role, Content: phi.Sanitize(m.Content)})
	}

	responder := o.cfg.Responder.Name()
	outcome := "ok"
	resp, err := o.cfg.Responder.Respond(ctx, Turn{
		SessionID: req.SessionID,
		Message:   message,
		History:   history,
		Persona:   current,
		Context:   pc,
	})
	if err != nil {
		span.RecordError(err)
		o.cfg.Logger.Error("chat responder failed", "session_id", req.SessionID, "responder", responder, "error", err)
		resp = FailureResponse(o.cfg.Catalog)
		outcome = "failed"
	}

	if guard := ScanOutput(resp.Message); guard.Blocked {
		o.cfg.Logger.Warn("chat reply blocked", "session_id", req.SessionID, "reasons", guard.Reasons)
		resp.Message = fmt.Sprintf(SafeExitMessage, o.cfg.Catalog.Contact.PhoneDisplay)
		resp.SuggestedActions = []SuggestedAction{phoneAction("Call Us", o.cfg.Catalog.Contact.PhoneDisplay)}
		if o.cfg.Audit != nil {
			_ = o.cfg.Audit.LogResponseModified(ctx, req.SessionID, "output_guard:"+strings.Join(guard.Reasons, ","))
		}
		outcome = "blocked"
	}

	resp.Message = o.cfg.Disclaimer.Apply(ctx, resp.Message, compliance.DisclaimerOptions{
		SessionID:      req.SessionID,
		IsFirstMessage: firstReply(req.History),
	})

	if resp.Intent != "" && o.cfg.Personas != nil && req.SessionID != "" {
		r := o.cfg.Personas.TrackIntent(ctx, req.SessionID, resp.Intent)
		rec = &r
	}
	o.trackMessage(ctx, req.SessionID, resp, rec)

	if resp.ShouldEscalate {
		o.escalate(ctx, req.SessionID, resp, rec)
	}

	if o.cfg.Log != nil && req.SessionID != "" {
		now := o.now().UTC()
		turn := []LoggedMessage{
			{Role: ChatRoleUser, Content: message, Timestamp: now},
			{Role: ChatRoleAssistant, Content: resp.Message, Timestamp: now},
		}
		if err := o.cfg.Log.AppendTurn(ctx, req.SessionID, turn, resp.Intent, resp.ShouldEscalate); err != nil {
			o.cfg.Logger.Warn("failed to log chat turn", "session_id", req.SessionID, "error", err)
		}
	}
	o.cfg.Metrics.ObserveChat(responder, outcome)
	return resp
}

// scrub redacts PHI from the visitor's message and records what was removed.
func (o *Orchestrator) scrub(ctx context.Context, sessionID, message string) string {
	res := phi.ScanText(message)
	if res.IsValid {
		return message
	}
	cats := res.Categories()
	o.cfg.Logger.Warn("phi redacted from chat message", "session_id", sessionID, "categories", cats)
	o.cfg.Metrics.ObservePHI("chat", cats)
	if o.cfg.Audit != nil {
		if err := o.cfg.Audit.LogPHIRedacted(ctx, sessionID, cats); err != nil {
			o.cfg.Logger.Warn("failed to audit phi redaction", "session_id", sessionID, "error", err)
		}
	}
	return phi.Sanitize(message)
}

func (o *Orchestrator) testimonials(ctx context.Context, current persona.Type) []reviews.Review {
	if o.cfg.Testimonials == nil {
		return nil
	}
	f := reviews.Filter{Rating: 5, Limit: 2}
	if current != persona.Undetermined {
		f.Persona = string(current)
	}
	list, err := o.cfg.Testimonials.List(ctx, f)
	if err != nil {
		o.cfg.Logger.Warn("failed to load testimonials", "error", err)
		return nil
	}
	return list
}

func (o *Orchestrator) trackMessage(ctx context.Context, sessionID string, resp Response, rec *persona.Record) {
	if o.cfg.Events == nil || sessionID == "" {
		return
	}
	evt := events.Tracked{
		SessionID: sessionID,
		EventType: "ai_message",
		Data:      map[string]any{"intent": resp.Intent, "escalated": resp.ShouldEscalate},
	}
	if rec != nil {
		evt.PersonaCode = rec.PersonaType.Code()
		evt.PersonaConfidence = rec.Scores.Max()
	}
	if err := o.cfg.Events.Track(ctx, evt); err != nil {
		o.cfg.Logger.Warn("failed to record chat event", "session_id", sessionID, "error", err)
	}
}

func (o *Orchestrator) escalate(ctx context.Context, sessionID string, resp Response, rec *persona.Record) {
	for _, reason := range resp.EscalationReasons {
		o.cfg.Metrics.ObserveEscalation(reason)
	}
	if o.cfg.Audit != nil {
		if err := o.cfg.Audit.LogEscalation(ctx, sessionID, resp.EscalationReasons, resp.Intent); err != nil {
			o.cfg.Logger.Warn("failed to audit escalation", "session_id", sessionID, "error", err)
		}
	}
	code := persona.Undetermined.Code()
	if rec != nil {
		code = rec.PersonaType.Code()
	}
	if o.cfg.Events != nil {
		o.cfg.Events.Audit(ctx, events.TypeChatEscalated, map[string]any{
			"session_id": sessionID,
			"reasons":    resp.EscalationReasons,
			"intent":     resp.Intent,
			"persona":    code,
		})
	}
	if o.cfg.Notifier != nil {
		err := o.cfg.Notifier.NotifyEscalation(ctx, notify.Escalation{
			SessionID: sessionID,
			Reasons:   resp.EscalationReasons,
			Intent:    resp.Intent,
			Persona:   code,
			At:        o.now().UTC(),
		})
		if err != nil {
			o.cfg.Logger.Warn("failed to notify escalation", "session_id", sessionID, "error", err)
		}
	}
}

// firstReply reports whether the assistant has not yet spoken in this session.
func firstReply(history []ChatMessage) bool {
	for _, m := range history {
		if m.Role == ChatRoleAssistant {
			return false
		}
	}
	return true
}
