package events

import (
	"context"
	"fmt"
	"time"

	"github.com/aim-injury/aim-intake/internal/aimos"
	"github.com/aim-injury/aim-intake/pkg/logging"
	"github.com/google/uuid"
)

// DefaultLocationSlug is used when an event names no clinic.
const DefaultLocationSlug = "edmonton-main-hub"

// Recorder writes tracked events to the log and queues the ones AIM OS
// accepts for forwarding.
type Recorder struct {
	log    Log
	outbox Outbox
	logger *logging.Logger
	now    func() time.Time
}

func NewRecorder(log Log, outbox Outbox, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{log: log, outbox: outbox, logger: logger, now: time.Now}
}

// Track records a behaviour event. Failing to write the log is returned;
// failing to queue the forward is logged only.
func (r *Recorder) Track(ctx context.Context, evt Tracked) error {
	if err := r.log.Append(ctx, Entry{
		SessionID:       evt.SessionID,
		Type:            evt.EventType,
		Data:            evt.Data,
		PersonaSnapshot: evt.PersonaSnapshot,
	}); err != nil {
		return err
	}
	if r.outbox == nil || !aimos.ForwardedEventTypes[evt.EventType] {
		return nil
	}
	if _, err := r.outbox.Insert(ctx, evt.SessionID, OutboxTypeAIMOSEvent, r.toAIMOS(evt)); err != nil {
		r.logger.Warn("failed to queue aimos event", "session_id", evt.SessionID, "event_type", evt.EventType, "error", err)
	}
	return nil
}

// Audit appends a system event such as a booking mutation. Errors are logged
// and swallowed.
func (r *Recorder) Audit(ctx context.Context, eventType string, data map[string]any) {
	if err := r.log.Append(ctx, Entry{Type: eventType, Data: data}); err != nil {
		r.logger.Warn("failed to record audit event", "event_type", eventType, "error", err)
	}
}

func (r *Recorder) toAIMOS(evt Tracked) aimos.Event {
	out := aimos.Event{
		EventID:      uuid.NewString(),
		Timestamp:    r.now().UTC().Format(time.RFC3339),
		SessionID:    evt.SessionID,
		EventType:    evt.EventType,
		Persona:      evt.PersonaCode,
		Confidence:   evt.PersonaConfidence,
		LocationSlug: DefaultLocationSlug,
		Metadata:     evt.Data,
	}
	if out.Persona == "" {
		out.Persona = "COLD"
	}
	if evt.Data == nil {
		return out
	}
	if slug, ok := evt.Data["location_slug"].(string); ok && slug != "" {
		out.LocationSlug = slug
	}
	if urgency, ok := evt.Data["urgency"].(string); ok {
		out.Urgency = urgency
	}
	if source, ok := evt.Data["source"].(string); ok {
		out.Source = source
	}
	switch v := evt.Data["program_interest"].(type) {
	case string:
		out.ProgramInterest = []string{v}
	case []any:
		for _, item := range v {
			out.ProgramInterest = append(out.ProgramInterest, fmt.Sprint(item))
		}
	case []string:
		out.ProgramInterest = v
	}
	return out
}
