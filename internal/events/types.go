package events

import "time"

// Event types written to the event log.
const (
	TypeBookingRequested           = "booking_requested"
	TypeBookingCancelled           = "booking_cancelled"
	TypeBookingRescheduleRequested = "booking_reschedule_requested"
	TypeBookingLookup              = "booking_lookup"
	TypeOrgRequestSubmitted        = "org_request_submitted"
	TypeIntakeSubmitted            = "intake_submitted"
	TypeChatEscalated              = "chat_escalated"
)

// OutboxTypeAIMOSEvent marks outbox rows destined for AIM OS /events.
const OutboxTypeAIMOSEvent = "aimos.event.v1"

// Entry is one row of the append-only event log.
type Entry struct {
	SessionID       string         `json:"session_id,omitempty"`
	Type            string         `json:"event_type"`
	Data            map[string]any `json:"event_data"`
	PersonaSnapshot any            `json:"persona_snapshot,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Tracked is a site or chat behaviour event with the persona that was current
// when it was recorded.
type Tracked struct {
	SessionID         string
	EventType         string
	Data              map[string]any
	PersonaCode       string
	PersonaConfidence float64
	PersonaSnapshot   any
}
