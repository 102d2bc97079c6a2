package aimos

// Urgency levels accepted by AIM OS.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Event is a behavioural event forwarded for case-management analytics.
type Event struct {
	EventID         string         `json:"event_id"`
	Timestamp       string         `json:"timestamp"`
	SessionID       string         `json:"session_id"`
	EventType       string         `json:"event_type"`
	Persona         string         `json:"persona"`
	Confidence      float64        `json:"confidence"`
	ProgramInterest []string       `json:"program_interest,omitempty"`
	LocationSlug    string         `json:"location_slug,omitempty"`
	Urgency         string         `json:"urgency,omitempty"`
	Source          string         `json:"source,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// ForwardedEventTypes are the event types AIM OS accepts.
var ForwardedEventTypes = map[string]bool{
	"page_view":         true,
	"cta_click":         true,
	"ai_message":        true,
	"form_submit":       true,
	"booking_confirmed": true,
}

// IntakeHandoff starts an intake case downstream.
type IntakeHandoff struct {
	HandoffToken string `json:"handoff_token"`
	Persona      string `json:"persona"`
	Program      string `json:"program,omitempty"`
	Location     string `json:"location,omitempty"`
	Urgency      string `json:"urgency"`
	ContactPref  string `json:"contact_pref"`
	Notes        string `json:"notes,omitempty"`
}

// IntakeResponse tells the visitor what happens next.
type IntakeResponse struct {
	IntakeID string `json:"intake_id"`
	NextStep string `json:"next_step"`
}

// Next steps returned by InitiateIntake.
const (
	NextStepSchedule     = "schedule"
	NextStepCallback     = "callback"
	NextStepClinicReview = "clinic_review"
)

// BookingConfirmation forwards a self-booked request.
type BookingConfirmation struct {
	BookingID    string `json:"booking_id"`
	Location     string `json:"location"`
	Time         string `json:"time"`
	HandoffToken string `json:"handoff_token"`
}

// AIContext carries downstream eligibility guidance for the chat assistant.
type AIContext struct {
	AllowedPrograms  []string `json:"allowed_programs"`
	EligibilityNotes string   `json:"eligibility_notes"`
	EscalationRules  []string `json:"escalation_rules"`
}

// Status is the generic acknowledgement body.
type Status struct {
	Status string `json:"status"`
}

// StatusSkipped is reported when the integration is not configured.
const StatusSkipped = "skipped"

// WebhookPayload is the inbound status notification.
type WebhookPayload struct {
	EventID  string `json:"event_id,omitempty"`
	Type     string `json:"type"`
	IntakeID string `json:"intake_id"`
	Status   string `json:"status"`
}

// Intake statuses AIM OS can report.
var IntakeStatuses = map[string]bool{
	"assigned":  true,
	"scheduled": true,
	"completed": true,
}
