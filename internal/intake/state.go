// Package intake runs the conversational patient intake: a fixed sequence of
// questions that fills an intake submission, persists drafts along the way and
// optionally books a first appointment once the form is submitted.
package intake

import "time"

// Step is a state of the intake conversation.
type Step string

const (
	StepWelcome             Step = "welcome"
	StepPatientName         Step = "patient_name"
	StepPatientContact      Step = "patient_contact"
	StepInjuryType          Step = "injury_type"
	StepInjuryDetails       Step = "injury_details"
	StepInsuranceDetails    Step = "insurance_details"
	StepMedicalHistory      Step = "medical_history"
	StepConsent             Step = "consent"
	StepReview              Step = "review"
	StepBookingLocation     Step = "booking_location"
	StepBookingConfirmation Step = "booking_confirmation"
	StepComplete            Step = "complete"
)

var progress = map[Step]int{
	StepWelcome:             0,
	StepPatientName:         10,
	StepPatientContact:      20,
	StepInjuryType:          35,
	StepInjuryDetails:       50,
	StepInsuranceDetails:    70,
	StepMedicalHistory:      80,
	StepConsent:             90,
	StepReview:              92,
	StepBookingLocation:     95,
	StepBookingConfirmation: 98,
	StepComplete:            100,
}

// Progress returns the completion percentage shown for a step.
func (s Step) Progress() int {
	return progress[s]
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	_, ok := progress[s]
	return ok
}

// Insurance classifications derived from the injury description.
const (
	InsuranceWCB     = "wcb"
	InsuranceMVA     = "mva"
	InsurancePrivate = "private"
)

// Submission statuses owned by this service. AIM OS moves submissions on to
// assigned, scheduled and completed.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
)

type PatientData struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type InjuryData struct {
	InjuryType string `json:"injury_type,omitempty"`
	InjuryDate string `json:"injury_date,omitempty"`
}

type InsuranceData struct {
	InsuranceType      string `json:"insurance_type,omitempty"`
	WCBClaim           string `json:"wcb_claim,omitempty"`
	MVAClaim           string `json:"mva_claim,omitempty"`
	HasPrivateCoverage *bool  `json:"has_private_coverage,omitempty"`
	InsuranceCompany   string `json:"insurance_company,omitempty"`
}

type MedicalHistory struct {
	CurrentMedications string `json:"current_medications,omitempty"`
}

type ConsentData struct {
	PrivacyConsent       bool `json:"privacy_consent"`
	TreatmentConsent     bool `json:"treatment_consent"`
	CommunicationConsent bool `json:"communication_consent"`
}

// Collected holds every answer gathered so far, grouped the way submissions
// are stored.
type Collected struct {
	Patient   PatientData    `json:"patient_data"`
	Injury    InjuryData     `json:"injury_data"`
	Insurance InsuranceData  `json:"insurance_data"`
	Medical   MedicalHistory `json:"medical_history"`
	Consent   ConsentData    `json:"consent_data"`
}

// Session is the server-side state of one intake conversation.
type Session struct {
	ID           string    `json:"id"`
	Step         Step      `json:"step"`
	Data         Collected `json:"data"`
	SubmissionID string    `json:"submission_id,omitempty"`
	BookingRef   string    `json:"booking_ref,omitempty"`
	LocationSlug string    `json:"location_slug,omitempty"`
	LocationName string    `json:"location_name,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSession starts a conversation at the welcome step.
func NewSession(id string) *Session {
	return &Session{ID: id, Step: StepWelcome, UpdatedAt: time.Now().UTC()}
}

// Complete reports whether the conversation has finished.
func (s *Session) Complete() bool {
	return s.Step == StepComplete
}
