package intake

import (
	"context"
	"fmt"
	"strings"

	"github.com/aim-injury/aim-intake/internal/booking"
	"github.com/aim-injury/aim-intake/internal/catalog"
	"github.com/aim-injury/aim-intake/internal/events"
	"github.com/aim-injury/aim-intake/internal/leads"
	"github.com/aim-injury/aim-intake/internal/observability/metrics"
	"github.com/aim-injury/aim-intake/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Booker books the first appointment once an intake is submitted.
type Booker interface {
	Confirm(ctx context.Context, req booking.ConfirmRequest) (*booking.Confirmation, error)
}

// Auditor records intake milestones.
type Auditor interface {
	Audit(ctx context.Context, eventType string, data map[string]any)
}

const (
	welcomeMessage = "Hello! I'm your AIM intake assistant. I'll guide you through our intake process step by step. This should take about 10-15 minutes. Ready to get started?"
	medicationsAsk = "are you currently taking any medications we should be aware of? (If none, type \"none\")"
	consentPrompt  = "Almost done! I need your consent for three things:\n\n" +
		"1. Privacy: We will handle your information according to privacy regulations\n" +
		"2. Treatment: You consent to receive physiotherapy treatment\n" +
		"3. Communication: We can contact you with appointment reminders\n\n" +
		"Do you consent to all of the above? (Type \"yes\" to consent)"
)

// Machine advances intake sessions one answer at a time. Each step validates
// the answer, writes the collected fields, picks the next step, emits its
// prompt and persists a draft when fields changed.
type Machine struct {
	submissions SubmissionStore
	booker      Booker
	catalog     *catalog.Catalog
	audit       Auditor
	metrics     *metrics.Metrics
	logger      *logging.Logger
	tracer      trace.Tracer
}

func NewMachine(submissions SubmissionStore, booker Booker, cat *catalog.Catalog, audit Auditor, m *metrics.Metrics, logger *logging.Logger) *Machine {
	if logger == nil {
		logger = logging.Default()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	return &Machine{
		submissions: submissions,
		booker:      booker,
		catalog:     cat,
		audit:       audit,
		metrics:     m,
		logger:      logger,
		tracer:      otel.Tracer("aim.internal.intake"),
	}
}

// Greeting is the opening prompt of every intake conversation.
func (m *Machine) Greeting() string {
	return welcomeMessage
}

// Handle applies one visitor answer to the session and returns the reply.
func (m *Machine) Handle(ctx context.Context, sess *Session, input string) string {
	ctx, span := m.tracer.Start(ctx, "intake.handle")
	defer span.End()

	from := sess.Step
	reply := m.step(ctx, sess, strings.TrimSpace(input))
	span.SetAttributes(
		attribute.String("intake.from", string(from)),
		attribute.String("intake.to", string(sess.Step)),
	)
	m.metrics.ObserveIntakeStep(string(from), sess.Step != from)
	return reply
}

func (m *Machine) step(ctx context.Context, sess *Session, input string) string {
	normalized := strings.ToLower(input)
	data := &sess.Data

	switch sess.Step {
	case StepWelcome:
		if containsAny(normalized, "yes", "ready", "start") {
			sess.Step = StepPatientName
			return "Great! Let's start with your basic information. What is your full name? (First and Last)"
		}
		return "No problem! Take your time. When you're ready, just type \"yes\" or \"start\" to begin."

	case StepPatientName:
		parts := strings.Fields(input)
		if len(parts) < 2 {
			return "Please provide both your first and last name (e.g., \"John Smith\")."
		}
		data.Patient.FirstName = parts[0]
		data.Patient.LastName = strings.Join(parts[1:], " ")
		sess.Step = StepPatientContact
		m.saveDraft(ctx, sess)
		return fmt.Sprintf("Thank you, %s. What is the best phone number to reach you?", data.Patient.FirstName)

	case StepPatientContact:
		if countDigits(input) < 10 {
			return "Please provide a valid phone number (e.g., 780-250-8188 or 7805550100)."
		}
		data.Patient.Phone = input
		sess.Step = StepInjuryType
		m.saveDraft(ctx, sess)
		return "Perfect! Now, what type of injury or issue brings you to AIM today? (e.g., work injury, car accident, sports injury, chronic pain)"

	case StepInjuryType:
		data.Injury.InjuryType = input
		data.Insurance.InsuranceType = ClassifyInsurance(input)
		sess.Step = StepInjuryDetails
		m.saveDraft(ctx, sess)
		switch data.Insurance.InsuranceType {
		case InsuranceWCB:
			return "I understand this is a work-related injury. When did this injury occur? (approximate date is fine)"
		case InsuranceMVA:
			return "I understand this is from a motor vehicle accident. When did the accident occur? (approximate date is fine)"
		default:
			return "Thank you for sharing. When did this injury or issue begin? (approximate date is fine)"
		}

	case StepInjuryDetails:
		data.Injury.InjuryDate = input
		sess.Step = StepInsuranceDetails
		m.saveDraft(ctx, sess)
		switch data.Insurance.InsuranceType {
		case InsuranceWCB:
			return "What is your WCB claim number? (If you don't have it yet, type \"pending\")"
		case InsuranceMVA:
			return "What is your insurance claim number? (If you don't have it yet, type \"pending\")"
		default:
			return "Do you have private health insurance that covers physiotherapy? (yes/no)"
		}

	case StepInsuranceDetails:
		return m.insuranceDetails(ctx, sess, input, normalized)

	case StepMedicalHistory:
		data.Medical.CurrentMedications = input
		sess.Step = StepConsent
		m.saveDraft(ctx, sess)
		return consentPrompt

	case StepConsent:
		if !containsAny(normalized, "yes", "consent", "agree") {
			return "We need your consent to proceed. Please type \"yes\" if you agree, or \"no\" if you have questions."
		}
		// One affirmative covers all three consents.
		data.Consent = ConsentData{PrivacyConsent: true, TreatmentConsent: true, CommunicationConsent: true}
		sess.Step = StepReview
		m.saveDraft(ctx, sess)
		return fmt.Sprintf("Perfect! Let me review what we have:\n\nName: %s %s\nPhone: %s\nInjury Type: %s\nDate: %s\nInsurance: %s\n\nIs this information correct? (Type \"yes\" to submit, or \"no\" to start over)",
			data.Patient.FirstName, data.Patient.LastName, data.Patient.Phone,
			data.Injury.InjuryType, data.Injury.InjuryDate, strings.ToUpper(data.Insurance.InsuranceType))

	case StepReview:
		if !strings.Contains(normalized, "yes") {
			sess.Data = Collected{}
			sess.Step = StepWelcome
			return "No problem! Let's start fresh. Ready to begin?"
		}
		if err := m.persist(ctx, sess, StatusSubmitted); err != nil {
			m.logger.Error("intake submission failed", "session_id", sess.ID, "error", err)
			return fmt.Sprintf("I'm sorry, there was an error submitting your intake. Please call us at %s for assistance.", m.catalog.Contact.PhoneDisplay)
		}
		m.record(ctx, events.TypeIntakeSubmitted, map[string]any{
			"session_id":     sess.ID,
			"submission_id":  sess.SubmissionID,
			"insurance_type": data.Insurance.InsuranceType,
		})
		sess.Step = StepBookingLocation
		return "✅ Your intake form has been submitted!\n\nNow, would you like to book your first appointment? We have the following locations:\n\n" +
			m.locationList() +
			"\n\nWhich location would you prefer? (Type the location name or \"skip\" to skip booking)"

	case StepBookingLocation:
		loc, ok := m.catalog.MatchLocation(input)
		if !ok && strings.Contains(normalized, "skip") {
			sess.Step = StepComplete
			return fmt.Sprintf("Your intake form has been submitted successfully!\n\nOur team will contact you at %s within 24 hours to schedule your first appointment.\n\nThank you for choosing Alberta Injury Management!", data.Patient.Phone)
		}
		if !ok {
			return "Please select a valid location:\n" + m.locationList() + "\n\nOr type \"skip\" to skip booking and have our team call you."
		}
		sess.LocationSlug = loc.Slug
		sess.LocationName = loc.Name
		sess.Step = StepBookingConfirmation
		return fmt.Sprintf("Great! I'll book your appointment at %s.\n\nConfirming your booking with:\n• Name: %s %s\n• Phone: %s\n• Location: %s\n• For: %s\n\nProceed with booking? (Type \"yes\" to confirm, or \"no\" to cancel)",
			loc.Name, data.Patient.FirstName, data.Patient.LastName, data.Patient.Phone, loc.Name, data.Injury.InjuryType)

	case StepBookingConfirmation:
		sess.Step = StepComplete
		if !strings.Contains(normalized, "yes") {
			return fmt.Sprintf("✅ Your intake form has been submitted!\n\nOur team will contact you at %s within 24 hours to schedule your appointment.\n\nThank you for choosing Alberta Injury Management!", data.Patient.Phone)
		}
		ref, err := m.book(ctx, sess)
		if err != nil {
			m.logger.Warn("intake booking failed", "session_id", sess.ID, "error", err)
			return "I encountered an issue booking your appointment. No worries - our team will contact you within 24 hours to schedule your first visit."
		}
		sess.BookingRef = ref
		return fmt.Sprintf("🎉 Your appointment has been booked!\n\nBooking Reference: %s\nLocation: %s\n\nYou'll receive a confirmation call or text within 24 hours.\n\nThank you for choosing Alberta Injury Management!", ref, sess.LocationName)

	case StepComplete:
		return fmt.Sprintf("Your intake is complete! If you need to make changes, please call us at %s.", m.catalog.Contact.PhoneDisplay)
	}

	m.logger.Warn("intake session in unknown step, restarting", "session_id", sess.ID, "step", sess.Step)
	sess.Step = StepWelcome
	return welcomeMessage
}

func (m *Machine) insuranceDetails(ctx context.Context, sess *Session, input, normalized string) string {
	ins := &sess.Data.Insurance
	switch {
	case ins.InsuranceType == InsuranceWCB:
		ins.WCBClaim = input
	case ins.InsuranceType == InsuranceMVA:
		ins.MVAClaim = input
	case ins.HasPrivateCoverage != nil && *ins.HasPrivateCoverage:
		ins.InsuranceCompany = input
	default:
		covered := strings.Contains(normalized, "yes")
		ins.HasPrivateCoverage = &covered
		if covered {
			m.saveDraft(ctx, sess)
			return "Great! What is the name of your insurance company?"
		}
		sess.Step = StepMedicalHistory
		m.saveDraft(ctx, sess)
		return "That's fine. Now, " + medicationsAsk
	}
	sess.Step = StepMedicalHistory
	m.saveDraft(ctx, sess)
	return "Thank you. Now, " + medicationsAsk
}

// saveDraft persists progress. Draft failures never block the conversation.
func (m *Machine) saveDraft(ctx context.Context, sess *Session) {
	if err := m.persist(ctx, sess, StatusDraft); err != nil {
		m.logger.Warn("failed to save intake draft", "session_id", sess.ID, "step", sess.Step, "error", err)
	}
}

func (m *Machine) persist(ctx context.Context, sess *Session, status string) error {
	if m.submissions == nil {
		return fmt.Errorf("intake: no submission store configured")
	}
	saved, err := m.submissions.Save(ctx, &Submission{
		ID:        sess.SubmissionID,
		SessionID: sess.ID,
		Collected: sess.Data,
		Status:    status,
	})
	if err != nil {
		return err
	}
	sess.SubmissionID = saved.ID
	return nil
}

func (m *Machine) book(ctx context.Context, sess *Session) (string, error) {
	if m.booker == nil {
		return "", fmt.Errorf("intake: booking is not configured")
	}
	conf, err := m.booker.Confirm(ctx, booking.ConfirmRequest{
		Persona:       BookingPersona(sess.Data.Insurance.InsuranceType),
		Location:      sess.LocationSlug,
		ContactMethod: "phone",
		ContactValue:  sess.Data.Patient.Phone,
		BookingMode:   leads.ModePatientSelfBook,
		Urgency:       "medium",
		Notes:         "AI Intake - " + sess.Data.Injury.InjuryType,
		CreatedVia:    "ai_intake",
	})
	if err != nil {
		return "", err
	}
	return conf.BookingRef, nil
}

func (m *Machine) locationList() string {
	lines := make([]string, 0, len(m.catalog.Locations))
	for _, loc := range m.catalog.Locations {
		lines = append(lines, "• "+loc.Name)
	}
	return strings.Join(lines, "\n")
}

func (m *Machine) record(ctx context.Context, eventType string, data map[string]any) {
	if m.audit != nil {
		m.audit.Audit(ctx, eventType, data)
	}
}

// ClassifyInsurance maps an injury description to its funding stream.
func ClassifyInsurance(description string) string {
	normalized := strings.ToLower(description)
	switch {
	case containsAny(normalized, "work", "wcb", "workplace"):
		return InsuranceWCB
	case containsAny(normalized, "car", "mva", "accident", "vehicle"):
		return InsuranceMVA
	default:
		return InsurancePrivate
	}
}

// BookingPersona is the persona code sent with an intake booking.
func BookingPersona(insuranceType string) string {
	switch insuranceType {
	case InsuranceWCB:
		return "IW"
	case InsuranceMVA:
		return "MVA"
	default:
		return "COLD"
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
