package leads

import (
	"fmt"
	"strings"
	"time"
)

// Lead statuses.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusCancelled = "cancelled"
)

// Booking modes decide who owns the next step after a lead is captured.
const (
	ModePatientSelfBook  = "PATIENT_SELF_BOOK"
	ModeEmployerConsult  = "EMPLOYER_CONSULT"
	ModeInsurerReferral  = "INSURER_REFERRAL"
	ModeCallbackRequired = "CALLBACK_REQUIRED"
)

// QualifiedBookNow marks leads that came through an explicit booking request.
const QualifiedBookNow = "QUALIFIED_BOOK_NOW"

var (
	contactMethods = map[string]bool{"phone": true, "email": true, "either": true}
	bookingModes   = map[string]bool{ModePatientSelfBook: true, ModeEmployerConsult: true, ModeInsurerReferral: true, ModeCallbackRequired: true}
	urgencies      = map[string]bool{"low": true, "medium": true, "high": true}
)

// Lead is a public booking request. It carries contact details only, never
// clinical information.
type Lead struct {
	ID                 string    `json:"id"`
	Persona            string    `json:"persona"`
	ProgramInterest    []string  `json:"program_interest"`
	LocationSlug       string    `json:"location_slug"`
	Urgency            string    `json:"urgency"`
	ContactMethod      string    `json:"contact_method"`
	ContactValue       string    `json:"contact_value"`
	Status             string    `json:"status"`
	BookingMode        string    `json:"booking_mode"`
	PreferredTimes     []string  `json:"preferred_times"`
	Notes              string    `json:"notes,omitempty"`
	QualificationState string    `json:"qualification_state"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreateLeadRequest is the validated input for a new lead.
type CreateLeadRequest struct {
	Persona        string
	Program        string
	LocationSlug   string
	Urgency        string
	ContactMethod  string
	ContactValue   string
	BookingMode    string
	PreferredTimes []string
	Notes          string
}

// Validate checks required fields and enums and fills defaults.
func (r *CreateLeadRequest) Validate(defaultLocation string) error {
	r.Persona = strings.TrimSpace(r.Persona)
	r.ContactValue = strings.TrimSpace(r.ContactValue)
	if r.Persona == "" {
		return ErrMissingPersona
	}
	if !contactMethods[r.ContactMethod] {
		return ErrInvalidContactMethod
	}
	if r.ContactValue == "" {
		return ErrMissingContact
	}
	if r.BookingMode == "" {
		r.BookingMode = ModePatientSelfBook
	} else if !bookingModes[r.BookingMode] {
		return fmt.Errorf("leads: unknown booking_mode %q", r.BookingMode)
	}
	if r.Urgency == "" {
		r.Urgency = "low"
	} else if !urgencies[r.Urgency] {
		return fmt.Errorf("leads: unknown urgency %q", r.Urgency)
	}
	if strings.TrimSpace(r.LocationSlug) == "" {
		r.LocationSlug = defaultLocation
	}
	return nil
}

func (r *CreateLeadRequest) newLead(id string, now time.Time) *Lead {
	var programs []string
	if r.Program != "" {
		programs = []string{r.Program}
	}
	return &Lead{
		ID:                 id,
		Persona:            r.Persona,
		ProgramInterest:    programs,
		LocationSlug:       r.LocationSlug,
		Urgency:            r.Urgency,
		ContactMethod:      r.ContactMethod,
		ContactValue:       r.ContactValue,
		Status:             StatusNew,
		BookingMode:        r.BookingMode,
		PreferredTimes:     append([]string(nil), r.PreferredTimes...),
		Notes:              r.Notes,
		QualificationState: QualifiedBookNow,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Update changes a lead's status and notes. PreferredTimes replaces the
// stored list when non-nil.
type Update struct {
	Status         string
	Notes          string
	PreferredTimes []string
}

// OrgRequest is an employer or insurer enquiry.
type OrgRequest struct {
	ID                 string    `json:"id"`
	OrgType            string    `json:"org_type"`
	OrgName            string    `json:"org_name"`
	Role               string    `json:"role,omitempty"`
	Intent             string    `json:"intent"`
	VolumeRange        string    `json:"volume_range,omitempty"`
	LocationPreference string    `json:"location_preference,omitempty"`
	ContactMethod      string    `json:"contact_method"`
	ContactValue       string    `json:"contact_value"`
	ContactWindow      string    `json:"contact_window,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	Persona            string    `json:"persona"`
	Industry           string    `json:"industry,omitempty"`
	EmployeeCountRange string    `json:"employee_count_range,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
}

var (
	orgTypes   = map[string]bool{"EMPLOYER": true, "INSURER": true}
	orgIntents = map[string]bool{"RTW_PROGRAM": true, "INJURY_PREVENTION": true, "REFERRAL": true, "REPORTING": true, "CONSULTATION": true}
	orgPersona = map[string]bool{"EMP": true, "INS": true}
)

// Validate returns one message per invalid field.
func (o *OrgRequest) Validate() []string {
	var problems []string
	if !orgTypes[o.OrgType] {
		problems = append(problems, "org_type must be EMPLOYER or INSURER")
	}
	if strings.TrimSpace(o.OrgName) == "" {
		problems = append(problems, "org_name is required")
	}
	if !orgIntents[o.Intent] {
		problems = append(problems, "intent must be one of RTW_PROGRAM, INJURY_PREVENTION, REFERRAL, REPORTING, CONSULTATION")
	}
	if !contactMethods[o.ContactMethod] {
		problems = append(problems, "contact_method must be phone, email or either")
	}
	if strings.TrimSpace(o.ContactValue) == "" {
		problems = append(problems, "contact_value is required")
	}
	if !orgPersona[o.Persona] {
		problems = append(problems, "persona must be EMP or INS")
	}
	return problems
}
