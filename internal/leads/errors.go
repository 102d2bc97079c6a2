package leads

import "errors"

var (
	// ErrMissingContact is returned when the contact value is blank.
	ErrMissingContact = errors.New("leads: contact_value is required")

	// ErrInvalidContactMethod is returned for an unknown contact method.
	ErrInvalidContactMethod = errors.New("leads: contact_method must be phone, email or either")

	// ErrMissingPersona is returned when a lead has no persona.
	ErrMissingPersona = errors.New("leads: persona is required")

	// ErrInvalidOrgRequest is returned when an organisation request fails validation.
	ErrInvalidOrgRequest = errors.New("leads: invalid organisation request")

	// ErrLeadNotFound is returned when a lead is not found.
	ErrLeadNotFound = errors.New("leads: lead not found")
)
