// Package booking issues booking references for public leads and hands the
// lead to whoever books it: AIM OS for self-booked patients, the intake team
// for everything else.
package booking

import (
	"context"
	"time"
)

// LeadSummary is what a handoff adapter needs to act on a new lead. It holds
// contact details and scheduling preferences only.
type LeadSummary struct {
	LeadID         string
	BookingRef     string
	Persona        string
	Program        string
	LocationSlug   string
	LocationName   string
	BookingMode    string
	Urgency        string
	ContactMethod  string
	ContactValue   string
	PreferredTimes []string
	Notes          string
	CollectedAt    time.Time
}

// HandoffResult is the outcome of a handoff.
type HandoffResult struct {
	// Forwarded reports whether the downstream system accepted the lead.
	Forwarded bool
	// Status is the downstream status string, if any.
	Status string
	// Message is shown to the visitor.
	Message string
}

// Adapter hands a confirmed lead to the party that completes the booking.
type Adapter interface {
	Name() string
	Handoff(ctx context.Context, lead LeadSummary) (*HandoffResult, error)
}
