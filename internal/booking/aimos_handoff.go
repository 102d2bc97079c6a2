package booking

import (
	"context"
	"fmt"

	"github.com/aim-injury/aim-intake/internal/aimos"
)

// SelfBookMessage is shown after a self-booked request is sent on.
const SelfBookMessage = "Your booking request has been sent to our team. You'll receive confirmation shortly."

// BookingConfirmer is the AIM OS call used for self-booked patients.
type BookingConfirmer interface {
	ConfirmBooking(ctx context.Context, confirmation aimos.BookingConfirmation) (aimos.Status, error)
}

// AIMOSAdapter forwards self-booked leads to AIM OS.
type AIMOSAdapter struct {
	client BookingConfirmer
}

func NewAIMOSAdapter(client BookingConfirmer) *AIMOSAdapter {
	return &AIMOSAdapter{client: client}
}

func (a *AIMOSAdapter) Name() string { return "aimos" }

func (a *AIMOSAdapter) Handoff(ctx context.Context, lead LeadSummary) (*HandoffResult, error) {
	var preferred string
	if len(lead.PreferredTimes) > 0 {
		preferred = lead.PreferredTimes[0]
	}
	status, err := a.client.ConfirmBooking(ctx, aimos.BookingConfirmation{
		BookingID:    lead.LeadID,
		Location:     lead.LocationSlug,
		Time:         preferred,
		HandoffToken: lead.BookingRef,
	})
	result := &HandoffResult{Message: SelfBookMessage}
	if err != nil {
		return result, fmt.Errorf("booking: aimos confirm: %w", err)
	}
	result.Status = status.Status
	result.Forwarded = status.Status != aimos.StatusSkipped
	return result, nil
}
