package booking

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aim-injury/aim-intake/internal/notify"
	"github.com/aim-injury/aim-intake/pkg/logging"
)

// TeamFollowUpMessage is shown when the intake team completes the booking.
const TeamFollowUpMessage = "Your request has been submitted. Our team will contact you shortly."

// ManualHandoffAdapter emails the intake team a lead summary so they can call
// the visitor back. Used for employer, insurer and callback booking modes.
type ManualHandoffAdapter struct {
	sender notify.EmailSender
	to     string
	logger *logging.Logger
}

func NewManualHandoffAdapter(sender notify.EmailSender, to string, logger *logging.Logger) *ManualHandoffAdapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &ManualHandoffAdapter{sender: sender, to: to, logger: logger}
}

func (a *ManualHandoffAdapter) Name() string { return "manual" }

func (a *ManualHandoffAdapter) Handoff(ctx context.Context, lead LeadSummary) (*HandoffResult, error) {
	result := &HandoffResult{Message: TeamFollowUpMessage}
	if a.sender == nil || a.to == "" {
		a.logger.Warn("manual handoff: no notification address configured", "lead_id", lead.LeadID)
		return result, nil
	}
	msg := notify.EmailMessage{
		To:      a.to,
		Subject: fmt.Sprintf("New booking request %s (%s)", lead.BookingRef, valueOrNA(lead.BookingMode)),
		Body:    FormatLeadSummary(lead),
		HTML:    FormatLeadSummaryHTML(lead),
	}
	if err := a.sender.Send(ctx, msg); err != nil {
		a.logger.Error("manual handoff: failed to send email notification", "error", err, "lead_id", lead.LeadID)
		return result, fmt.Errorf("booking: manual handoff email: %w", err)
	}
	result.Forwarded = true
	result.Status = "notified"
	return result, nil
}

// FormatLeadSummary renders a plain-text summary for the intake team.
func FormatLeadSummary(lead LeadSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Booking Reference: %s\n", valueOrNA(lead.BookingRef))
	fmt.Fprintf(&b, "Persona: %s\n", valueOrNA(lead.Persona))
	fmt.Fprintf(&b, "Booking Mode: %s\n", valueOrNA(lead.BookingMode))
	fmt.Fprintf(&b, "Urgency: %s\n", valueOrNA(lead.Urgency))
	if lead.Program != "" {
		fmt.Fprintf(&b, "Program: %s\n", lead.Program)
	}
	fmt.Fprintf(&b, "Location: %s\n", valueOrNA(locationLabel(lead)))
	fmt.Fprintf(&b, "Contact (%s): %s\n", valueOrNA(lead.ContactMethod), valueOrNA(lead.ContactValue))
	if len(lead.PreferredTimes) > 0 {
		fmt.Fprintf(&b, "Preferred Times: %s\n", strings.Join(lead.PreferredTimes, ", "))
	}
	if lead.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", lead.Notes)
	}
	fmt.Fprintf(&b, "Received: %s\n", lead.CollectedAt.Format(time.RFC1123))
	return b.String()
}

// FormatLeadSummaryHTML renders the same summary as an HTML table.
func FormatLeadSummaryHTML(lead LeadSummary) string {
	rows := [][2]string{
		{"Booking Reference", valueOrNA(lead.BookingRef)},
		{"Persona", valueOrNA(lead.Persona)},
		{"Booking Mode", valueOrNA(lead.BookingMode)},
		{"Urgency", valueOrNA(lead.Urgency)},
	}
	if lead.Program != "" {
		rows = append(rows, [2]string{"Program", lead.Program})
	}
	rows = append(rows,
		[2]string{"Location", valueOrNA(locationLabel(lead))},
		[2]string{"Contact", fmt.Sprintf("%s (%s)", valueOrNA(lead.ContactValue), valueOrNA(lead.ContactMethod))},
	)
	if len(lead.PreferredTimes) > 0 {
		rows = append(rows, [2]string{"Preferred Times", strings.Join(lead.PreferredTimes, ", ")})
	}
	if lead.Notes != "" {
		rows = append(rows, [2]string{"Notes", lead.Notes})
	}
	rows = append(rows, [2]string{"Received", lead.CollectedAt.Format(time.RFC1123)})

	var b strings.Builder
	b.WriteString(`<div style="font-family:sans-serif;max-width:600px;">` + "\n")
	b.WriteString(`<h2 style="color:#333;">New Booking Request</h2>` + "\n")
	b.WriteString(`<table style="border-collapse:collapse;width:100%;">` + "\n")
	for _, row := range rows {
		fmt.Fprintf(&b, `<tr><td style="padding:6px 12px;font-weight:bold;">%s</td><td style="padding:6px 12px;">%s</td></tr>`+"\n",
			html.EscapeString(row[0]), html.EscapeString(row[1]))
	}
	b.WriteString("</table>\n")
	b.WriteString(`<p style="color:#666;font-size:12px;">Submitted through the website. Please contact the visitor to complete the booking.</p>` + "\n")
	b.WriteString("</div>")
	return b.String()
}

func locationLabel(lead LeadSummary) string {
	if lead.LocationName != "" {
		return lead.LocationName
	}
	return lead.LocationSlug
}

func valueOrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
