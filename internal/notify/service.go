package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aim-injury/aim-intake/pkg/logging"
)

// Escalation describes a chat turn that needs a human. It never carries the
// visitor's message text.
type Escalation struct {
	SessionID string
	Reasons   []string
	Intent    string
	Persona   string
	At        time.Time
}

// OrgRequest summarises an employer or insurer enquiry for the team.
type OrgRequest struct {
	RequestID     string
	OrgType       string
	OrgName       string
	Intent        string
	ContactMethod string
	ContactValue  string
	ContactWindow string
	At            time.Time
}

// Service emails the intake team. A blank recipient disables notifications.
type Service struct {
	email  EmailSender
	to     string
	logger *logging.Logger
}

func NewService(email EmailSender, to string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, to: strings.TrimSpace(to), logger: logger}
}

// NotifyEscalation tells the team a chat session was escalated.
func (s *Service) NotifyEscalation(ctx context.Context, e Escalation) error {
	if !s.enabled() {
		return nil
	}
	reasons := strings.Join(e.Reasons, ", ")
	rows := [][2]string{
		{"Session", e.SessionID},
		{"Reasons", valueOr(reasons, "unspecified")},
		{"Detected Intent", valueOr(e.Intent, "none")},
		{"Persona", valueOr(e.Persona, "undetermined")},
		{"Time", e.At.Format(time.RFC1123)},
	}
	msg := EmailMessage{
		To:      s.to,
		Subject: fmt.Sprintf("Chat escalation: %s", valueOr(reasons, "review needed")),
		Body:    plainRows(rows) + "\nReview the conversation log and call the visitor back if contact details were shared.\n",
		HTML:    htmlRows("Chat Escalation", rows),
	}
	return s.send(ctx, msg, "escalation")
}

// NotifyOrgRequest tells the team about a new organisation enquiry.
func (s *Service) NotifyOrgRequest(ctx context.Context, o OrgRequest) error {
	if !s.enabled() {
		return nil
	}
	rows := [][2]string{
		{"Request", o.RequestID},
		{"Organisation", fmt.Sprintf("%s (%s)", o.OrgName, o.OrgType)},
		{"Intent", o.Intent},
		{"Contact", fmt.Sprintf("%s (%s)", o.ContactValue, o.ContactMethod)},
		{"Contact Window", valueOr(o.ContactWindow, "any")},
		{"Received", o.At.Format(time.RFC1123)},
	}
	msg := EmailMessage{
		To:      s.to,
		Subject: fmt.Sprintf("New %s request: %s", strings.ToLower(o.OrgType), o.OrgName),
		Body:    plainRows(rows),
		HTML:    htmlRows("New Organisation Request", rows),
	}
	return s.send(ctx, msg, "org_request")
}

func (s *Service) enabled() bool {
	return s != nil && s.email != nil && s.to != ""
}

func (s *Service) send(ctx context.Context, msg EmailMessage, kind string) error {
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notify: email failed", "kind", kind, "error", err)
		return fmt.Errorf("notify: send %s: %w", kind, err)
	}
	return nil
}

func plainRows(rows [][2]string) string {
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%s: %s\n", r[0], r[1])
	}
	return b.String()
}

func htmlRows(title string, rows [][2]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div style="font-family:sans-serif;max-width:600px;"><h2 style="color:#333;">%s</h2><table style="border-collapse:collapse;width:100%%;">`, html.EscapeString(title))
	for _, r := range rows {
		fmt.Fprintf(&b, `<tr><td style="padding:6px 12px;font-weight:bold;">%s</td><td style="padding:6px 12px;">%s</td></tr>`, html.EscapeString(r[0]), html.EscapeString(r[1]))
	}
	b.WriteString("</table></div>")
	return b.String()
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
