package compliance

import (
	"context"
	"fmt"
	"strings"
)

// DisclosureText tells visitors they are talking to an AI assistant.
const DisclosureText = "I'm AIM's AI assistant. I can share general information and help you book, but I can't give medical advice. For anything urgent, call (780) 250-8188."

// DisclaimerConfig configures the disclosure.
type DisclaimerConfig struct {
	Enabled bool
	// FirstMessageOnly attaches the disclosure to a session's first reply only.
	FirstMessageOnly bool
	// CustomText overrides DisclosureText.
	CustomText string
}

// DefaultDisclaimerConfig discloses once per session.
func DefaultDisclaimerConfig() DisclaimerConfig {
	return DisclaimerConfig{Enabled: true, FirstMessageOnly: true}
}

// DisclaimerService attaches the AI disclosure to chat replies.
type DisclaimerService struct {
	audit  *AuditService
	config DisclaimerConfig
}

func NewDisclaimerService(audit *AuditService, config DisclaimerConfig) *DisclaimerService {
	return &DisclaimerService{audit: audit, config: config}
}

// Text returns the disclosure in use.
func (s *DisclaimerService) Text() string {
	if s.config.CustomText != "" {
		return s.config.CustomText
	}
	return DisclosureText
}

// DisclaimerOptions provides context for a reply.
type DisclaimerOptions struct {
	SessionID      string
	IsFirstMessage bool
}

// Apply appends the disclosure when configured. Replies that already carry it
// are returned unchanged.
func (s *DisclaimerService) Apply(ctx context.Context, message string, opts DisclaimerOptions) string {
	if s == nil || !s.ShouldApply(opts.IsFirstMessage) {
		return message
	}
	text := s.Text()
	if strings.Contains(message, text) {
		return message
	}
	if s.audit != nil {
		_ = s.audit.LogEvent(ctx, AuditEvent{EventType: EventDisclosureSent, SessionID: opts.SessionID, Surface: "chat"})
	}
	return fmt.Sprintf("%s\n\n%s", strings.TrimSpace(message), text)
}

// ShouldApply reports whether a reply needs the disclosure.
func (s *DisclaimerService) ShouldApply(isFirstMessage bool) bool {
	if !s.config.Enabled {
		return false
	}
	if s.config.FirstMessageOnly && !isFirstMessage {
		return false
	}
	return true
}
