package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmailSender struct {
	sent []EmailMessage
	err  error
}

func (m *mockEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestNotifyEscalation(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, "team@example.com", nil)

	err := svc.NotifyEscalation(context.Background(), Escalation{
		SessionID: "sess-1",
		Reasons:   []string{"emergency"},
		Intent:    "wcb_inquiry",
		At:        time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "team@example.com", msg.To)
	assert.Equal(t, "Chat escalation: emergency", msg.Subject)
	assert.Contains(t, msg.Body, "Persona: undetermined")
	assert.Contains(t, msg.HTML, "sess-1")
}

func TestNotifyOrgRequest(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, "team@example.com", nil)
	require.NoError(t, svc.NotifyOrgRequest(context.Background(), OrgRequest{
		RequestID: "r-1", OrgType: "EMPLOYER", OrgName: "Acme <Ltd>", Intent: "RTW_PROGRAM",
		ContactMethod: "email", ContactValue: "hr@acme.ca", At: time.Now(),
	}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "New employer request: Acme <Ltd>", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].HTML, "Acme &lt;Ltd&gt;")
}

func TestNotifyDisabledWithoutRecipient(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, "", nil)
	require.NoError(t, svc.NotifyEscalation(context.Background(), Escalation{SessionID: "s"}))
	assert.Empty(t, sender.sent)

	var nilSvc *Service
	assert.NoError(t, nilSvc.NotifyOrgRequest(context.Background(), OrgRequest{}))
}

func TestNotifySendFailure(t *testing.T) {
	svc := NewService(&mockEmailSender{err: errors.New("smtp")}, "team@example.com", nil)
	assert.Error(t, svc.NotifyEscalation(context.Background(), Escalation{SessionID: "s"}))
}
