package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditServiceLogsWithoutMessageText(t *testing.T) {
	store := NewMemoryStore()
	svc := NewAuditService(store)
	ctx := context.Background()

	require.NoError(t, svc.LogPHIRedacted(ctx, "sess-1", []string{"sin"}))
	require.NoError(t, svc.LogEscalation(ctx, "sess-1", []string{"emergency"}, "wcb_inquiry"))
	require.NoError(t, svc.LogPHIBlocked(ctx, "", "booking", []string{"keyword"}))

	events := store.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventPHIRedacted, events[0].EventType)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].CreatedAt.IsZero())

	var details AuditDetails
	require.NoError(t, json.Unmarshal(events[1].Details, &details))
	assert.Equal(t, []string{"emergency"}, details.EscalationReason)
	assert.Equal(t, "booking", events[2].Surface)
}

func TestPostgresStoreInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO compliance_audit_events").
		WithArgs(pgxmock.AnyArg(), "compliance.escalation", "sess-1", "chat", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO compliance_audit_events").
		WithArgs(pgxmock.AnyArg(), "compliance.phi_blocked", nil, "intake", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	svc := NewAuditService(NewPostgresStore(mock))
	require.NoError(t, svc.LogEscalation(context.Background(), "sess-1", []string{"legal"}, ""))
	err = svc.LogPHIBlocked(context.Background(), "", "intake", []string{"sin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compliance:")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDisclaimerFirstMessageOnly(t *testing.T) {
	store := NewMemoryStore()
	svc := NewDisclaimerService(NewAuditService(store), DefaultDisclaimerConfig())
	ctx := context.Background()

	first := svc.Apply(ctx, "Hello! ", DisclaimerOptions{SessionID: "s", IsFirstMessage: true})
	assert.True(t, strings.HasPrefix(first, "Hello!\n\n"))
	assert.Contains(t, first, DisclosureText)
	assert.Equal(t, first, svc.Apply(ctx, first, DisclaimerOptions{IsFirstMessage: true}), "not added twice")

	later := svc.Apply(ctx, "Sure.", DisclaimerOptions{SessionID: "s"})
	assert.Equal(t, "Sure.", later)
	assert.Len(t, store.Events(), 1)
}

func TestDisclaimerDisabledAndNil(t *testing.T) {
	svc := NewDisclaimerService(nil, DisclaimerConfig{Enabled: false})
	assert.Equal(t, "x", svc.Apply(context.Background(), "x", DisclaimerOptions{IsFirstMessage: true}))

	var nilSvc *DisclaimerService
	assert.Equal(t, "x", nilSvc.Apply(context.Background(), "x", DisclaimerOptions{IsFirstMessage: true}))

	custom := NewDisclaimerService(nil, DisclaimerConfig{Enabled: true, CustomText: "AI here."})
	assert.Equal(t, "Hi\n\nAI here.", custom.Apply(context.Background(), "Hi", DisclaimerOptions{}))
}
