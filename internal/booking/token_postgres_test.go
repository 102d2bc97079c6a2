package booking

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresTokenStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store := NewPostgresTokenStore(mock)
	ctx := context.Background()
	expires := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO booking_tokens").
		WithArgs("BK-1", "lead-1", "active", "booking", expires, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.Create(ctx, Token{BookingRef: "BK-1", LeadID: "lead-1", Status: TokenActive, ActionType: "booking", ExpiresAt: expires}))

	mock.ExpectQuery("SELECT booking_ref").WithArgs("BK-1").
		WillReturnRows(pgxmock.NewRows([]string{"booking_ref", "lead_id", "status", "action_type", "expires_at", "metadata", "created_at"}).
			AddRow("BK-1", "lead-1", "active", "booking", expires, []byte(`{"persona":"IW"}`), expires.Add(-DefaultTokenTTL)))
	tok, err := store.Get(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, TokenActive, tok.Status)
	assert.Equal(t, "IW", tok.Metadata["persona"])

	mock.ExpectQuery("SELECT booking_ref").WithArgs("BK-2").WillReturnError(pgx.ErrNoRows)
	_, err = store.Get(ctx, "BK-2")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectExec("UPDATE booking_tokens SET status = 'expired'").WithArgs("BK-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	flipped, err := store.Expire(ctx, "BK-1")
	require.NoError(t, err)
	assert.True(t, flipped)

	mock.ExpectExec("UPDATE booking_tokens SET status = 'expired'").WithArgs("BK-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	flipped, err = store.Expire(ctx, "BK-1")
	require.NoError(t, err)
	assert.False(t, flipped)

	mock.ExpectExec("UPDATE booking_tokens").WithArgs("BK-1", "cancelled", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, store.Transition(ctx, "BK-1", TokenCancelled, nil), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatLeadSummaryEscapesHTML(t *testing.T) {
	lead := LeadSummary{BookingRef: "BK-1", Notes: "<script>", ContactMethod: "email", ContactValue: "a@b.ca", CollectedAt: time.Now()}
	assert.Contains(t, FormatLeadSummaryHTML(lead), "&lt;script&gt;")
	assert.Contains(t, FormatLeadSummary(lead), "Persona: N/A")
}
