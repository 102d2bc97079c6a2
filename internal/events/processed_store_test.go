package events

import (
	"context"
	"errors"
	"testing"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessedStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewProcessedStore(mock)
	ctx := context.Background()

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs(WebhookProviderAIMOS, "evt").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(1))
	processed, err := store.AlreadyProcessed(ctx, WebhookProviderAIMOS, "evt")
	require.NoError(t, err)
	assert.True(t, processed)

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs(WebhookProviderAIMOS, "evt-miss").WillReturnError(pgx.ErrNoRows)
	processed, err = store.AlreadyProcessed(ctx, WebhookProviderAIMOS, "evt-miss")
	require.NoError(t, err)
	assert.False(t, processed)

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs(WebhookProviderAIMOS, "evt-err").WillReturnError(errors.New("conn reset"))
	_, err = store.AlreadyProcessed(ctx, WebhookProviderAIMOS, "evt-err")
	assert.ErrorContains(t, err, "check processed")

	mock.ExpectExec("INSERT INTO processed_events").WithArgs(WebhookProviderAIMOS, "evt-new").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ok, err := store.MarkProcessed(ctx, WebhookProviderAIMOS, "evt-new")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("INSERT INTO processed_events").WithArgs(WebhookProviderAIMOS, "evt-new").WillReturnResult(pgxmock.NewResult("INSERT", 0))
	ok, err = store.MarkProcessed(ctx, WebhookProviderAIMOS, "evt-new")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryProcessedStore(t *testing.T) {
	store := NewMemoryProcessedStore()
	ctx := context.Background()

	seen, _ := store.AlreadyProcessed(ctx, WebhookProviderAIMOS, "evt-1")
	assert.False(t, seen)

	first, _ := store.MarkProcessed(ctx, WebhookProviderAIMOS, "evt-1")
	again, _ := store.MarkProcessed(ctx, WebhookProviderAIMOS, "evt-1")
	assert.True(t, first)
	assert.False(t, again)

	seen, _ = store.AlreadyProcessed(ctx, WebhookProviderAIMOS, "evt-1")
	assert.True(t, seen)
	other, _ := store.AlreadyProcessed(ctx, "other", "evt-1")
	assert.False(t, other)
}
