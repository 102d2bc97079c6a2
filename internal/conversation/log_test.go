package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresLogStore_AppendTurn(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	msgs := []LoggedMessage{
		{Role: ChatRoleUser, Content: "I hurt my back at work", Timestamp: at},
		{Role: ChatRoleAssistant, Content: "I can help with that.", Timestamp: at},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ai_conversations").
		WithArgs("sess-1", IntentWCB, false, 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO ai_conversation_messages").
		WithArgs(pgxmock.AnyArg(), "sess-1", ChatRoleUser, "I hurt my back at work", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO ai_conversation_messages").
		WithArgs(pgxmock.AnyArg(), "sess-1", ChatRoleAssistant, "I can help with that.", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	store := NewPostgresLogStore(mock)
	require.NoError(t, store.AppendTurn(context.Background(), "sess-1", msgs, IntentWCB, false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogStore_RollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ai_conversations").
		WithArgs("sess-1", "", true, 1).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	store := NewPostgresLogStore(mock)
	err = store.AppendTurn(context.Background(), "sess-1", []LoggedMessage{{Role: ChatRoleUser, Content: "hi"}}, "", true)
	assert.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryLogStore(t *testing.T) {
	store := NewMemoryLogStore()
	ctx := context.Background()

	require.NoError(t, store.AppendTurn(ctx, "s", []LoggedMessage{{Role: ChatRoleUser, Content: "a"}}, IntentMVA, true))
	require.NoError(t, store.AppendTurn(ctx, "s", []LoggedMessage{{Role: ChatRoleUser, Content: "b"}}, "", false))

	tr, ok := store.Transcript("s")
	require.True(t, ok)
	assert.Len(t, tr.Messages, 2)
	assert.Equal(t, IntentMVA, tr.DetectedIntent)
	assert.False(t, tr.Escalated)

	tr.Messages[0].Content = "changed"
	again, _ := store.Transcript("s")
	assert.Equal(t, "a", again.Messages[0].Content)

	_, ok = store.Transcript("missing")
	assert.False(t, ok)
}
