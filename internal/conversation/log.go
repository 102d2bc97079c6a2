package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LoggedMessage is one stored chat message.
type LoggedMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is a session's stored conversation.
type Transcript struct {
	SessionID      string
	Messages       []LoggedMessage
	DetectedIntent string
	Escalated      bool
}

// LogStore keeps an append-only record of chat turns plus a per-session
// summary. A blank intent leaves the previous one in place; the escalated
// flag always reflects the latest turn.
type LogStore interface {
	AppendTurn(ctx context.Context, sessionID string, msgs []LoggedMessage, intent string, escalated bool) error
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresLogStore writes ai_conversations and ai_conversation_messages in one
// transaction.
type PostgresLogStore struct {
	pool txBeginner
}

func NewPostgresLogStore(pool txBeginner) *PostgresLogStore {
	if pool == nil {
		panic("conversation: db cannot be nil")
	}
	return &PostgresLogStore{pool: pool}
}

func (s *PostgresLogStore) AppendTurn(ctx context.Context, sessionID string, msgs []LoggedMessage, intent string, escalated bool) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO ai_conversations (session_id, detected_intent, escalated, message_count)
			VALUES ($1, NULLIF($2, ''), $3, $4)
			ON CONFLICT (session_id) DO UPDATE SET
				detected_intent = COALESCE(NULLIF($2, ''), ai_conversations.detected_intent),
				escalated = $3,
				message_count = ai_conversations.message_count + $4,
				updated_at = now()
		`, sessionID, intent, escalated, len(msgs))
		if err != nil {
			return fmt.Errorf("upsert summary: %w", err)
		}
		for _, m := range msgs {
			_, err := tx.Exec(ctx, `
				INSERT INTO ai_conversation_messages (id, session_id, role, content, created_at)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.NewString(), sessionID, m.Role, m.Content, m.Timestamp)
			if err != nil {
				return fmt.Errorf("insert message: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("conversation: append turn: %w", err)
	}
	return nil
}

// MemoryLogStore keeps transcripts in process.
type MemoryLogStore struct {
	mu          sync.Mutex
	transcripts map[string]*Transcript
}

func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{transcripts: make(map[string]*Transcript)}
}

func (s *MemoryLogStore) AppendTurn(_ context.Context, sessionID string, msgs []LoggedMessage, intent string, escalated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcripts[sessionID]
	if !ok {
		t = &Transcript{SessionID: sessionID}
		s.transcripts[sessionID] = t
	}
	t.Messages = append(t.Messages, msgs...)
	if intent != "" {
		t.DetectedIntent = intent
	}
	t.Escalated = escalated
	return nil
}

// Transcript returns a copy of the session's transcript.
func (s *MemoryLogStore) Transcript(sessionID string) (Transcript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcripts[sessionID]
	if !ok {
		return Transcript{}, false
	}
	out := *t
	out.Messages = append([]LoggedMessage(nil), t.Messages...)
	return out, true
}
