package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Log appends rows to the event log.
type Log interface {
	Append(ctx context.Context, entry Entry) error
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresLog writes to the events table.
type PostgresLog struct {
	pool execer
}

func NewPostgresLog(pool execer) *PostgresLog {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &PostgresLog{pool: pool}
}

func (l *PostgresLog) Append(ctx context.Context, entry Entry) error {
	data := entry.Data
	if data == nil {
		data = map[string]any{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("events: marshal event data: %w", err)
	}
	var snapshot []byte
	if entry.PersonaSnapshot != nil {
		if snapshot, err = json.Marshal(entry.PersonaSnapshot); err != nil {
			return fmt.Errorf("events: marshal persona snapshot: %w", err)
		}
	}
	var session any
	if entry.SessionID != "" {
		session = entry.SessionID
	}
	query := `
		INSERT INTO events (session_id, event_type, event_data, persona_snapshot)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := l.pool.Exec(ctx, query, session, entry.Type, encoded, snapshot); err != nil {
		return fmt.Errorf("events: append %s: %w", entry.Type, err)
	}
	return nil
}

// MemoryLog keeps entries in memory.
type MemoryLog struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(ctx context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a copy of the recorded entries.
func (l *MemoryLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// OfType returns entries with the given type.
func (l *MemoryLog) OfType(eventType string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
