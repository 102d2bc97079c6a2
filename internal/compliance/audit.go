// Package compliance keeps the PHI and escalation audit trail and the AI
// disclosure attached to chat replies.
package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// AuditEventType represents the type of compliance event.
type AuditEventType string

const (
	// EventPHIRedacted is logged when chat input was sanitized before use.
	EventPHIRedacted AuditEventType = "compliance.phi_redacted"
	// EventPHIBlocked is logged when a request was refused for PHI.
	EventPHIBlocked AuditEventType = "compliance.phi_blocked"
	// EventEscalation is logged when a chat turn is flagged for a human.
	EventEscalation AuditEventType = "compliance.escalation"
	// EventResponseModified is logged when an AI reply was altered before sending.
	EventResponseModified AuditEventType = "compliance.response_modified"
	// EventDisclosureSent is logged when the AI disclosure is attached.
	EventDisclosureSent AuditEventType = "compliance.ai_disclosure_sent"
)

// AuditEvent is an immutable audit record. It never holds message text.
type AuditEvent struct {
	ID        string          `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	SessionID string          `json:"session_id,omitempty"`
	Surface   string          `json:"surface"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditDetails holds event-specific fields.
type AuditDetails struct {
	Categories       []string `json:"categories,omitempty"`
	EscalationReason []string `json:"escalation_reasons,omitempty"`
	Intent           string   `json:"intent,omitempty"`
	Modification     string   `json:"modification,omitempty"`
}

// Store persists audit events.
type Store interface {
	Insert(ctx context.Context, event AuditEvent) error
}

// AuditService records compliance events.
type AuditService struct {
	store Store
}

func NewAuditService(store Store) *AuditService {
	if store == nil {
		store = NewMemoryStore()
	}
	return &AuditService{store: store}
}

// LogEvent records an audit event, filling id and timestamp.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := s.store.Insert(ctx, event); err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// LogPHIRedacted records that chat input was sanitized.
func (s *AuditService) LogPHIRedacted(ctx context.Context, sessionID string, categories []string) error {
	return s.logDetails(ctx, EventPHIRedacted, sessionID, "chat", AuditDetails{Categories: categories})
}

// LogPHIBlocked records a refused request.
func (s *AuditService) LogPHIBlocked(ctx context.Context, sessionID, surface string, categories []string) error {
	return s.logDetails(ctx, EventPHIBlocked, sessionID, surface, AuditDetails{Categories: categories})
}

// LogEscalation records an escalated chat turn.
func (s *AuditService) LogEscalation(ctx context.Context, sessionID string, reasons []string, intent string) error {
	return s.logDetails(ctx, EventEscalation, sessionID, "chat", AuditDetails{EscalationReason: reasons, Intent: intent})
}

// LogResponseModified records that an AI reply was altered.
func (s *AuditService) LogResponseModified(ctx context.Context, sessionID, modification string) error {
	return s.logDetails(ctx, EventResponseModified, sessionID, "chat", AuditDetails{Modification: modification})
}

func (s *AuditService) logDetails(ctx context.Context, eventType AuditEventType, sessionID, surface string, details AuditDetails) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("compliance: encode details: %w", err)
	}
	return s.LogEvent(ctx, AuditEvent{
		EventType: eventType,
		SessionID: sessionID,
		Surface:   surface,
		Details:   detailsJSON,
	})
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore writes to compliance_audit_events.
type PostgresStore struct {
	db execer
}

func NewPostgresStore(db execer) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Insert(ctx context.Context, event AuditEvent) error {
	var session any
	if event.SessionID != "" {
		session = event.SessionID
	}
	query := `
		INSERT INTO compliance_audit_events (id, event_type, session_id, surface, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := p.db.Exec(ctx, query, event.ID, string(event.EventType), session, event.Surface, []byte(event.Details), event.CreatedAt)
	return err
}

// MemoryStore keeps audit events in memory.
type MemoryStore struct {
	mu     sync.Mutex
	events []AuditEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(_ context.Context, event AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (m *MemoryStore) Events() []AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEvent(nil), m.events...)
}
