package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists persona records in the personas table.
type PostgresStore struct {
	db db
}

func NewPostgresStore(pool db) *PostgresStore {
	if pool == nil {
		panic("persona: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (Record, error) {
	query := `
		SELECT session_id, persona_type, confidence_scores, behavioral_signals, version, created_at, updated_at
		FROM personas
		WHERE session_id = $1
	`
	var (
		rec     Record
		ptype   string
		scores  []byte
		signals []byte
	)
	err := s.db.QueryRow(ctx, query, sessionID).Scan(&rec.SessionID, &ptype, &scores, &signals, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("persona: get record: %w", err)
	}
	rec.PersonaType = Type(ptype)
	if err := json.Unmarshal(scores, &rec.Scores); err != nil {
		return Record{}, fmt.Errorf("persona: decode scores: %w", err)
	}
	if err := json.Unmarshal(signals, &rec.Signals); err != nil {
		return Record{}, fmt.Errorf("persona: decode signals: %w", err)
	}
	if rec.Signals.ScrollDepth == nil {
		rec.Signals.ScrollDepth = map[string]int{}
	}
	return rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) (Record, error) {
	scores, signals, err := encode(rec)
	if err != nil {
		return Record{}, err
	}
	var query string
	var args []any
	if rec.Version == 0 {
		query = `
			INSERT INTO personas (session_id, persona_type, confidence_scores, behavioral_signals, version)
			VALUES ($1, $2, $3, $4, 1)
			ON CONFLICT (session_id) DO NOTHING
		`
		args = []any{rec.SessionID, string(rec.PersonaType), scores, signals}
	} else {
		query = `
			UPDATE personas
			SET persona_type = $2, confidence_scores = $3, behavioral_signals = $4,
				version = version + 1, updated_at = now()
			WHERE session_id = $1 AND version = $5
		`
		args = []any{rec.SessionID, string(rec.PersonaType), scores, signals, rec.Version}
	}
	ct, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return Record{}, fmt.Errorf("persona: save record: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return Record{}, ErrVersionConflict
	}
	rec.Version++
	return rec, nil
}

func (s *PostgresStore) ForceSave(ctx context.Context, rec Record) (Record, error) {
	scores, signals, err := encode(rec)
	if err != nil {
		return Record{}, err
	}
	query := `
		INSERT INTO personas (session_id, persona_type, confidence_scores, behavioral_signals, version)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (session_id) DO UPDATE
		SET persona_type = EXCLUDED.persona_type,
			confidence_scores = EXCLUDED.confidence_scores,
			behavioral_signals = EXCLUDED.behavioral_signals,
			version = personas.version + 1,
			updated_at = now()
		RETURNING version
	`
	if err := s.db.QueryRow(ctx, query, rec.SessionID, string(rec.PersonaType), scores, signals).Scan(&rec.Version); err != nil {
		return Record{}, fmt.Errorf("persona: force save record: %w", err)
	}
	return rec, nil
}

func encode(rec Record) ([]byte, []byte, error) {
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return nil, nil, fmt.Errorf("persona: encode scores: %w", err)
	}
	signals, err := json.Marshal(rec.Signals)
	if err != nil {
		return nil, nil, fmt.Errorf("persona: encode signals: %w", err)
	}
	return scores, signals, nil
}
