package booking

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

// PostgresTokenStore stores tokens in booking_tokens.
type PostgresTokenStore struct {
	db db
}

func NewPostgresTokenStore(pool db) *PostgresTokenStore {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &PostgresTokenStore{db: pool}
}

func (s *PostgresTokenStore) Create(ctx context.Context, tok Token) error {
	meta, err := json.Marshal(copyMetadata(tok.Metadata))
	if err != nil {
		return fmt.Errorf("booking: encode token metadata: %w", err)
	}
	query := `
		INSERT INTO booking_tokens (booking_ref, lead_id, status, action_type, expires_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.Exec(ctx, query, tok.BookingRef, tok.LeadID, string(tok.Status), tok.ActionType, tok.ExpiresAt, meta); err != nil {
		return fmt.Errorf("booking: insert token: %w", err)
	}
	return nil
}

func (s *PostgresTokenStore) Get(ctx context.Context, ref string) (Token, error) {
	query := `
		SELECT booking_ref, lead_id, status, action_type, expires_at, metadata, created_at
		FROM booking_tokens
		WHERE booking_ref = $1
	`
	var (
		tok    Token
		status string
		meta   []byte
	)
	err := s.db.QueryRow(ctx, query, ref).Scan(&tok.BookingRef, &tok.LeadID, &status, &tok.ActionType, &tok.ExpiresAt, &meta, &tok.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Token{}, ErrNotFound
	}
	if err != nil {
		return Token{}, fmt.Errorf("booking: get token: %w", err)
	}
	tok.Status = TokenStatus(status)
	tok.Metadata = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &tok.Metadata); err != nil {
			return Token{}, fmt.Errorf("booking: decode token metadata: %w", err)
		}
	}
	return tok, nil
}

func (s *PostgresTokenStore) Expire(ctx context.Context, ref string) (bool, error) {
	ct, err := s.db.Exec(ctx, `UPDATE booking_tokens SET status = 'expired' WHERE booking_ref = $1 AND status = 'active'`, ref)
	if err != nil {
		return false, fmt.Errorf("booking: expire token: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (s *PostgresTokenStore) Transition(ctx context.Context, ref string, to TokenStatus, metadata map[string]any) error {
	meta, err := json.Marshal(copyMetadata(metadata))
	if err != nil {
		return fmt.Errorf("booking: encode token metadata: %w", err)
	}
	query := `
		UPDATE booking_tokens
		SET status = $2, metadata = $3
		WHERE booking_ref = $1 AND status = 'active'
	`
	ct, err := s.db.Exec(ctx, query, ref, string(to), meta)
	if err != nil {
		return fmt.Errorf("booking: update token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
