package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSubmissionStore stores submissions in intake_submissions, one JSONB
// column per answer group.
type PostgresSubmissionStore struct {
	pool db
}

func NewPostgresSubmissionStore(pool db) *PostgresSubmissionStore {
	if pool == nil {
		panic("intake: db cannot be nil")
	}
	return &PostgresSubmissionStore{pool: pool}
}

func (s *PostgresSubmissionStore) Save(ctx context.Context, sub *Submission) (*Submission, error) {
	if sub.SessionID == "" {
		return nil, ErrMissingSession
	}
	saved := *sub
	if saved.Status == "" {
		saved.Status = StatusDraft
	}
	cols, err := encodeGroups(saved.Collected)
	if err != nil {
		return nil, err
	}

	if saved.ID == "" {
		saved.ID = uuid.NewString()
		query := `
			INSERT INTO intake_submissions (id, session_id, patient_data, injury_data, insurance_data, medical_history, consent_data, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`
		args := append([]any{saved.ID, saved.SessionID}, cols...)
		args = append(args, saved.Status)
		if err := s.pool.QueryRow(ctx, query, args...).Scan(&saved.CreatedAt, &saved.UpdatedAt); err != nil {
			return nil, fmt.Errorf("intake: insert submission: %w", err)
		}
		return &saved, nil
	}

	query := `
		UPDATE intake_submissions
		SET patient_data = $2, injury_data = $3, insurance_data = $4, medical_history = $5,
		    consent_data = $6, status = $7, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	args := append([]any{saved.ID}, cols...)
	args = append(args, saved.Status)
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&saved.CreatedAt, &saved.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("intake: update submission: %w", err)
	}
	return &saved, nil
}

func (s *PostgresSubmissionStore) Get(ctx context.Context, id string) (*Submission, error) {
	query := `
		SELECT id, session_id, patient_data, injury_data, insurance_data, medical_history, consent_data, status, created_at, updated_at
		FROM intake_submissions
		WHERE id = $1
	`
	var (
		sub                                          Submission
		patient, injury, insurance, medical, consent []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&sub.ID, &sub.SessionID, &patient, &injury, &insurance, &medical, &consent,
		&sub.Status, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("intake: get submission: %w", err)
	}
	groups := []struct {
		raw  []byte
		dest any
	}{
		{patient, &sub.Patient},
		{injury, &sub.Injury},
		{insurance, &sub.Insurance},
		{medical, &sub.Medical},
		{consent, &sub.Consent},
	}
	for _, g := range groups {
		if len(g.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(g.raw, g.dest); err != nil {
			return nil, fmt.Errorf("intake: decode submission: %w", err)
		}
	}
	return &sub, nil
}

// UpdateStatus applies a downstream status change.
func (s *PostgresSubmissionStore) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE intake_submissions SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("intake: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func encodeGroups(c Collected) ([]any, error) {
	groups := []any{c.Patient, c.Injury, c.Insurance, c.Medical, c.Consent}
	out := make([]any, 0, len(groups))
	for _, g := range groups {
		raw, err := json.Marshal(g)
		if err != nil {
			return nil, fmt.Errorf("intake: encode submission: %w", err)
		}
		out = append(out, raw)
	}
	return out, nil
}
