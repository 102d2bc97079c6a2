package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in public_leads and org_requests.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository accepts a *pgxpool.Pool or any compatible handle.
func NewPostgresRepository(pool db) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	lead := req.newLead(uuid.New().String(), time.Time{})
	query := `
		INSERT INTO public_leads (id, persona, program_interest, location_slug, urgency, contact_method,
			contact_value, status, booking_mode, preferred_times, notes, qualification_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		lead.ID,
		lead.Persona,
		lead.ProgramInterest,
		lead.LocationSlug,
		lead.Urgency,
		lead.ContactMethod,
		lead.ContactValue,
		lead.Status,
		lead.BookingMode,
		lead.PreferredTimes,
		lead.Notes,
		lead.QualificationState,
	).Scan(&lead.CreatedAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}
	lead.UpdatedAt = lead.CreatedAt
	return lead, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `
		SELECT id, persona, program_interest, location_slug, urgency, contact_method, contact_value,
			status, booking_mode, preferred_times, notes, qualification_state, created_at, updated_at
		FROM public_leads
		WHERE id = $1
	`
	var lead Lead
	err := r.db.QueryRow(ctx, query, id).Scan(
		&lead.ID,
		&lead.Persona,
		&lead.ProgramInterest,
		&lead.LocationSlug,
		&lead.Urgency,
		&lead.ContactMethod,
		&lead.ContactValue,
		&lead.Status,
		&lead.BookingMode,
		&lead.PreferredTimes,
		&lead.Notes,
		&lead.QualificationState,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return &lead, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, upd Update) error {
	query := `
		UPDATE public_leads
		SET status = $2, notes = $3, preferred_times = COALESCE($4, preferred_times), updated_at = now()
		WHERE id = $1
	`
	ct, err := r.db.Exec(ctx, query, id, upd.Status, upd.Notes, upd.PreferredTimes)
	if err != nil {
		return fmt.Errorf("leads: update failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateOrgRequest(ctx context.Context, req *OrgRequest) (*OrgRequest, error) {
	out := *req
	out.ID = uuid.New().String()
	out.Status = StatusNew
	query := `
		INSERT INTO org_requests (id, org_type, org_name, role, intent, volume_range, location_preference,
			contact_method, contact_value, contact_window, notes, status, persona, industry, employee_count_range)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		out.ID, out.OrgType, out.OrgName, out.Role, out.Intent, out.VolumeRange, out.LocationPreference,
		out.ContactMethod, out.ContactValue, out.ContactWindow, out.Notes, out.Status, out.Persona,
		out.Industry, out.EmployeeCountRange,
	).Scan(&out.CreatedAt); err != nil {
		return nil, fmt.Errorf("leads: insert org request failed: %w", err)
	}
	return &out, nil
}
