package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aim-injury/aim-intake/internal/aimos"
)

func TestPostgresSubmissionStoreInsertThenUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store := NewPostgresSubmissionStore(mock)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO intake_submissions").
		WithArgs(pgxmock.AnyArg(), "sess-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), StatusDraft).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	sub := &Submission{SessionID: "sess-1"}
	sub.Patient.FirstName = "Jane"
	saved, err := store.Save(ctx, sub)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, StatusDraft, saved.Status)
	assert.Empty(t, sub.ID, "input must not be mutated")

	mock.ExpectQuery("UPDATE intake_submissions").
		WithArgs(saved.ID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), StatusSubmitted).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now.Add(time.Minute)))

	saved.Status = StatusSubmitted
	updated, err := store.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubmissionStoreUpdateUnknown(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("UPDATE intake_submissions").WillReturnError(pgx.ErrNoRows)
	_, err = NewPostgresSubmissionStore(mock).Save(context.Background(), &Submission{ID: "nope", SessionID: "sess-1"})
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestPostgresSubmissionStoreGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "session_id", "patient_data", "injury_data", "insurance_data", "medical_history", "consent_data", "status", "created_at", "updated_at"}).
		AddRow("sub-1", "sess-1",
			[]byte(`{"first_name":"Jane","last_name":"Doe","phone":"7805550100"}`),
			[]byte(`{"injury_type":"work","injury_date":"today"}`),
			[]byte(`{"insurance_type":"wcb","wcb_claim":"pending"}`),
			[]byte(`{"current_medications":"none"}`),
			[]byte(`{"privacy_consent":true,"treatment_consent":true,"communication_consent":true}`),
			"assigned", now, now)
	mock.ExpectQuery("SELECT id, session_id").WithArgs("sub-1").WillReturnRows(rows)

	sub, err := NewPostgresSubmissionStore(mock).Get(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "Doe", sub.Patient.LastName)
	assert.Equal(t, InsuranceWCB, sub.Insurance.InsuranceType)
	assert.True(t, sub.Consent.TreatmentConsent)
	assert.Equal(t, "assigned", sub.Status)
}

func TestPostgresSubmissionStoreUpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store := NewPostgresSubmissionStore(mock)

	mock.ExpectExec("UPDATE intake_submissions SET status").WithArgs("sub-1", "scheduled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.UpdateStatus(context.Background(), "sub-1", "scheduled"))

	mock.ExpectExec("UPDATE intake_submissions SET status").WithArgs("missing", "scheduled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	missing := store.UpdateStatus(context.Background(), "missing", "scheduled")
	assert.ErrorIs(t, missing, ErrSubmissionNotFound)
	assert.ErrorIs(t, missing, aimos.ErrIntakeNotFound)

	mock.ExpectExec("UPDATE intake_submissions SET status").WillReturnError(errors.New("conn reset"))
	err = store.UpdateStatus(context.Background(), "sub-2", "completed")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSubmissionNotFound)
	assert.NotErrorIs(t, err, aimos.ErrIntakeNotFound)
}

func TestMemorySubmissionStoreUnknownIntakeMatchesWebhookSentinel(t *testing.T) {
	err := NewMemorySubmissionStore().UpdateStatus(context.Background(), "missing", "assigned")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
	assert.ErrorIs(t, err, aimos.ErrIntakeNotFound)
	assert.Equal(t, "intake: submission not found", ErrSubmissionNotFound.Error())
}
