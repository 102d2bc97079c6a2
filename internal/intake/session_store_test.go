package intake

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	_, err := store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	covered := true
	sess := NewSession("sess-1")
	sess.Step = StepInsuranceDetails
	sess.SubmissionID = "sub-1"
	sess.Data.Patient.FirstName = "Jane"
	sess.Data.Insurance.HasPrivateCoverage = &covered
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, StepInsuranceDetails, got.Step)
	assert.Equal(t, "sub-1", got.SubmissionID)
	assert.Equal(t, "Jane", got.Data.Patient.FirstName)
	require.NotNil(t, got.Data.Insurance.HasPrivateCoverage)
	assert.True(t, *got.Data.Insurance.HasPrivateCoverage)
	assert.Equal(t, SessionTTL, mr.TTL("intake:session:sess-1"))

	mr.FastForward(SessionTTL + time.Second)
	_, err = store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreExpires(t *testing.T) {
	store := NewMemorySessionStore()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	sess := NewSession("sess-1")
	require.NoError(t, store.Save(ctx, sess))
	sess.Step = StepConsent

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, StepWelcome, got.Step, "stored copy must not alias the caller's session")

	now = now.Add(SessionTTL + time.Minute)
	_, err = store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
