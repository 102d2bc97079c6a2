package persona

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeCreatesAndReloads(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	rec := svc.Initialize(ctx, "sess-1")
	assert.Equal(t, Undetermined, rec.PersonaType)
	assert.Equal(t, int64(1), rec.Version)

	again := svc.Initialize(ctx, "sess-1")
	assert.Equal(t, rec.Version, again.Version)
}

func TestTrackPersistsSignals(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	rec := svc.Track(ctx, "sess-1",
		Signal{Kind: SignalPageView, Value: "/programs/wcb"},
		Signal{Kind: SignalCTAClick, Value: "wcb-start"},
	)
	assert.Equal(t, InjuredWorker, rec.PersonaType)

	stored, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, InjuredWorker, stored.PersonaType)
	assert.Equal(t, []string{"/programs/wcb"}, stored.Signals.PagesViewed)
}

func TestConcurrentTrackDoesNotLoseUpdates(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()
	svc.Initialize(ctx, "sess-1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Track(ctx, "sess-1", Signal{Kind: SignalCTAClick, Value: "learn-more"})
		}()
	}
	wg.Wait()

	stored, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	// Retries may exhaust under contention and fall back to last write wins,
	// but at least one click per successful save is kept and nothing panics.
	assert.NotEmpty(t, stored.Signals.CTAsClicked)
	assert.LessOrEqual(t, len(stored.Signals.CTAsClicked), 8)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (Record, error) {
	return Record{}, errors.New("db down")
}
func (failingStore) Save(context.Context, Record) (Record, error) {
	return Record{}, errors.New("db down")
}
func (failingStore) ForceSave(context.Context, Record) (Record, error) {
	return Record{}, errors.New("db down")
}

func TestStoreFailuresAreSwallowed(t *testing.T) {
	svc := NewService(failingStore{}, nil)
	rec := svc.Track(context.Background(), "sess-1", Signal{Kind: SignalPageView, Value: "/insurers"})
	assert.Equal(t, Insurer, rec.PersonaType, "in-memory scores stay authoritative")
}

type conflictingStore struct {
	*MemoryStore
	conflicts int
	forced    bool
}

func (s *conflictingStore) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.Version > 0 {
		s.conflicts++
		return Record{}, ErrVersionConflict
	}
	return s.MemoryStore.Save(ctx, rec)
}

func (s *conflictingStore) ForceSave(ctx context.Context, rec Record) (Record, error) {
	s.forced = true
	return s.MemoryStore.ForceSave(ctx, rec)
}

func TestTrackFallsBackToLastWriteWins(t *testing.T) {
	store := &conflictingStore{MemoryStore: NewMemoryStore()}
	svc := NewService(store, nil)
	rec := svc.Track(context.Background(), "sess-1", Signal{Kind: SignalPageView, Value: "/programs/senior"})

	assert.Equal(t, maxSaveAttempts, store.conflicts)
	assert.True(t, store.forced)
	assert.Equal(t, Senior, rec.PersonaType)
}
