package persona

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a session has no persona record yet.
	ErrNotFound = errors.New("persona: record not found")
	// ErrVersionConflict is returned when a concurrent writer saved first.
	ErrVersionConflict = errors.New("persona: version conflict")
)

// Store persists persona records.
//
// Save writes rec only if the stored version still equals rec.Version (zero
// meaning "not yet stored") and returns the record with its new version.
// ForceSave ignores the version.
type Store interface {
	Get(ctx context.Context, sessionID string) (Record, error)
	Save(ctx context.Context, rec Record) (Record, error)
	ForceSave(ctx context.Context, rec Record) (Record, error)
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Save(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[rec.SessionID]
	if (!ok && rec.Version != 0) || (ok && current.Version != rec.Version) {
		return Record{}, ErrVersionConflict
	}
	return s.store(rec), nil
}

func (s *MemoryStore) ForceSave(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.records[rec.SessionID]; ok {
		rec.Version = current.Version
	}
	return s.store(rec), nil
}

func (s *MemoryStore) store(rec Record) Record {
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	s.records[rec.SessionID] = cloneRecord(rec)
	return rec
}

func cloneRecord(rec Record) Record {
	out := rec
	out.Scores = rec.Scores.Clone()
	out.Signals.PagesViewed = append([]string(nil), rec.Signals.PagesViewed...)
	out.Signals.CTAsClicked = append([]string(nil), rec.Signals.CTAsClicked...)
	out.Signals.FormInteractions = append([]string(nil), rec.Signals.FormInteractions...)
	out.Signals.ScrollDepth = make(map[string]int, len(rec.Signals.ScrollDepth))
	for k, v := range rec.Signals.ScrollDepth {
		out.Signals.ScrollDepth[k] = v
	}
	return out
}
