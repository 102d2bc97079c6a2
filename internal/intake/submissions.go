package intake

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aim-injury/aim-intake/internal/aimos"
)

// ErrSubmissionNotFound is returned when a submission id is unknown. It also
// matches aimos.ErrIntakeNotFound.
var ErrSubmissionNotFound error = submissionNotFound{}

type submissionNotFound struct{}

func (submissionNotFound) Error() string { return "intake: submission not found" }

func (submissionNotFound) Is(target error) bool { return target == aimos.ErrIntakeNotFound }

var (
	// ErrMissingSession is returned when a save carries no session id.
	ErrMissingSession = errors.New("intake: session id is required")
)

// Submission is a stored intake form, draft or submitted.
type Submission struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Collected
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmissionStore persists intake submissions. Save inserts when ID is empty
// and updates the existing row otherwise.
type SubmissionStore interface {
	Save(ctx context.Context, sub *Submission) (*Submission, error)
	Get(ctx context.Context, id string) (*Submission, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// MemorySubmissionStore keeps submissions in process.
type MemorySubmissionStore struct {
	mu   sync.RWMutex
	subs map[string]*Submission
}

func NewMemorySubmissionStore() *MemorySubmissionStore {
	return &MemorySubmissionStore{subs: make(map[string]*Submission)}
}

func (s *MemorySubmissionStore) Save(ctx context.Context, sub *Submission) (*Submission, error) {
	if sub.SessionID == "" {
		return nil, ErrMissingSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	saved := *sub
	if saved.Status == "" {
		saved.Status = StatusDraft
	}
	if saved.ID == "" {
		saved.ID = uuid.NewString()
		saved.CreatedAt = now
	} else {
		existing, ok := s.subs[saved.ID]
		if !ok {
			return nil, ErrSubmissionNotFound
		}
		saved.CreatedAt = existing.CreatedAt
	}
	saved.UpdatedAt = now
	s.subs[saved.ID] = &saved
	out := saved
	return &out, nil
}

func (s *MemorySubmissionStore) Get(ctx context.Context, id string) (*Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	out := *sub
	return &out, nil
}

func (s *MemorySubmissionStore) UpdateStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return ErrSubmissionNotFound
	}
	sub.Status = status
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

// Count returns the number of stored submissions.
func (s *MemorySubmissionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
