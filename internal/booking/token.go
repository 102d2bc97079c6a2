package booking

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TokenStatus is the lifecycle state of a booking token. Tokens only move
// out of active, never back.
type TokenStatus string

const (
	TokenActive    TokenStatus = "active"
	TokenUsed      TokenStatus = "used"
	TokenCancelled TokenStatus = "cancelled"
	TokenExpired   TokenStatus = "expired"
)

// DefaultTokenTTL is how long a booking reference stays usable.
const DefaultTokenTTL = 30 * 24 * time.Hour

// Token lets a visitor look up, cancel or reschedule a request without an
// account.
type Token struct {
	BookingRef string         `json:"booking_ref"`
	LeadID     string         `json:"lead_id"`
	Status     TokenStatus    `json:"status"`
	ActionType string         `json:"action_type"`
	ExpiresAt  time.Time      `json:"expires_at"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// NewRef returns a fresh booking reference.
func NewRef() string {
	return "BK-" + ulid.Make().String()
}

// NormalizeRef trims and upper-cases a reference typed by a visitor.
func NormalizeRef(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

// TokenStore persists booking tokens.
//
// Expire and Transition only act on tokens that are still active. Expire
// reports whether it flipped the token; Transition returns ErrNotFound when
// the token is no longer active.
type TokenStore interface {
	Create(ctx context.Context, tok Token) error
	Get(ctx context.Context, ref string) (Token, error)
	Expire(ctx context.Context, ref string) (bool, error)
	Transition(ctx context.Context, ref string, to TokenStatus, metadata map[string]any) error
}

// MemoryTokenStore keeps tokens in process memory.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]Token
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]Token)}
}

func (s *MemoryTokenStore) Create(_ context.Context, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}
	tok.Metadata = copyMetadata(tok.Metadata)
	s.tokens[tok.BookingRef] = tok
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, ref string) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[ref]
	if !ok {
		return Token{}, ErrNotFound
	}
	tok.Metadata = copyMetadata(tok.Metadata)
	return tok, nil
}

func (s *MemoryTokenStore) Expire(_ context.Context, ref string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[ref]
	if !ok || tok.Status != TokenActive {
		return false, nil
	}
	tok.Status = TokenExpired
	s.tokens[ref] = tok
	return true, nil
}

func (s *MemoryTokenStore) Transition(_ context.Context, ref string, to TokenStatus, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[ref]
	if !ok || tok.Status != TokenActive {
		return ErrNotFound
	}
	tok.Status = to
	tok.Metadata = copyMetadata(metadata)
	s.tokens[ref] = tok
	return nil
}

func copyMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
