package bootstrap

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/aim-injury/aim-intake/internal/aimos"
	"github.com/aim-injury/aim-intake/internal/booking"
	"github.com/aim-injury/aim-intake/internal/compliance"
	"github.com/aim-injury/aim-intake/internal/conversation"
	"github.com/aim-injury/aim-intake/internal/events"
	"github.com/aim-injury/aim-intake/internal/intake"
	"github.com/aim-injury/aim-intake/internal/leads"
	"github.com/aim-injury/aim-intake/internal/persona"
	"github.com/aim-injury/aim-intake/internal/reviews"
)

// LeadStore covers both lead and organisation-request persistence.
type LeadStore interface {
	leads.Repository
	leads.OrgRepository
}

// Stores groups every persistence backend the API needs.
type Stores struct {
	Personas    persona.Store
	EventLog    events.Log
	Outbox      events.Outbox
	Leads       LeadStore
	Tokens      booking.TokenStore
	Submissions intake.SubmissionStore
	Sessions    intake.SessionStore
	Reviews     reviews.Store
	ChatLog     conversation.LogStore
	Audit       compliance.Store
	Processed   aimos.ProcessedTracker
	// Durable is false when everything lives in process memory.
	Durable bool
}

// BuildStores uses Postgres for records and Redis for intake sessions when
// they are available, and in-memory stores for whatever is missing.
func BuildStores(pool *pgxpool.Pool, redisClient *redis.Client, sessionTTL time.Duration) Stores {
	var s Stores
	if pool != nil {
		s = Stores{
			Personas:    persona.NewPostgresStore(pool),
			EventLog:    events.NewPostgresLog(pool),
			Outbox:      events.NewOutboxStore(pool),
			Leads:       leads.NewPostgresRepository(pool),
			Tokens:      booking.NewPostgresTokenStore(pool),
			Submissions: intake.NewPostgresSubmissionStore(pool),
			Reviews:     reviews.NewPostgresStore(pool),
			ChatLog:     conversation.NewPostgresLogStore(pool),
			Audit:       compliance.NewPostgresStore(pool),
			Processed:   events.NewProcessedStore(pool),
			Durable:     true,
		}
	} else {
		s = Stores{
			Personas:    persona.NewMemoryStore(),
			EventLog:    events.NewMemoryLog(),
			Outbox:      events.NewMemoryOutbox(),
			Leads:       leads.NewInMemoryRepository(),
			Tokens:      booking.NewMemoryTokenStore(),
			Submissions: intake.NewMemorySubmissionStore(),
			Reviews:     reviews.NewMemoryStore(),
			ChatLog:     conversation.NewMemoryLogStore(),
			Audit:       compliance.NewMemoryStore(),
			Processed:   events.NewMemoryProcessedStore(),
		}
	}
	if redisClient != nil {
		s.Sessions = intake.NewRedisSessionStore(redisClient).WithTTL(sessionTTL)
	} else {
		s.Sessions = intake.NewMemorySessionStore()
	}
	return s
}
