package persona

import (
	"context"
	"errors"
	"strings"

	"github.com/aim-injury/aim-intake/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxSaveAttempts = 3

// Service loads, updates and persists persona records. Storage failures are
// logged and never returned: the in-memory record stays authoritative for the
// current request.
type Service struct {
	store  Store
	logger *logging.Logger
	tracer trace.Tracer
}

func NewService(store Store, logger *logging.Logger) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("aim.internal.persona"),
	}
}

// Initialize returns the stored record for the session or a fresh one seeded
// with the prior distribution.
func (s *Service) Initialize(ctx context.Context, sessionID string) Record {
	ctx, span := s.tracer.Start(ctx, "persona.initialize")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	rec, err := s.store.Get(ctx, sessionID)
	if err == nil {
		return rec
	}
	if !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		s.logger.Warn("persona lookup failed, using priors", "session_id", sessionID, "error", err)
		return NewRecord(sessionID)
	}
	fresh := NewRecord(sessionID)
	saved, err := s.store.Save(ctx, fresh)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			// Another request created it first.
			if existing, getErr := s.store.Get(ctx, sessionID); getErr == nil {
				return existing
			}
		}
		s.logger.Warn("persona create failed", "session_id", sessionID, "error", err)
		return fresh
	}
	return saved
}

// Track applies signals to the session's record and persists the result.
// Concurrent writers are resolved by re-reading and re-applying on version
// conflict; after maxSaveAttempts the last write wins.
func (s *Service) Track(ctx context.Context, sessionID string, signals ...Signal) Record {
	ctx, span := s.tracer.Start(ctx, "persona.track")
	defer span.End()
	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int("signals", len(signals)),
	)

	var rec Record
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		rec = s.Initialize(ctx, sessionID)
		for _, sig := range signals {
			Apply(&rec, sig)
		}
		saved, err := s.store.Save(ctx, rec)
		if err == nil {
			span.SetAttributes(attribute.String("persona", string(saved.PersonaType)))
			return saved
		}
		if !errors.Is(err, ErrVersionConflict) {
			span.RecordError(err)
			s.logger.Warn("persona save failed", "session_id", sessionID, "error", err)
			return rec
		}
	}

	s.logger.Warn("persona save kept conflicting, overwriting", "session_id", sessionID)
	saved, err := s.store.ForceSave(ctx, rec)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("persona force save failed", "session_id", sessionID, "error", err)
		return rec
	}
	return saved
}

// TrackIntent feeds a chat intent back into the session's scores.
func (s *Service) TrackIntent(ctx context.Context, sessionID, intent string) Record {
	return s.Track(ctx, sessionID, Signal{Kind: SignalAIMessage, Value: strings.ToLower(intent)})
}
