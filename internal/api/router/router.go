package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aim-injury/aim-intake/internal/aimos"
	"github.com/aim-injury/aim-intake/internal/booking"
	"github.com/aim-injury/aim-intake/internal/conversation"
	httpmiddleware "github.com/aim-injury/aim-intake/internal/http/middleware"
	"github.com/aim-injury/aim-intake/internal/intake"
	"github.com/aim-injury/aim-intake/internal/persona"
	"github.com/aim-injury/aim-intake/internal/ratelimit"
	"github.com/aim-injury/aim-intake/internal/reviews"
	"github.com/aim-injury/aim-intake/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes
// unmounted.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *conversation.Handler
	PersonaHandler     *persona.Handler
	IntakeHandler      *intake.Handler
	BookingHandler     *booking.Handler
	ReviewsHandler     *reviews.Handler
	AIMOSWebhook       *aimos.WebhookHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Limiter backs every rate-limited route family. Nil disables limiting.
	Limiter ratelimit.Limiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	limited := func(prefix string) func(http.Handler) http.Handler {
		if cfg.Limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return httpmiddleware.RateLimit(cfg.Limiter, prefix, cfg.Logger)
	}

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler != nil {
		r.With(limited(httpmiddleware.KeyChat)).Post("/ai/chat", cfg.ChatHandler.Chat)
	}

	if cfg.PersonaHandler != nil {
		r.With(limited(httpmiddleware.KeyEvents)).Post("/events", cfg.PersonaHandler.TrackEvent)
		r.Get("/persona/{sessionID}", cfg.PersonaHandler.GetPersona)
	}

	if cfg.IntakeHandler != nil {
		r.Route("/intake", func(in chi.Router) {
			in.With(limited(httpmiddleware.KeyIntake)).Post("/conversation", cfg.IntakeHandler.Conversation)
			in.With(limited(httpmiddleware.KeyIntakeSave)).Post("/save", cfg.IntakeHandler.Save)
			in.With(limited(httpmiddleware.KeyIntake)).Post("/init", cfg.IntakeHandler.Init)
			in.With(limited(httpmiddleware.KeyIntake)).Post("/org", cfg.IntakeHandler.Org)
		})
	}

	if cfg.BookingHandler != nil {
		r.Route("/booking", func(b chi.Router) {
			b.Use(limited(httpmiddleware.KeyBooking))
			b.Post("/confirm", cfg.BookingHandler.Confirm)
			b.Post("/lookup", cfg.BookingHandler.Lookup)
			b.Post("/cancel", cfg.BookingHandler.Cancel)
			b.Post("/reschedule", cfg.BookingHandler.Reschedule)
		})
	}

	if cfg.ReviewsHandler != nil {
		r.Get("/reviews", cfg.ReviewsHandler.List)
	}

	if cfg.AIMOSWebhook != nil {
		r.Post("/webhooks/status", cfg.AIMOSWebhook.Handle)
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
