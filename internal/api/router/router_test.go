package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aim-injury/aim-intake/internal/booking"
	"github.com/aim-injury/aim-intake/internal/catalog"
	"github.com/aim-injury/aim-intake/internal/conversation"
	"github.com/aim-injury/aim-intake/internal/events"
	"github.com/aim-injury/aim-intake/internal/leads"
	"github.com/aim-injury/aim-intake/internal/persona"
	"github.com/aim-injury/aim-intake/internal/ratelimit"
	"github.com/aim-injury/aim-intake/internal/reviews"
	"github.com/aim-injury/aim-intake/pkg/logging"
)

func newTestRouter(t *testing.T, limit int) http.Handler {
	t.Helper()

	logger := logging.Default()
	cat := catalog.Default()
	recorder := events.NewRecorder(events.NewMemoryLog(), events.NewMemoryOutbox(), logger)
	personas := persona.NewService(persona.NewMemoryStore(), logger)

	orch := conversation.NewOrchestrator(conversation.OrchestratorConfig{
		Responder: conversation.NewKeywordResponder(cat),
		Personas:  personas,
		Events:    recorder,
		Catalog:   cat,
		Logger:    logger,
	})
	bookingSvc := booking.NewService(leads.NewInMemoryRepository(), booking.NewMemoryTokenStore(), recorder, booking.Options{Catalog: cat}, logger)

	return New(&Config{
		Logger:             logger,
		ChatHandler:        conversation.NewHandler(orch, logger),
		PersonaHandler:     persona.NewHandler(personas, recorder, cat, logger),
		BookingHandler:     booking.NewHandler(bookingSvc, nil, logger),
		ReviewsHandler:     reviews.NewHandler(reviews.NewMemoryStore(), logger),
		CORSAllowedOrigins: []string{"https://albertainjurymanagement.ca"},
		Limiter:            ratelimit.NewMemoryLimiter(limit, time.Minute),
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, 10)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterChatRateLimited(t *testing.T) {
	router := newTestRouter(t, 2)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/ai/chat", strings.NewReader(`{"message":"hello","sessionId":"s1"}`))
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, first.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, send().Code)
	third := send()
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Contains(t, third.Body.String(), "Rate limit exceeded")
}

func TestRouterRateLimitFamiliesAreSeparate(t *testing.T) {
	router := newTestRouter(t, 1)

	chat := httptest.NewRequest(http.MethodPost, "/ai/chat", strings.NewReader(`{"message":"hi"}`))
	chat.Header.Set("X-Forwarded-For", "203.0.113.8")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, chat)
	require.Equal(t, http.StatusOK, rr.Code)

	evt := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"event_type":"page_view","session_id":"s2","event_data":{"path":"/wcb"}}`))
	evt.Header.Set("X-Forwarded-For", "203.0.113.8")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, evt)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterPersonaLookup(t *testing.T) {
	router := newTestRouter(t, 10)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/persona/sess-9", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"persona_code":"COLD"`)
}

func TestRouterBookingLookupUnknown(t *testing.T) {
	router := newTestRouter(t, 10)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/booking/lookup", strings.NewReader(`{"booking_ref":"BK-UNKNOWN"}`)))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouterReviews(t *testing.T) {
	router := newTestRouter(t, 10)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reviews?limit=5", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"count":0`)
}

func TestRouterCORS(t *testing.T) {
	router := newTestRouter(t, 10)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/ai/chat", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	ok := preflight("https://albertainjurymanagement.ca")
	assert.Equal(t, http.StatusNoContent, ok.Code)
	assert.Equal(t, "https://albertainjurymanagement.ca", ok.Header().Get("Access-Control-Allow-Origin"))

	denied := preflight("https://evil.example")
	assert.Equal(t, http.StatusForbidden, denied.Code)
	assert.Empty(t, denied.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterUnmountedRoutes(t *testing.T) {
	router := New(&Config{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/ai/chat", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
