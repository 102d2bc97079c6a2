package aimos

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSkipsWithoutCredentials(t *testing.T) {
	c := NewClient(Config{}, nil)
	assert.False(t, c.Enabled())

	status, err := c.SendEvent(context.Background(), Event{EventType: "page_view"})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, status.Status)

	status, err = c.ConfirmBooking(context.Background(), BookingConfirmation{BookingID: "lead-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, status.Status)

	_, err = c.InitiateIntake(context.Background(), IntakeHandoff{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.GetAIContext(context.Background(), "IW", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClientSendsBearerJSON(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "key-123"}, nil)
	status, err := c.SendEvent(context.Background(), Event{EventID: "e1", SessionID: "s1", EventType: "cta_click", Persona: "IW", Confidence: 0.4})
	require.NoError(t, err)
	assert.Equal(t, "accepted", status.Status)
	assert.Equal(t, "IW", got.Persona)
	assert.Equal(t, "s1", got.SessionID)
}

func TestClientGetAIContextQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/ai/context", r.URL.Path)
		assert.Equal(t, "EMP", r.URL.Query().Get("persona"))
		assert.Equal(t, "return-to-work", r.URL.Query().Get("program"))
		_, _ = w.Write([]byte(`{"allowed_programs":["return-to-work"],"eligibility_notes":"Employer referral required","escalation_rules":["legal questions"]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, nil)
	ctxResp, err := c.GetAIContext(context.Background(), "EMP", "return-to-work")
	require.NoError(t, err)
	assert.Equal(t, []string{"return-to-work"}, ctxResp.AllowedPrograms)
	assert.Equal(t, "Employer referral required", ctxResp.EligibilityNotes)
}

func TestClientReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, nil)
	_, err := c.InitiateIntake(context.Background(), IntakeHandoff{HandoffToken: "BK-1"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "/intake/init", apiErr.Path)
}

func TestClientHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond}, nil)
	start := time.Now()
	_, err := c.ConfirmBooking(context.Background(), BookingConfirmation{BookingID: "x"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClientBoundsCallerHTTPClient(t *testing.T) {
	caller := &http.Client{}
	c := NewClient(Config{APIKey: "k", HTTPClient: caller}, nil)
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)
	assert.Zero(t, caller.Timeout)

	custom := NewClient(Config{APIKey: "k", Timeout: time.Second, HTTPClient: &http.Client{}}, nil)
	assert.Equal(t, time.Second, custom.httpClient.Timeout)

	own := &http.Client{Timeout: 2 * time.Second}
	kept := NewClient(Config{APIKey: "k", HTTPClient: own}, nil)
	assert.Same(t, own, kept.httpClient)
}
