package booking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/booking", strings.NewReader(body)))
	return rec
}

func TestConfirmHandler(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil, nil)

	rec := post(h.Confirm, `{"persona":"ATH","contact_method":"phone","contact_value":"(780) 555-0100","preferred_times":["2026-05-04 09:00"],"booking_mode":"PATIENT_SELF_BOOK"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, SelfBookMessage, resp["message"])
	assert.NotEmpty(t, resp["booking_ref"])
}

func TestConfirmHandlerRejectsPHI(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil, nil)

	rec := post(h.Confirm, `{"persona":"IW","contact_method":"phone","contact_value":"7805550100","notes":"had an MRI last week, SIN 123-456-789"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error      string   `json:"error"`
		Violations []string `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PHI detected in request", resp.Error)
	assert.ElementsMatch(t, []string{"keyword", "sin"}, resp.Violations)
	assert.NotContains(t, rec.Body.String(), "123-456-789")
	assert.Empty(t, f.aimos.calls)
}

func TestConfirmHandlerValidation(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil, nil)

	rec := post(h.Confirm, `{"persona":"IW","contact_method":"fax","contact_value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request data")

	rec = post(h.Confirm, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLifecycleHandlers(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil, nil)
	out := f.confirm(t, "")

	rec := post(h.Lookup, `{"booking_ref":"`+out.BookingRef+`","action":"lookup"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"active"`)

	rec = post(h.Reschedule, `{"booking_ref":"`+out.BookingRef+`","new_time":"2026-05-08 14:00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), rescheduledMessage)

	rec = post(h.Cancel, `{"booking_ref":"`+out.BookingRef+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(h.Lookup, `{"booking_ref":"BK-UNKNOWN"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpiredReferenceIsGone(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil, nil)
	out := f.confirm(t, "")
	f.advance(31 * 24 * time.Hour)

	for i := 0; i < 2; i++ {
		rec := post(h.Cancel, `{"booking_ref":"`+out.BookingRef+`","cancel_reason":"other"}`)
		assert.Equal(t, http.StatusGone, rec.Code)
		assert.JSONEq(t, `{"error":"Booking reference has expired"}`, rec.Body.String())
	}
}
