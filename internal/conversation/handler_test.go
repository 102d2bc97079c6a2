package conversation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aim-injury/aim-intake/internal/persona"
)

func TestHandler_Chat(t *testing.T) {
	f := newOrchestratorFixture(t, NewKeywordResponder(nil), persona.Undetermined)
	h := NewHandler(f.orch, nil)

	body := `{"message":"What's your address","sessionId":"sess-h","history":[],"serviceName":"Physiotherapy"}`
	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/ai/chat", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, false, got["shouldEscalate"])
	assert.NotEmpty(t, got["message"])
	actions, ok := got["suggestedActions"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, actions)

	_, logged := f.log.Transcript("sess-h")
	assert.True(t, logged)
}

func TestHandler_ChatSnakeCaseSession(t *testing.T) {
	f := newOrchestratorFixture(t, NewKeywordResponder(nil), persona.Undetermined)
	h := NewHandler(f.orch, nil)

	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/ai/chat", strings.NewReader(`{"message":"hi","session_id":"sess-snake"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	_, logged := f.log.Transcript("sess-snake")
	assert.True(t, logged)
}

func TestHandler_ChatValidation(t *testing.T) {
	f := newOrchestratorFixture(t, NewKeywordResponder(nil), persona.Undetermined)
	h := NewHandler(f.orch, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing message", `{"sessionId":"s"}`, "Message is required"},
		{"blank message", `{"message":"   "}`, "Message is required"},
		{"bad json", `{"message":`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Chat(rec, httptest.NewRequest(http.MethodPost, "/ai/chat", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}
