package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aim-injury/aim-intake/internal/aimos"
	"github.com/aim-injury/aim-intake/internal/catalog"
	"github.com/aim-injury/aim-intake/internal/compliance"
	"github.com/aim-injury/aim-intake/internal/events"
	"github.com/aim-injury/aim-intake/internal/notify"
	"github.com/aim-injury/aim-intake/internal/persona"
	"github.com/aim-injury/aim-intake/internal/reviews"
)

type fakePersonas struct {
	current persona.Type
	intents []string
}

func (f *fakePersonas) Initialize(_ context.Context, sessionID string) persona.Record {
	return persona.Record{SessionID: sessionID, PersonaType: f.current, Scores: persona.Scores{f.current: 0.5}}
}

func (f *fakePersonas) TrackIntent(_ context.Context, sessionID, intent string) persona.Record {
	f.intents = append(f.intents, intent)
	return f.Initialize(context.Background(), sessionID)
}

type fakeContext struct {
	calls   int
	persona string
	err     error
}

func (f *fakeContext) GetAIContext(_ context.Context, personaCode, _ string) (aimos.AIContext, error) {
	f.calls++
	f.persona = personaCode
	if f.err != nil {
		return aimos.AIContext{}, f.err
	}
	return aimos.AIContext{AllowedPrograms: []string{"WCB Rehab"}, EligibilityNotes: "subject to approval"}, nil
}

type escalationCapture struct {
	sent []notify.Escalation
}

func (c *escalationCapture) NotifyEscalation(_ context.Context, e notify.Escalation) error {
	c.sent = append(c.sent, e)
	return nil
}

type scriptedResponder struct {
	resp Response
	err  error
	turn Turn
}

func (s *scriptedResponder) Name() string { return "scripted" }

func (s *scriptedResponder) Respond(_ context.Context, turn Turn) (Response, error) {
	s.turn = turn
	return s.resp, s.err
}

type orchestratorFixture struct {
	orch     *Orchestrator
	personas *fakePersonas
	context  *fakeContext
	log      *MemoryLogStore
	audit    *compliance.MemoryStore
	events   *events.MemoryLog
	outbox   *events.MemoryOutbox
	notifier *escalationCapture
	reviews  *reviews.MemoryStore
}

func newOrchestratorFixture(t *testing.T, responder ChatResponder, current persona.Type) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		personas: &fakePersonas{current: current},
		context:  &fakeContext{},
		log:      NewMemoryLogStore(),
		audit:    compliance.NewMemoryStore(),
		events:   events.NewMemoryLog(),
		outbox:   events.NewMemoryOutbox(),
		notifier: &escalationCapture{},
		reviews: reviews.NewMemoryStore(
			reviews.Review{ID: "r1", ReviewerName: "Dana", Rating: 5, Excerpt: "Back at work in weeks", PersonaTags: []string{"injured_worker"}, PublishedAt: time.Now()},
			reviews.Review{ID: "r2", ReviewerName: "Lee", Rating: 5, Excerpt: "Great for my knee", PersonaTags: []string{"athlete"}, PublishedAt: time.Now()},
		),
	}
	auditSvc := compliance.NewAuditService(f.audit)
	f.orch = NewOrchestrator(OrchestratorConfig{
		Responder:    responder,
		Personas:     f.personas,
		Context:      f.context,
		Testimonials: f.reviews,
		Log:          f.log,
		Audit:        auditSvc,
		Disclaimer:   compliance.NewDisclaimerService(auditSvc, compliance.DefaultDisclaimerConfig()),
		Notifier:     f.notifier,
		Events:       events.NewRecorder(f.events, f.outbox, nil),
		Catalog:      catalog.Default(),
	})
	return f
}

func (f *orchestratorFixture) auditTypes() []compliance.AuditEventType {
	var out []compliance.AuditEventType
	for _, e := range f.audit.Events() {
		out = append(out, e.EventType)
	}
	return out
}

func TestOrchestrator_AddressQuestion(t *testing.T) {
	cat := catalog.Default()
	f := newOrchestratorFixture(t, NewKeywordResponder(cat), persona.Undetermined)

	resp := f.orch.Respond(context.Background(), Request{SessionID: "sess-c", Message: "What's your address"})

	assert.False(t, resp.ShouldEscalate)
	assert.True(t, hasPhoneAction(resp.SuggestedActions, cat.Contact.PhoneDisplay))
	assert.True(t, strings.HasSuffix(resp.Message, compliance.DisclosureText))
	assert.Empty(t, f.notifier.sent)
	assert.Zero(t, f.context.calls, "undetermined persona does not fetch downstream context")
	assert.Empty(t, f.events.OfType(events.TypeChatEscalated))

	tr, ok := f.log.Transcript("sess-c")
	require.True(t, ok)
	require.Len(t, tr.Messages, 2)
	assert.Equal(t, "What's your address", tr.Messages[0].Content)
	assert.Equal(t, resp.Message, tr.Messages[1].Content)

	tracked := f.events.OfType("ai_message")
	require.Len(t, tracked, 1)
	pending, err := f.outbox.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestOrchestrator_DisclosureOnlyOnFirstReply(t *testing.T) {
	f := newOrchestratorFixture(t, NewKeywordResponder(nil), persona.Undetermined)

	resp := f.orch.Respond(context.Background(), Request{
		SessionID: "sess-2",
		Message:   "What are your hours?",
		History: []ChatMessage{
			{Role: ChatRoleUser, Content: "hi"},
			{Role: ChatRoleAssistant, Content: "Hi, I'm AIM AI."},
		},
	})
	assert.NotContains(t, resp.Message, compliance.DisclosureText)
}

func TestOrchestrator_RedactsPHI(t *testing.T) {
	responder := &scriptedResponder{resp: Response{Message: "I can help you book that now.", Intent: IntentBooking}}
	f := newOrchestratorFixture(t, responder, persona.Undetermined)

	f.orch.Respond(context.Background(), Request{
		SessionID: "sess-phi",
		Message:   "My SIN is 123-456-789, can I book?",
		History:   []ChatMessage{{Role: ChatRoleUser, Content: "born 1980-04-02"}},
	})

	assert.NotContains(t, responder.turn.Message, "123-456-789")
	assert.Contains(t, responder.turn.Message, "[REDACTED-SIN]")
	assert.Contains(t, responder.turn.History[0].Content, "[REDACTED-DOB]")
	assert.Contains(t, f.auditTypes(), compliance.EventPHIRedacted)

	tr, _ := f.log.Transcript("sess-phi")
	assert.NotContains(t, tr.Messages[0].Content, "123-456-789")
	assert.Equal(t, []string{IntentBooking}, f.personas.intents)
}

func TestOrchestrator_ResponderFailureEscalates(t *testing.T) {
	cat := catalog.Default()
	f := newOrchestratorFixture(t, &scriptedResponder{err: errors.New("bedrock timeout")}, persona.Undetermined)

	resp := f.orch.Respond(context.Background(), Request{SessionID: "sess-f", Message: "hello"})

	assert.True(t, resp.ShouldEscalate)
	assert.Contains(t, resp.Message, cat.Contact.PhoneDisplay)
	assert.NotContains(t, resp.Message, "bedrock")
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, []string{ReasonResponderFailure}, f.notifier.sent[0].Reasons)
	assert.Equal(t, "COLD", f.notifier.sent[0].Persona)
	assert.Contains(t, f.auditTypes(), compliance.EventEscalation)
	assert.Len(t, f.events.OfType(events.TypeChatEscalated), 1)
}

func TestOrchestrator_KeywordEscalation(t *testing.T) {
	f := newOrchestratorFixture(t, NewKeywordResponder(nil), persona.Senior)

	resp := f.orch.Respond(context.Background(), Request{SessionID: "sess-s", Message: "I'm retired and not sure which program fits"})

	assert.True(t, resp.ShouldEscalate)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, []string{ReasonSeniorUncertain}, f.notifier.sent[0].Reasons)
	assert.Equal(t, "SR", f.notifier.sent[0].Persona)
	tr, _ := f.log.Transcript("sess-s")
	assert.True(t, tr.Escalated)
}

func TestOrchestrator_BlocksUnsafeReply(t *testing.T) {
	responder := &scriptedResponder{resp: Response{Message: "Good news, you're eligible and fully covered!"}}
	f := newOrchestratorFixture(t, responder, persona.Undetermined)

	resp := f.orch.Respond(context.Background(), Request{SessionID: "sess-g", Message: "am I covered?"})

	assert.NotContains(t, resp.Message, "eligible")
	assert.Contains(t, resp.Message, "connect you with our team")
	assert.Contains(t, f.auditTypes(), compliance.EventResponseModified)
}

func TestOrchestrator_DeterminedPersonaContext(t *testing.T) {
	responder := &scriptedResponder{resp: Response{Message: "Our WCB program can help."}}
	f := newOrchestratorFixture(t, responder, persona.InjuredWorker)

	f.orch.Respond(context.Background(), Request{
		SessionID:   "sess-iw",
		Message:     "tell me about physio",
		ServiceName: "WCB Rehabilitation",
	})

	assert.Equal(t, "IW", f.context.persona)
	require.NotNil(t, responder.turn.Context.AIMOS)
	assert.Equal(t, []string{"WCB Rehab"}, responder.turn.Context.AIMOS.AllowedPrograms)
	require.Len(t, responder.turn.Context.Testimonials, 1)
	assert.Equal(t, "Dana", responder.turn.Context.Testimonials[0].ReviewerName)
	assert.Equal(t, persona.InjuredWorker, responder.turn.Persona)
	assert.Equal(t, "WCB Rehabilitation", responder.turn.Context.ServiceName)
}

func TestOrchestrator_ContextUnavailable(t *testing.T) {
	responder := &scriptedResponder{resp: Response{Message: "Sure."}}
	f := newOrchestratorFixture(t, responder, persona.Athlete)
	f.context.err = aimos.ErrNotConfigured

	resp := f.orch.Respond(context.Background(), Request{SessionID: "sess-a", Message: "I'm worried it won't help"})

	assert.Nil(t, responder.turn.Context.AIMOS)
	require.Len(t, responder.turn.Context.Testimonials, 1)
	assert.Equal(t, "Lee", responder.turn.Context.Testimonials[0].ReviewerName)
	assert.False(t, resp.ShouldEscalate)
}

func TestOrchestrator_RedactsServiceContext(t *testing.T) {
	responder := &scriptedResponder{resp: Response{Message: "Our physiotherapy team can help."}}
	f := newOrchestratorFixture(t, responder, persona.Undetermined)

	f.orch.Respond(context.Background(), Request{
		SessionID:      "sess-svc",
		Message:        "Tell me about this service",
		ServiceName:    "Physiotherapy",
		ServiceContext: "Patient SIN 123-456-789 asked about physio",
	})

	assert.NotContains(t, responder.turn.Context.ServiceDetails, "123-456-789")
	assert.Contains(t, responder.turn.Context.ServiceDetails, "[REDACTED-SIN]")
	assert.Contains(t, f.auditTypes(), compliance.EventPHIRedacted)
}
