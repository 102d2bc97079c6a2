package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aim-injury/aim-intake/internal/catalog"
	"github.com/aim-injury/aim-intake/internal/observability/metrics"
	"github.com/aim-injury/aim-intake/internal/persona"
)

// Responder names reported in metrics and logs.
const (
	ResponderLLM     = "llm"
	ResponderKeyword = "keyword"
)

const maxHistoryMessages = 20

// Turn is one visitor message plus everything known about the session.
type Turn struct {
	SessionID string
	Message   string
	History   []ChatMessage
	Persona   persona.Type
	Context   PromptContext
}

// Response is the chat reply returned to the widget.
type Response struct {
	Message           string            `json:"message"`
	Intent            string            `json:"intent,omitempty"`
	ShouldEscalate    bool              `json:"shouldEscalate"`
	SuggestedActions  []SuggestedAction `json:"suggestedActions"`
	EscalationReasons []string          `json:"-"`
}

// ChatResponder produces replies. Implementations share the classification
// step so every response has the same shape.
type ChatResponder interface {
	Name() string
	Respond(ctx context.Context, turn Turn) (Response, error)
}

// classify fills intent, escalation and actions from the visitor's message.
func classify(message, phone string) Response {
	intent := DetectIntent(message)
	esc := DetectEscalation(message)
	return Response{
		Intent:            intent,
		ShouldEscalate:    esc.Escalate,
		EscalationReasons: esc.Reasons,
		SuggestedActions:  SuggestedActions(intent, phone),
	}
}

// FailureResponse is returned whenever a responder fails. It never exposes
// the underlying error.
func FailureResponse(cat *catalog.Catalog) Response {
	return Response{
		Message: fmt.Sprintf("I apologize, but I am currently unable to process your request. Please contact us directly at %s or %s.",
			cat.Contact.PhoneDisplay, cat.Contact.Email),
		ShouldEscalate:    true,
		EscalationReasons: []string{ReasonResponderFailure},
		SuggestedActions:  []SuggestedAction{phoneAction("Call Us Now", cat.Contact.PhoneDisplay)},
	}
}

// LLMConfig tunes LLMResponder requests.
type LLMConfig struct {
	Model       string
	MaxTokens   int32
	Temperature float32
	// Timeout bounds one completion, including any fallback provider.
	Timeout time.Duration
}

// LLMResponder answers through a language model.
type LLMResponder struct {
	client  LLMClient
	cfg     LLMConfig
	catalog *catalog.Catalog
	system  string
	metrics *metrics.Metrics
}

func NewLLMResponder(client LLMClient, cfg LLMConfig, cat *catalog.Catalog, m *metrics.Metrics) *LLMResponder {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	if cat == nil {
		cat = catalog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	return &LLMResponder{client: client, cfg: cfg, catalog: cat, system: SystemPrompt(cat), metrics: m}
}

func (r *LLMResponder) Name() string { return ResponderLLM }

func (r *LLMResponder) Respond(ctx context.Context, turn Turn) (Response, error) {
	req := LLMRequest{
		Model:       r.cfg.Model,
		System:      []string{r.system, turn.Context.Render()},
		Messages:    conversationWindow(turn.History, turn.Message, maxHistoryMessages),
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	}
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	started := time.Now()
	out, err := r.client.Complete(ctx, req)
	elapsed := time.Since(started).Seconds()
	if err != nil {
		r.metrics.ObserveLLMLatency("unknown", elapsed, true)
		return Response{}, err
	}
	r.metrics.ObserveLLMLatency(out.Provider, elapsed, false)
	if out.Text == "" {
		return Response{}, errors.New("conversation: llm returned an empty reply")
	}

	resp := classify(turn.Message, r.catalog.Contact.PhoneDisplay)
	resp.Message = out.Text
	return resp, nil
}

// KeywordResponder answers from canned, persona-aware replies. It is used
// when no model credentials are configured.
type KeywordResponder struct {
	catalog *catalog.Catalog
}

func NewKeywordResponder(cat *catalog.Catalog) *KeywordResponder {
	if cat == nil {
		cat = catalog.Default()
	}
	return &KeywordResponder{catalog: cat}
}

func (r *KeywordResponder) Name() string { return ResponderKeyword }

func (r *KeywordResponder) Respond(_ context.Context, turn Turn) (Response, error) {
	phone := r.catalog.Contact.PhoneDisplay
	resp := classify(turn.Message, phone)

	switch {
	case containsReason(resp.EscalationReasons, ReasonEmergency):
		resp.Message = fmt.Sprintf("If this is a medical emergency, please call 911 now. For anything else, our team can help at %s.", phone)
	case resp.ShouldEscalate:
		resp.Message = fmt.Sprintf("I want to make sure this is handled properly. Let me connect you with our team at %s.", phone)
	case resp.Intent != "":
		resp.Message = cannedReply(resp.Intent, turn.Persona, phone)
	default:
		resp.Message = r.topicReply(turn.Message, turn.Persona)
	}
	return resp, nil
}

func (r *KeywordResponder) topicReply(message string, p persona.Type) string {
	phone := r.catalog.Contact.PhoneDisplay
	if topic, ok := firstMatch(topicRules, message); ok {
		switch topic {
		case "locations":
			hub := r.catalog.MainHub()
			return fmt.Sprintf("Our main clinic is %s at %s, %s. You can see every location on our locations page, or call us at %s.",
				hub.Name, hub.Address, hub.City, phone)
		case "insurance":
			return "This program is commonly covered by WCB Alberta or MVA insurance, subject to approval. Our team coordinates directly with insurers and employers and would confirm eligibility and coverage for your situation."
		case "hours":
			return fmt.Sprintf("We offer flexible scheduling and hours vary by location. Please call us at %s or use our online booking to find a time that works for you.", phone)
		case "greeting":
			return greeting(p)
		}
	}
	if msg, ok := fallbackReplies[p]; ok {
		return fmt.Sprintf(msg, phone)
	}
	return fmt.Sprintf("I'm here to help! I can help you book an appointment or provide information. What would you like to know? You can also reach our team directly at %s.", phone)
}

var topicRules = []keywordRule{
	newRule("locations", "location", "where", "address", "clinic", "office"),
	newRule("insurance", "insurance", "billing", "cost", "price", "coverage", "pay"),
	newRule("hours", "hours", "open", "when", "available", "time"),
	newRule("greeting", "hello", "hi", "hey", "help", "start"),
}

func greeting(p persona.Type) string {
	switch p {
	case persona.InjuredWorker:
		return "Hi, I'm AIM AI. I see you might be dealing with a work injury. I can help you book care, understand our WCB programs, or guide you to the right next step. How can I help today?"
	case persona.MVA:
		return "Hi, I'm AIM AI. I understand you may be recovering from a motor vehicle accident. I can help you book care, understand our MVA programs, or guide you to the right next step. How can I help today?"
	case persona.Athlete:
		return "Hi, I'm AIM AI. I see you're interested in athletic performance. I can help you book care, understand our athletic programs, or guide you to the right next step. How can I help today?"
	default:
		return "Hi, I'm AIM AI. I can help you book care, understand our programs, or guide you to the right next step. How can I help today?"
	}
}

var fallbackReplies = map[persona.Type]string{
	persona.InjuredWorker:    "I'd be happy to help you with information about our WCB services and work injury rehabilitation. I can help you book an appointment now, or would you like to speak with someone directly at %s?",
	persona.MVA:              "I can provide information about our MVA recovery programs. Would you like to book an appointment now, or would you prefer to speak with our team at %s?",
	persona.Athlete:          "I can help with information about our athletic programs. I can help you book an appointment now, or shall I connect you with our team at %s?",
	persona.Senior:           "I can provide information about our senior care and mobility programs. Would you like to speak with our team at %s to make sure you get the right support?",
	persona.Employer:         "I want to make sure this is handled properly. Let me connect you with our employer services team at %s.",
	persona.Insurer:          "I want to make sure this is handled properly. Let me connect you with our team at %s to discuss case management services.",
	persona.ReferralPartner:  "Thank you for considering referring your patients. Let me connect you with our team at %s to provide information about our referral process.",
	persona.ReturningPatient: "Welcome back! I can help you book an appointment now, or you can reach our team at %s.",
}

var bookingReplies = map[persona.Type]string{
	persona.InjuredWorker:    "I can help you book that now. This program is commonly used for situations like yours. We offer direct WCB billing and specialized return-to-work programs, subject to approval.",
	persona.MVA:              "I can help you book that now. This program is commonly used for situations like yours. We handle direct insurance billing and specialize in motor vehicle accident recovery, subject to approval.",
	persona.Athlete:          "I can help you book that now. Many people in similar situations start with this program. Our therapists specialize in athletic injuries and performance optimization.",
	persona.Senior:           "I can help with that. Our team would confirm eligibility and next steps. Let me connect you with our team who specialize in senior care.",
	persona.Employer:         "I want to make sure this is handled properly. Let me connect you with our team who can discuss how we support workplace injury prevention programs.",
	persona.Insurer:          "I want to make sure this is handled properly. Let me connect you with our team who can coordinate case management services and comprehensive reporting.",
	persona.ReferralPartner:  "Thank you for considering referring your patients to us. Let me connect you with our team to provide information about our referral process.",
	persona.ReturningPatient: "Welcome back! I can help you schedule your next appointment.",
	persona.Undetermined:     "I can help you book that now. Was your injury related to work, a car accident, or personal activity?",
}

func cannedReply(intent string, p persona.Type, phone string) string {
	switch intent {
	case IntentBooking:
		if msg, ok := bookingReplies[p]; ok {
			return msg
		}
		return "I can help you book an appointment. Let me connect you with our booking system."
	case IntentWCB:
		return "This program is commonly used for situations like yours. We specialize in WCB rehabilitation and return-to-work programs, including direct WCB billing (subject to approval), functional capacity evaluations and early intervention. Our team would confirm eligibility and next steps."
	case IntentMVA:
		return "This program is commonly used for situations like yours. Our MVA recovery program supports people recovering from motor vehicle accident injuries and is commonly covered by MVA insurance, subject to approval. Our team coordinates directly with insurers."
	case IntentAthletic:
		return "Our athletic program focuses on performance rehabilitation and injury prevention. We work with athletes at all levels to support performance and recovery from sports injuries."
	case IntentSenior:
		return "Our senior care program includes fall prevention, balance training and mobility programs designed to help you stay independent. Would you like to speak with our team to find the right fit?"
	case IntentEmployer:
		return "We work with employers on return-to-work programs, workplace injury prevention and corporate wellness. Are you looking to refer an employee for care, or set up a program?"
	case IntentInsurer:
		return "We coordinate with insurers and case managers on referrals and reporting. Are you referring a patient, or asking about reporting and outcomes?"
	case IntentReferral:
		return "Thank you for considering a referral. You can book an appointment online, or our team can walk you through the referral process."
	case IntentReturningPatient:
		return "Welcome back! I can help you book your next appointment, or connect you with our team."
	case IntentManualOsteopathy:
		return fmt.Sprintf("Manual osteopathy is a hands-on, complementary therapy focused on improving movement and reducing restrictions in the body. At AIM, it's often used alongside physiotherapy or other services. It is not covered by WCB or motor vehicle insurance; if your care relates to a work injury, please contact our intake team at %s.", phone)
	}
	return ""
}

func containsReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}
