package conversation

import (
	"regexp"
	"strings"
)

// keywordRule maps a set of phrases to a category. Phrases match
// case-insensitively at a word start, so "book" matches "booking" but "old"
// does not match "told".
type keywordRule struct {
	category string
	phrases  []string
	re       *regexp.Regexp
}

func newRule(category string, phrases ...string) keywordRule {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(p))
	}
	return keywordRule{
		category: category,
		phrases:  phrases,
		re:       regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)`),
	}
}

func (r keywordRule) matches(text string) bool {
	return r.re.MatchString(text)
}

// firstMatch returns the category of the first rule that matches text.
func firstMatch(rules []keywordRule, text string) (string, bool) {
	for _, r := range rules {
		if r.matches(text) {
			return r.category, true
		}
	}
	return "", false
}

// Escalation reasons.
const (
	ReasonEmergency        = "emergency"
	ReasonLegal            = "legal_or_dissatisfaction"
	ReasonHighValueOrg     = "high_value_organisation"
	ReasonSeniorUncertain  = "senior_uncertain"
	ReasonResponderFailure = "responder_failure"
)

var (
	emergencyRule = newRule(ReasonEmergency,
		"emergency", "911", "cant breathe", "can't breathe", "chest pain", "severe pain",
		"cant move", "can't move", "bleeding", "unconscious", "heart attack", "stroke",
	)
	legalRule = newRule(ReasonLegal,
		"lawsuit", "lawyer", "sue", "complaint", "medical records", "speak to manager",
		"talk to doctor", "unsatisfied", "disappointed", "confused", "frustrated", "anxious",
		"legal", "liability", "insurance question", "coverage question",
	)
	highValueRule = newRule(ReasonHighValueOrg,
		"employer", "company", "business", "corporation", "organization", "organisation",
		"insurer", "insurance company", "case manager",
	)
	seniorRule      = newRule("senior", "senior", "elderly", "old", "retired", "pension")
	uncertaintyRule = newRule("uncertain", "not sure", "unsure", "uncertain", "worried", "don't know", "dont know")
)

// Escalation is the local escalation verdict for one user message.
type Escalation struct {
	Escalate bool
	Reasons  []string
}

// DetectEscalation applies the escalation policy to the latest user message.
// Emergency, legal and organisation language escalates alone; senior language
// escalates only alongside uncertainty.
func DetectEscalation(message string) Escalation {
	var reasons []string
	for _, r := range []keywordRule{emergencyRule, legalRule, highValueRule} {
		if r.matches(message) {
			reasons = append(reasons, r.category)
		}
	}
	if seniorRule.matches(message) && uncertaintyRule.matches(message) {
		reasons = append(reasons, ReasonSeniorUncertain)
	}
	return Escalation{Escalate: len(reasons) > 0, Reasons: reasons}
}

// Intents, in evaluation order.
const (
	IntentWCB              = "wcb_inquiry"
	IntentMVA              = "mva_inquiry"
	IntentBooking          = "booking_request"
	IntentAthletic         = "athletic_inquiry"
	IntentEmployer         = "employer_inquiry"
	IntentSenior           = "senior_inquiry"
	IntentInsurer          = "insurer_inquiry"
	IntentReferral         = "referral_inquiry"
	IntentReturningPatient = "returning_patient"
	IntentManualOsteopathy = "manual_osteopathy_inquiry"
)

var intentRules = []keywordRule{
	newRule(IntentWCB, "wcb", "work injury", "workplace injury", "workplace accident", "workers comp", "injured at work"),
	newRule(IntentMVA, "mva", "car accident", "motor vehicle", "auto accident", "vehicle accident", "collision"),
	newRule(IntentBooking, "book", "appointment", "schedule"),
	newRule(IntentAthletic, "sport", "athlete", "athletic", "training", "performance", "injury prevention"),
	newRule(IntentEmployer, "employer", "workplace program", "company", "business", "corporate wellness", "workplace injury prevention"),
	newRule(IntentSenior, "senior", "elderly", "fall prevention", "mobility", "balance"),
	newRule(IntentInsurer, "insurer", "insurance company", "case manager", "adjuster"),
	newRule(IntentReferral, "referral", "referring", "doctor referred", "physician"),
	newRule(IntentReturningPatient, "returning patient", "been here before", "follow up", "previous appointment"),
	newRule(IntentManualOsteopathy, "manual osteopathy", "osteopathy", "osteopath", "hands-on therapy", "myofascial"),
}

// DetectIntent returns the first intent whose phrases appear in message.
func DetectIntent(message string) string {
	intent, _ := firstMatch(intentRules, message)
	return intent
}

// hesitationRule spots doubt that testimonials can address.
var hesitationRule = newRule("hesitation",
	"tried before", "didn't work", "hasn't helped", "not sure", "worried", "nervous",
	"concerned", "doubt", "skeptical", "failed", "previous", "other clinics", "other physio",
)

// ShowsHesitation reports whether message expresses doubt about treatment.
func ShowsHesitation(message string) bool {
	return hesitationRule.matches(message)
}
