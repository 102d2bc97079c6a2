package conversation

import (
	"regexp"
	"strings"
)

// OutputGuardResult is the verdict on an outbound reply.
type OutputGuardResult struct {
	Blocked bool
	Reasons []string
}

type outputPattern struct {
	re     *regexp.Regexp
	reason string
}

var outputPatterns = []outputPattern{
	// Prompt and configuration disclosure.
	{regexp.MustCompile(`(?i)my (system\s+)?prompt\s+(is|says|tells|instructs)`), "leak:system_prompt_disclosure"},
	{regexp.MustCompile(`(?i)my instructions?\s+(are|say|tell|include|require)`), "leak:instructions_disclosure"},
	{regexp.MustCompile(`(?i)(here are|these are|the following are)\s+(my )?(system )?(instructions|rules|guidelines|prompts)`), "leak:rules_listing"},
	{regexp.MustCompile(`(?i)(powered by|built on|running on)\s+(Claude|GPT|OpenAI|Anthropic|Bedrock|Gemini|AWS)`), "leak:tech_stack"},
	{regexp.MustCompile(`(?i)\b(QUALIFIED_BOOK_NOW|QUALIFIED_CALLBACK|QUALIFIED_REVIEW|UNQUALIFIED|PATIENT_SELF_BOOK|EMPLOYER_CONSULT|INSURER_REFERRAL|CALLBACK_REQUIRED)\b`), "leak:internal_state"},

	// Credentials and infrastructure.
	{regexp.MustCompile(`(?i)(api[_\s]?key|secret[_\s]?key|access[_\s]?token|bearer\s+token)\s*[:=]\s*\S+`), "leak:credential"},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}`), "leak:aws_key"},
	{regexp.MustCompile(`(?i)(postgres|postgresql|redis)://\S+`), "leak:database_url"},
	{regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}:\d{2,5}\b`), "leak:ip_port"},
	{regexp.MustCompile(`(?i)/admin/|/webhooks/|/internal/|/debug/`), "leak:internal_path"},

	// Clinical and coverage promises the assistant may never make.
	{regexp.MustCompile(`(?i)\byou(?: are|'re) (definitely |fully )?eligible\b`), "policy:eligibility_promise"},
	{regexp.MustCompile(`(?i)\b(guaranteed to be covered|you won'?t (have to )?pay anything|(is|are) fully covered)\b`), "policy:coverage_promise"},
	{regexp.MustCompile(`(?i)\bwill (fix|cure|heal) your\b`), "policy:outcome_promise"},
	{regexp.MustCompile(`(?i)manual osteopathy (is|would be) covered (by|under) (wcb|workers)`), "policy:osteopathy_wcb"},
	{regexp.MustCompile(`(?i)\byou (probably |likely )?have (a |an )?(torn|herniated|fractured|sprained|pinched)\b`), "policy:diagnosis"},
}

// ScanOutput checks an outbound reply for leaks and disallowed claims. Any
// finding blocks the reply.
func ScanOutput(reply string) OutputGuardResult {
	if strings.TrimSpace(reply) == "" {
		return OutputGuardResult{}
	}
	var reasons []string
	for _, p := range outputPatterns {
		if p.re.MatchString(reply) {
			reasons = append(reasons, p.reason)
		}
	}
	return OutputGuardResult{Blocked: len(reasons) > 0, Reasons: reasons}
}
