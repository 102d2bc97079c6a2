// Package phi screens free text and structured payloads for personal health
// information before they reach the model, the database or a downstream system.
//
// Detection is intentionally over-sensitive. Any structural pattern match, any
// clinical keyword, or any blocked field name makes the whole input invalid.
package phi

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Category names the kind of PHI that triggered a violation.
type Category string

const (
	CategorySIN          Category = "sin"
	CategoryHealthCard   Category = "health_card"
	CategoryPostalCode   Category = "postal_code"
	CategoryPhone        Category = "phone"
	CategoryEmail        Category = "email"
	CategoryDateOfBirth  Category = "date_of_birth"
	CategoryKeyword      Category = "keyword"
	CategoryBlockedField Category = "blocked_field"
)

// RefusalMessage is returned to visitors whose input is rejected.
const RefusalMessage = "I can't accept or process personal health information like diagnoses, medical records, or sensitive identifiers. " +
	"I can help you with general information about our services, booking appointments, or connecting you with our team. " +
	"All detailed medical information will be collected securely during your appointment."

// Violation records where PHI was found. The matched text itself is never kept.
type Violation struct {
	Category Category `json:"category"`
	Path     string   `json:"path"`
	Detail   string   `json:"detail"`
}

func (v Violation) String() string {
	return v.Detail
}

// Result is the outcome of a scan.
type Result struct {
	IsValid    bool        `json:"is_valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// Categories returns the distinct violation categories in stable order.
func (r Result) Categories() []string {
	seen := make(map[string]struct{}, len(r.Violations))
	for _, v := range r.Violations {
		seen[string(v.Category)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Details returns the human-readable violation messages.
func (r Result) Details() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Detail)
	}
	return out
}

type pattern struct {
	category Category
	re       *regexp.Regexp
}

var (
	sinPattern        = regexp.MustCompile(`\b\d{3}[-\s]?\d{3}[-\s]?\d{3}\b`)
	healthCardPattern = regexp.MustCompile(`(?i)\b[A-Z]{2}\d{9,10}\b`)
	dobPattern        = regexp.MustCompile(`\b\d{4}[-/]\d{2}[-/]\d{2}\b|\b\d{2}[-/]\d{2}[-/]\d{4}\b`)

	patterns = []pattern{
		{CategorySIN, sinPattern},
		{CategoryHealthCard, healthCardPattern},
		{CategoryPostalCode, regexp.MustCompile(`(?i)\b[A-Z]\d[A-Z]\s?\d[A-Z]\d\b`)},
		{CategoryPhone, regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
		{CategoryEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
		{CategoryDateOfBirth, dobPattern},
	}
)

var keywords = []string{
	"diagnosis",
	"diagnosed",
	"prescription",
	"medication",
	"medical history",
	"surgery",
	"treatment plan",
	"claim number",
	"policy number",
	"incident report",
	"blood pressure",
	"heart rate",
	"test results",
	"x-ray",
	"mri",
	"ct scan",
}

var blockedFields = []string{
	"diagnosis",
	"medical_history",
	"prescription",
	"medication",
	"treatment_plan",
	"claim_number",
	"policy_number",
	"sin",
	"health_card",
	"date_of_birth",
	"dob",
}

// ScanText checks a single string.
func ScanText(text string) Result {
	return scanString(text, "input")
}

// Option adjusts object scanning.
type Option func(*scanOptions)

type scanOptions struct {
	exemptValues map[string]struct{}
}

// ExemptValues skips value scanning for the named keys. Key names are still
// checked against the blocklist. Use it for sanctioned contact fields.
func ExemptValues(keys ...string) Option {
	return func(o *scanOptions) {
		for _, k := range keys {
			o.exemptValues[strings.ToLower(k)] = struct{}{}
		}
	}
}

// ScanObject walks maps, slices and strings recursively. Struct payloads should
// be decoded into map[string]any first.
func ScanObject(obj any, opts ...Option) Result {
	o := scanOptions{exemptValues: map[string]struct{}{}}
	for _, opt := range opts {
		opt(&o)
	}
	var violations []Violation
	walk(obj, "payload", &o, &violations)
	return Result{IsValid: len(violations) == 0, Violations: violations}
}

func walk(value any, path string, o *scanOptions, out *[]Violation) {
	switch v := value.(type) {
	case string:
		*out = append(*out, scanString(v, path).Violations...)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, blocked := range blockedFields {
			for _, k := range keys {
				if strings.Contains(strings.ToLower(k), blocked) {
					*out = append(*out, Violation{
						Category: CategoryBlockedField,
						Path:     path,
						Detail:   fmt.Sprintf("Blocked PHI field %q in %s", blocked, path),
					})
					break
				}
			}
		}
		for _, k := range keys {
			if _, skip := o.exemptValues[strings.ToLower(k)]; skip {
				continue
			}
			walk(v[k], path+"."+k, o, out)
		}
	case []any:
		for i, item := range v {
			walk(item, fmt.Sprintf("%s.%d", path, i), o, out)
		}
	case []string:
		for i, item := range v {
			walk(item, fmt.Sprintf("%s.%d", path, i), o, out)
		}
	}
}

func scanString(text, path string) Result {
	var violations []Violation
	for _, p := range patterns {
		if p.re.MatchString(text) {
			violations = append(violations, Violation{
				Category: p.category,
				Path:     path,
				Detail:   fmt.Sprintf("Detected potential %s in %s", p.category, path),
			})
		}
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			violations = append(violations, Violation{
				Category: CategoryKeyword,
				Path:     path,
				Detail:   fmt.Sprintf("Detected PHI keyword %q in %s", kw, path),
			})
		}
	}
	return Result{IsValid: len(violations) == 0, Violations: violations}
}

// Sanitize redacts the high-confidence identifiers and leaves the rest of the
// text intact. Placeholders replace matches rather than deleting them.
func Sanitize(text string) string {
	out := sinPattern.ReplaceAllString(text, "[REDACTED-SIN]")
	out = healthCardPattern.ReplaceAllString(out, "[REDACTED-HEALTH-CARD]")
	out = dobPattern.ReplaceAllString(out, "[REDACTED-DOB]")
	return out
}
