package persona

import "strings"

// SignalKind names a behavioural signal.
type SignalKind string

const (
	SignalPageView        SignalKind = "page_view"
	SignalCTAClick        SignalKind = "cta_click"
	SignalAIMessage       SignalKind = "ai_message"
	SignalScrollDepth     SignalKind = "scroll_depth"
	SignalFormInteraction SignalKind = "form_interaction"
	SignalTimeOnSite      SignalKind = "time_on_site"
)

// Signal is one observation. Value holds the page path, CTA id, detected
// intent or form type; Amount holds scroll depth or seconds on site.
type Signal struct {
	Kind   SignalKind
	Value  string
	Amount int
}

type rule struct {
	kind     SignalKind
	contains []string
	target   Type
	delta    float64
}

// rules is evaluated top to bottom; the first rule of the signal's kind whose
// substring matches is applied and the rest are skipped.
var rules = []rule{
	{SignalPageView, []string{"/programs/wcb"}, InjuredWorker, 0.3},
	{SignalPageView, []string{"/programs/mva"}, MVA, 0.3},
	{SignalPageView, []string{"/programs/athletic"}, Athlete, 0.3},
	{SignalPageView, []string{"/programs/senior"}, Senior, 0.3},
	{SignalPageView, []string{"/employers"}, Employer, 0.4},
	{SignalPageView, []string{"/insurers"}, Insurer, 0.4},
	{SignalPageView, []string{"/book"}, Undetermined, -0.1},

	{SignalCTAClick, []string{"wcb"}, InjuredWorker, 0.25},
	{SignalCTAClick, []string{"mva"}, MVA, 0.25},
	{SignalCTAClick, []string{"athlete"}, Athlete, 0.25},
	{SignalCTAClick, []string{"senior"}, Senior, 0.25},
	{SignalCTAClick, []string{"employer"}, Employer, 0.3},
	{SignalCTAClick, []string{"insurer"}, Insurer, 0.3},
	{SignalCTAClick, []string{"book-now"}, Undetermined, -0.15},

	{SignalAIMessage, []string{"wcb", "work injury"}, InjuredWorker, 0.2},
	{SignalAIMessage, []string{"mva", "car accident"}, MVA, 0.2},
	{SignalAIMessage, []string{"sport", "athletic"}, Athlete, 0.2},
	{SignalAIMessage, []string{"employer", "workplace"}, Employer, 0.25},
}

// Apply folds sig into rec: it records the raw signal, applies at most one
// score adjustment, and refreshes the derived persona type. It reports whether
// the scores changed.
func Apply(rec *Record, sig Signal) bool {
	if rec.Scores == nil {
		rec.Scores = PriorScores()
	}
	if rec.Signals.ScrollDepth == nil {
		rec.Signals.ScrollDepth = map[string]int{}
	}

	switch sig.Kind {
	case SignalPageView:
		rec.Signals.PagesViewed = appendUnique(rec.Signals.PagesViewed, sig.Value)
	case SignalCTAClick:
		rec.Signals.CTAsClicked = append(rec.Signals.CTAsClicked, sig.Value)
	case SignalAIMessage:
		rec.Signals.AIMessages++
	case SignalScrollDepth:
		if sig.Amount > rec.Signals.ScrollDepth[sig.Value] {
			rec.Signals.ScrollDepth[sig.Value] = sig.Amount
		}
	case SignalFormInteraction:
		rec.Signals.FormInteractions = appendUnique(rec.Signals.FormInteractions, sig.Value)
	case SignalTimeOnSite:
		if sig.Amount > rec.Signals.TimeOnSite {
			rec.Signals.TimeOnSite = sig.Amount
		}
	}

	changed := false
	if r, ok := matchRule(sig); ok {
		adjust(rec.Scores, r.target, r.delta)
		changed = true
	}
	rec.PersonaType = rec.Scores.Top()
	return changed
}

func matchRule(sig Signal) (rule, bool) {
	value := sig.Value
	if sig.Kind == SignalAIMessage {
		value = strings.ToLower(value)
	}
	if value == "" {
		return rule{}, false
	}
	for _, r := range rules {
		if r.kind != sig.Kind {
			continue
		}
		for _, needle := range r.contains {
			if strings.Contains(value, needle) {
				return r, true
			}
		}
	}
	return rule{}, false
}

// adjust applies delta to one persona, clamps it to [0,1] and renormalises the
// whole distribution. Clamping happens per step, so arrival order can shift the
// final values slightly once a score saturates.
func adjust(scores Scores, target Type, delta float64) {
	v := scores[target] + delta
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	scores[target] = v
	normalize(scores)
}

func normalize(scores Scores) {
	sum := 0.0
	for _, t := range AllTypes {
		sum += scores[t]
	}
	if sum <= 0 {
		for k, v := range PriorScores() {
			scores[k] = v
		}
		return
	}
	for _, t := range AllTypes {
		scores[t] /= sum
	}
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
