// Package persona infers which kind of visitor a session belongs to from the
// behavioural signals it produces on the site and in chat.
package persona

import "time"

// Type identifies a visitor persona.
type Type string

const (
	InjuredWorker    Type = "injured_worker"
	MVA              Type = "mva"
	Athlete          Type = "athlete"
	Senior           Type = "senior"
	Employer         Type = "employer"
	Insurer          Type = "insurer"
	ReferralPartner  Type = "referral_partner"
	ReturningPatient Type = "returning_patient"
	Undetermined     Type = "undetermined"
)

// AllTypes lists every persona in tie-break order.
var AllTypes = []Type{
	InjuredWorker,
	MVA,
	Athlete,
	Senior,
	Employer,
	Insurer,
	ReferralPartner,
	ReturningPatient,
	Undetermined,
}

// DeterminedThreshold is the score the leading persona must exceed before it
// is reported instead of undetermined.
const DeterminedThreshold = 0.25

// Valid reports whether t is a known persona.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Code returns the short code AIM OS uses for the persona.
func (t Type) Code() string {
	switch t {
	case InjuredWorker:
		return "IW"
	case MVA:
		return "MVA"
	case Athlete:
		return "ATH"
	case Senior:
		return "SR"
	case Employer:
		return "EMP"
	case Insurer:
		return "INS"
	case ReferralPartner:
		return "REF"
	case ReturningPatient:
		return "RET"
	default:
		return "COLD"
	}
}

// Scores maps every persona to its share of confidence. Values sum to 1.
type Scores map[Type]float64

// PriorScores returns the starting distribution for a new session.
func PriorScores() Scores {
	s := make(Scores, len(AllTypes))
	for _, t := range AllTypes {
		s[t] = 0.1
	}
	s[Undetermined] = 0.2
	return s
}

// Clone copies the scores.
func (s Scores) Clone() Scores {
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Top returns the highest scoring persona, or undetermined when no score
// exceeds DeterminedThreshold. Ties go to the earlier persona in AllTypes.
func (s Scores) Top() Type {
	top, best := Undetermined, 0.0
	for _, t := range AllTypes {
		if s[t] > best {
			top, best = t, s[t]
		}
	}
	if best > DeterminedThreshold {
		return top
	}
	return Undetermined
}

// Max returns the highest individual score.
func (s Scores) Max() float64 {
	best := 0.0
	for _, v := range s {
		if v > best {
			best = v
		}
	}
	return best
}

// Ranked returns the n highest scoring personas in descending order.
func (s Scores) Ranked(n int) []Type {
	ranked := make([]Type, 0, len(AllTypes))
	ranked = append(ranked, AllTypes...)
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && s[ranked[j]] > s[ranked[j-1]]; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Signals accumulates the raw behaviour observed for a session.
type Signals struct {
	PagesViewed      []string       `json:"pages_viewed"`
	CTAsClicked      []string       `json:"ctas_clicked"`
	ScrollDepth      map[string]int `json:"scroll_depth"`
	TimeOnSite       int            `json:"time_on_site"`
	AIMessages       int            `json:"ai_messages"`
	FormInteractions []string       `json:"form_interactions"`
}

// Record is the persisted persona state of one session.
type Record struct {
	SessionID   string    `json:"session_id"`
	PersonaType Type      `json:"persona_type"`
	Scores      Scores    `json:"confidence_scores"`
	Signals     Signals   `json:"behavioral_signals"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRecord returns a fresh record holding the prior distribution.
func NewRecord(sessionID string) Record {
	now := time.Now().UTC()
	return Record{
		SessionID:   sessionID,
		PersonaType: Undetermined,
		Scores:      PriorScores(),
		Signals:     Signals{ScrollDepth: map[string]int{}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
