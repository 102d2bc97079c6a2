package conversation

// Suggested action types rendered as buttons by the widget.
const (
	ActionBooking     = "booking"
	ActionIntake      = "intake"
	ActionCall        = "call"
	ActionInformation = "information"
)

// SuggestedAction is a follow-up button offered with a reply.
type SuggestedAction struct {
	Type  string            `json:"type"`
	Label string            `json:"label"`
	Data  map[string]string `json:"data,omitempty"`
}

func pathAction(kind, label, path string) SuggestedAction {
	return SuggestedAction{Type: kind, Label: label, Data: map[string]string{"path": path}}
}

func phoneAction(label, phone string) SuggestedAction {
	return SuggestedAction{Type: ActionCall, Label: label, Data: map[string]string{"phone": phone}}
}

// SuggestedActions returns the buttons for an intent. Unknown or empty intents
// get a neutral set that always includes a call option.
func SuggestedActions(intent, phone string) []SuggestedAction {
	switch intent {
	case IntentBooking:
		return []SuggestedAction{pathAction(ActionBooking, "Book Appointment", "/book")}
	case IntentWCB, IntentMVA:
		return []SuggestedAction{
			pathAction(ActionIntake, "Start Intake Form", "/intake"),
			pathAction(ActionBooking, "Book Assessment", "/book"),
		}
	case IntentAthletic:
		return []SuggestedAction{
			pathAction(ActionInformation, "Athletic Programs", "/programs/athletic"),
			pathAction(ActionBooking, "Book Assessment", "/book"),
		}
	case IntentSenior:
		return []SuggestedAction{
			pathAction(ActionInformation, "Senior Programs", "/programs/senior"),
			phoneAction("Speak with Our Team", phone),
		}
	case IntentEmployer, IntentInsurer:
		return []SuggestedAction{pathAction(ActionCall, "Schedule Consultation", "/employers")}
	case IntentReferral, IntentReturningPatient:
		return []SuggestedAction{
			pathAction(ActionBooking, "Book Appointment", "/book"),
			phoneAction("Contact Us", phone),
		}
	case IntentManualOsteopathy:
		return []SuggestedAction{
			pathAction(ActionInformation, "Learn About Manual Osteopathy", "/services/manual-osteopathy"),
			pathAction(ActionBooking, "Book Manual Osteopathy", "/book"),
			phoneAction("Speak with Intake Team", phone),
		}
	}
	return []SuggestedAction{
		pathAction(ActionBooking, "Book Appointment", "/book"),
		pathAction(ActionInformation, "View Services", "/programs"),
		phoneAction("Call Us", phone),
	}
}
