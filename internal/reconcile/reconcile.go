// Package reconcile merges the overlapping data sources carried by a
// post-call analysis event into one authoritative CallSession. Precedence
// per field, highest first: values collected live through tool arguments
// (already stored on the session), the voice platform's structured
// analysis fields, transcript mining, and finally inspection of tool
// invocations embedded in the transcript. A populated field is never
// downgraded to empty.
package reconcile

import (
	"strings"
	"time"

	"receptionist_backend/internal/session"
)

// CallAnalysis is the voice platform's structured post-call model output.
type CallAnalysis struct {
	CallSummary        string         `json:"call_summary"`
	UserSentiment      string         `json:"user_sentiment"`
	CallSuccessful     bool           `json:"call_successful"`
	InVoicemail        bool           `json:"in_voicemail"`
	CustomAnalysisData map[string]any `json:"custom_analysis_data"`
}

// Utterance is one entry of the transcript-with-tool-calls list. Role is
// one of agent, user, tool_call_invocation, tool_call_result.
type Utterance struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	Arguments  string `json:"arguments,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// Analysis is the reconciler's view of a call_analyzed event.
type Analysis struct {
	CallID              string
	Direction           string
	FromNumber          string
	ToNumber            string
	Transcript          string
	TranscriptWithTools []Utterance
	CallAnalysis        *CallAnalysis
	DynamicVariables    map[string]any
	DisconnectionReason string
	StartTimestampMS    int64
	EndTimestampMS      int64
}

// midFunnelStates are agent-state markers that indicate the conversation
// ended inside the intake or booking funnel. A disconnect from one of
// these without a confirmed booking is a dead end needing review.
var midFunnelStates = map[string]bool{
	"collect_problem":    true,
	"urgency_assessment": true,
	"check_availability": true,
	"booking":            true,
	"book_appointment":   true,
	"scheduling":         true,
}

// Reconcile produces the authoritative session for an analyzed call.
// stored may be nil when the analysis event is the first sighting of the
// call id; a fresh session is created in that case. The input is never
// mutated.
func Reconcile(stored *session.CallSession, ev Analysis) *session.CallSession {
	var s session.CallSession
	if stored != nil {
		s = *stored
	} else {
		s = *session.NewCallSession(ev.CallID)
	}

	if s.Direction == "" {
		s.Direction = ev.Direction
	}
	fillIfEmpty(&s.FromNumber, ev.FromNumber)
	fillIfEmpty(&s.ToNumber, ev.ToNumber)

	applyDynamicVariables(&s, ev.DynamicVariables)
	applyCallAnalysis(&s, ev.CallAnalysis)
	applyTranscript(&s, ev.Transcript)
	recoverBooking(&s, ev.TranscriptWithTools)

	// Analysis artifacts come only from this event; overwrite rather than
	// fill so a redelivered event with a corrected transcript wins.
	session.SetString(&s.CallSummary, summaryOf(ev.CallAnalysis))
	session.SetString(&s.UserSentiment, sentimentOf(ev.CallAnalysis))
	session.SetString(&s.DisconnectionReason, ev.DisconnectionReason)
	session.SetString(&s.Transcript, ev.Transcript)

	applyTimestamps(&s, ev)
	applyDisconnectDefaults(&s, ev)

	return &s
}

// applyDynamicVariables folds the live-collected variables into empty
// fields. These rank just below values already stored during the call.
func applyDynamicVariables(s *session.CallSession, vars map[string]any) {
	if len(vars) == 0 {
		return
	}

	fillIfEmpty(&s.CustomerName, strVar(vars, "customer_name", "caller_name", "name"))
	fillIfEmpty(&s.CustomerPhone, strVar(vars, "customer_phone", "callback_number", "phone"))
	fillIfEmpty(&s.CustomerAddress, strVar(vars, "customer_address", "service_address", "address"))

	fillIfEmpty(&s.ProblemDescription, strVar(vars, "problem_description", "issue"))
	fillIfEmpty(&s.ProblemDuration, strVar(vars, "problem_duration"))
	fillIfEmpty(&s.ProblemOnset, strVar(vars, "problem_onset"))
	fillIfEmpty(&s.ProblemPattern, strVar(vars, "problem_pattern"))
	fillIfEmpty(&s.PriorFixAttempts, strVar(vars, "prior_fix_attempts"))

	fillIfEmpty(&s.EquipmentType, strVar(vars, "equipment_type"))
	fillIfEmpty(&s.EquipmentBrand, strVar(vars, "equipment_brand"))
	fillIfEmpty(&s.EquipmentLocation, strVar(vars, "equipment_location"))
	fillIfEmpty(&s.EquipmentAge, strVar(vars, "equipment_age"))

	fillIfEmpty(&s.LastAgentState, strVar(vars, "agent_state", "current_state"))

	if boolVar(vars, "safety_emergency", "is_emergency") {
		s.SafetyEmergency = true
	}
	if boolVar(vars, "booking_confirmed") {
		s.BookingAttempted = true
		s.BookingConfirmed = true
		fillIfEmpty(&s.BookingID, strVar(vars, "booking_id"))
	}
	if s.Outcome == session.OutcomeUnset {
		if o, ok := session.ParseOutcome(strVar(vars, "call_outcome", "outcome")); ok {
			s.Outcome = o
		}
	}
	raiseUrgency(s, strVar(vars, "urgency", "urgency_level"))
}

// applyCallAnalysis folds the structured analysis model output into empty
// fields, including any recognized custom analysis keys.
func applyCallAnalysis(s *session.CallSession, ca *CallAnalysis) {
	if ca == nil {
		return
	}

	custom := ca.CustomAnalysisData
	fillIfEmpty(&s.CustomerName, strVar(custom, "customer_name", "caller_name"))
	fillIfEmpty(&s.CustomerAddress, strVar(custom, "customer_address", "address"))
	fillIfEmpty(&s.ProblemDescription, strVar(custom, "problem_description", "issue_summary"))
	fillIfEmpty(&s.EquipmentType, strVar(custom, "equipment_type"))
	fillIfEmpty(&s.EquipmentAge, strVar(custom, "equipment_age"))

	if boolVar(custom, "safety_emergency") {
		s.SafetyEmergency = true
	}
	if s.Outcome == session.OutcomeUnset {
		if o, ok := session.ParseOutcome(strVar(custom, "call_outcome", "outcome")); ok {
			s.Outcome = o
		}
	}
	raiseUrgency(s, strVar(custom, "urgency", "urgency_level"))
}

// applyTranscript mines the raw transcript for fields no higher source
// provided.
func applyTranscript(s *session.CallSession, transcript string) {
	if transcript == "" {
		return
	}

	if session.StringValue(s.CustomerName) == "" {
		fillIfEmpty(&s.CustomerName, ExtractCallerName(transcript))
	}
	if session.StringValue(s.CustomerAddress) == "" {
		fillIfEmpty(&s.CustomerAddress, ExtractAddress(transcript))
	}
	if ContainsSafetyHazard(transcript) {
		s.SafetyEmergency = true
	}
}

// recoverBooking scans tool invocations embedded in the transcript for a
// successful booking result, catching calls where the live variables were
// never populated.
func recoverBooking(s *session.CallSession, entries []Utterance) {
	if s.BookingConfirmed {
		return
	}
	bookingID, scheduled, ok := BookingFromToolCalls(entries)
	if !ok {
		return
	}
	s.BookingAttempted = true
	s.BookingConfirmed = true
	fillIfEmpty(&s.BookingID, bookingID)
	if s.ScheduledTime == nil && scheduled != "" {
		if t, err := time.Parse(time.RFC3339, scheduled); err == nil {
			s.ScheduledTime = &t
		}
	}
}

func applyTimestamps(s *session.CallSession, ev Analysis) {
	if s.StartedAt == nil && ev.StartTimestampMS > 0 {
		t := time.UnixMilli(ev.StartTimestampMS).UTC()
		s.StartedAt = &t
	}
	if s.EndedAt == nil && ev.EndTimestampMS > 0 {
		t := time.UnixMilli(ev.EndTimestampMS).UTC()
		s.EndedAt = &t
	}
}

// applyDisconnectDefaults fills the outcome for calls that ended without
// an explicit one, and detects dead ends: an agent-side disconnect from a
// mid-funnel state without a confirmed booking raises urgency one tier and
// marks the call for a callback. The raise happens only while the outcome
// is still unset, so a redelivered analysis event does not ratchet urgency
// a tier per delivery.
func applyDisconnectDefaults(s *session.CallSession, ev Analysis) {
	if s.SafetyEmergency {
		s.Urgency = session.UrgencyEmergency
		if s.Outcome == session.OutcomeUnset {
			s.Outcome = session.OutcomeSafetyEmergency
		}
	}

	deadEnd := isAgentDisconnect(ev.DisconnectionReason) &&
		!s.BookingConfirmed &&
		midFunnelStates[session.StringValue(s.LastAgentState)]
	if deadEnd && s.Outcome == session.OutcomeUnset {
		s.Urgency = s.Urgency.Raise()
		s.Outcome = session.OutcomeCallbackRequested
	}

	if s.Outcome == session.OutcomeUnset && isAgentDisconnect(ev.DisconnectionReason) {
		if s.BookingConfirmed {
			s.Outcome = session.OutcomeCompleted
		} else {
			s.Outcome = session.OutcomeCallbackRequested
		}
	}
	if s.Outcome == session.OutcomeUnset && isUserHangup(ev.DisconnectionReason) {
		if s.BookingConfirmed {
			s.Outcome = session.OutcomeCompleted
		} else {
			s.Outcome = session.OutcomeHangUp
		}
	}
}

func isAgentDisconnect(reason string) bool {
	r := strings.ToLower(reason)
	return strings.Contains(r, "agent_hangup") || strings.Contains(r, "call_transfer") ||
		strings.Contains(r, "machine_detected") || r == "hangup"
}

func isUserHangup(reason string) bool {
	return strings.Contains(strings.ToLower(reason), "user_hangup")
}

func summaryOf(ca *CallAnalysis) string {
	if ca == nil {
		return ""
	}
	return ca.CallSummary
}

func sentimentOf(ca *CallAnalysis) string {
	if ca == nil {
		return ""
	}
	return ca.UserSentiment
}

// raiseUrgency applies an incoming urgency only when it ranks above the
// current one. Reconciliation never lowers urgency.
func raiseUrgency(s *session.CallSession, raw string) {
	incoming := session.Urgency(strings.ToLower(raw))
	rank := map[session.Urgency]int{
		session.UrgencyLow:       0,
		session.UrgencyMedium:    1,
		session.UrgencyHigh:      2,
		session.UrgencyEmergency: 3,
	}
	in, ok := rank[incoming]
	if !ok {
		return
	}
	if cur, ok := rank[s.Urgency]; !ok || in > cur {
		s.Urgency = incoming
	}
}

// fillIfEmpty sets a nullable field only when it is currently empty and
// the incoming value is not.
func fillIfEmpty(dst **string, value string) {
	if value == "" || session.StringValue(*dst) != "" {
		return
	}
	v := value
	*dst = &v
}

// strVar returns the first non-empty string value among keys.
func strVar(vars map[string]any, keys ...string) string {
	for _, k := range keys {
		if raw, ok := vars[k]; ok {
			if v, ok := raw.(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// boolVar interprets truthy variable values; the voice platform delivers
// booleans both natively and as strings.
func boolVar(vars map[string]any, keys ...string) bool {
	for _, k := range keys {
		raw, ok := vars[k]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case bool:
			if v {
				return true
			}
		case string:
			lowered := strings.ToLower(strings.TrimSpace(v))
			if lowered == "true" || lowered == "yes" || lowered == "1" {
				return true
			}
		}
	}
	return false
}
