// Package session provides the per-call state record and its update
// discipline. The CallSession is the only shared mutable resource in the
// system; safety relies on upsert-by-call-id semantics and idempotent
// computation, not locks.
package session

import (
	"time"
)

// Status is the explicit lifecycle state of a call session.
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusEnded      Status = "ended"
	StatusAnalyzed   Status = "analyzed"
	StatusSynced     Status = "synced"
)

var statusRank = map[Status]int{
	StatusCreated:    0,
	StatusInProgress: 1,
	StatusEnded:      2,
	StatusAnalyzed:   3,
	StatusSynced:     4,
}

// CanTransition reports whether moving from the current status to next is
// allowed. The lifecycle only moves forward; re-applying the same status is
// permitted so updates stay idempotent.
func (s Status) CanTransition(next Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// Outcome is the closed set of call outcome reasons.
type Outcome string

const (
	OutcomeUnset             Outcome = ""
	OutcomeWrongNumber       Outcome = "wrong_number"
	OutcomeCallbackRequested Outcome = "callback_requested"
	OutcomeSafetyEmergency   Outcome = "safety_emergency"
	OutcomeUrgentEscalation  Outcome = "urgent_escalation"
	OutcomeOutOfArea         Outcome = "out_of_area"
	OutcomeCompleted         Outcome = "completed"
	OutcomeHangUp            Outcome = "hang_up"
	OutcomeSalesLead         Outcome = "sales_lead"
	OutcomeCancelled         Outcome = "cancelled"
	OutcomeRescheduled       Outcome = "rescheduled"
)

var validOutcomes = map[Outcome]bool{
	OutcomeWrongNumber:       true,
	OutcomeCallbackRequested: true,
	OutcomeSafetyEmergency:   true,
	OutcomeUrgentEscalation:  true,
	OutcomeOutOfArea:         true,
	OutcomeCompleted:         true,
	OutcomeHangUp:            true,
	OutcomeSalesLead:         true,
	OutcomeCancelled:         true,
	OutcomeRescheduled:       true,
}

// ParseOutcome validates a raw outcome string against the closed set.
func ParseOutcome(raw string) (Outcome, bool) {
	o := Outcome(raw)
	return o, validOutcomes[o]
}

// Urgency is the ordered urgency tier of a call.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

var urgencyOrder = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency}

// Raise returns the next urgency tier up; the top tier stays put.
func (u Urgency) Raise() Urgency {
	for i, tier := range urgencyOrder {
		if tier == u {
			if i == len(urgencyOrder)-1 {
				return u
			}
			return urgencyOrder[i+1]
		}
	}
	// Unknown tiers raise to medium rather than guessing higher.
	return UrgencyMedium
}

// DefaultLoopThreshold is the visit count beyond which a tool handler
// should signal the agent to force a conversation transition.
const DefaultLoopThreshold = 3

// CallSession is the central per-call state record. All identity, problem,
// equipment and booking fields are nullable until populated; once a
// higher-precedence source has filled a field, lower-precedence sources
// must not overwrite it (see the reconcile package).
type CallSession struct {
	CallID     string  `json:"callId"`
	Direction  string  `json:"direction,omitempty"`
	FromNumber *string `json:"fromNumber,omitempty"`
	ToNumber   *string `json:"toNumber,omitempty"`

	// Customer identity
	CustomerName    *string `json:"customerName,omitempty"`
	CustomerPhone   *string `json:"customerPhone,omitempty"`
	CustomerAddress *string `json:"customerAddress,omitempty"`

	// Problem description
	ProblemDescription *string `json:"problemDescription,omitempty"`
	ProblemDuration    *string `json:"problemDuration,omitempty"`
	ProblemOnset       *string `json:"problemOnset,omitempty"`
	ProblemPattern     *string `json:"problemPattern,omitempty"`
	PriorFixAttempts   *string `json:"priorFixAttempts,omitempty"`

	// Equipment
	EquipmentType     *string `json:"equipmentType,omitempty"`
	EquipmentBrand    *string `json:"equipmentBrand,omitempty"`
	EquipmentLocation *string `json:"equipmentLocation,omitempty"`
	EquipmentAge      *string `json:"equipmentAge,omitempty"`

	// Booking
	BookingAttempted bool       `json:"bookingAttempted"`
	BookingConfirmed bool       `json:"bookingConfirmed"`
	BookingID        *string    `json:"bookingId,omitempty"`
	ScheduledTime    *time.Time `json:"scheduledTime,omitempty"`

	// Outcome and safety
	Outcome         Outcome `json:"outcome,omitempty"`
	SafetyEmergency bool    `json:"safetyEmergency"`
	Urgency         Urgency `json:"urgency,omitempty"`

	// Post-call analysis artifacts
	CallSummary         *string `json:"callSummary,omitempty"`
	UserSentiment       *string `json:"userSentiment,omitempty"`
	DisconnectionReason *string `json:"disconnectionReason,omitempty"`
	Transcript          *string `json:"transcript,omitempty"`

	// Loop guard: visits per operation name.
	VisitCounts map[string]int `json:"visitCounts,omitempty"`

	// LastAgentState is the agent's last reported conversation state marker.
	LastAgentState *string `json:"lastAgentState,omitempty"`

	Status    Status     `json:"status"`
	Synced    bool       `json:"synced"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewCallSession creates a fresh session for an unseen call identifier.
func NewCallSession(callID string) *CallSession {
	now := time.Now().UTC()
	return &CallSession{
		CallID:      callID,
		Urgency:     UrgencyLow,
		Status:      StatusCreated,
		VisitCounts: map[string]int{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RecordVisit increments the loop-guard counter for an operation.
func (s *CallSession) RecordVisit(operation string) {
	if s.VisitCounts == nil {
		s.VisitCounts = map[string]int{}
	}
	s.VisitCounts[operation]++
}

// IsLooping reports whether an operation has been visited more than
// threshold times. Handlers use this to attach a force-transition flag to
// their response so the calling agent can break the cycle.
func (s *CallSession) IsLooping(operation string, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultLoopThreshold
	}
	return s.VisitCounts[operation] > threshold
}

// AdvanceStatus moves the session forward if the transition is legal.
// Illegal (backward) transitions are ignored rather than failed: a late
// tool-call webhook for an already-analyzed call must not regress state.
func (s *CallSession) AdvanceStatus(next Status) {
	if s.Status.CanTransition(next) {
		s.Status = next
	}
}

// Touch refreshes the update timestamp before an upsert.
func (s *CallSession) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// SetString fills a nullable field only when the incoming value is non-empty.
func SetString(dst **string, value string) {
	if value == "" {
		return
	}
	v := value
	*dst = &v
}

// StringValue unwraps a nullable field with an empty-string default.
func StringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
