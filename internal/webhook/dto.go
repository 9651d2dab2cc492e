package webhook

import (
	"receptionist_backend/internal/reconcile"
)

// CallRef identifies the voice call a tool event belongs to. Every inbound
// payload must carry the call id; the rest is best effort.
type CallRef struct {
	CallID     string `json:"call_id" validate:"required"`
	FromNumber string `json:"from_number"`
	ToNumber   string `json:"to_number"`
	Direction  string `json:"direction"`
}

// Tool-call requests. Arguments arrive as a known shape per tool and are
// validated at the boundary; unknown shapes are rejected, not coerced.

type LookupCustomerRequest struct {
	Call CallRef `json:"call" validate:"required"`
	Args struct {
		Phone string `json:"phone"`
		Name  string `json:"name"`
	} `json:"args"`
}

type CollectProblemRequest struct {
	Call CallRef `json:"call" validate:"required"`
	Args struct {
		Description      string `json:"description" validate:"required"`
		Duration         string `json:"duration"`
		Onset            string `json:"onset"`
		Pattern          string `json:"pattern"`
		PriorFixAttempts string `json:"prior_fix_attempts"`
		SafetyEmergency  bool   `json:"safety_emergency"`
		Urgency          string `json:"urgency" validate:"omitempty,oneof=low medium high emergency"`
	} `json:"args"`
}

type CollectEquipmentRequest struct {
	Call CallRef `json:"call" validate:"required"`
	Args struct {
		EquipmentType string `json:"equipment_type" validate:"required"`
		Brand         string `json:"brand"`
		Location      string `json:"location"`
		Age           string `json:"age"`
	} `json:"args"`
}

type CheckAvailabilityRequest struct {
	Call CallRef `json:"call" validate:"required"`
	Args struct {
		PreferredDay  string `json:"preferred_day"`
		PreferredTime string `json:"preferred_time"`
	} `json:"args"`
}

type BookAppointmentRequest struct {
	Call CallRef `json:"call" validate:"required"`
	Args struct {
		SlotID        string `json:"slot_id"`
		StartTime     string `json:"start_time"`
		CustomerName  string `json:"customer_name"`
		CustomerPhone string `json:"customer_phone"`
		Address       string `json:"address"`
	} `json:"args"`
}

type SendAlertRequest struct {
	Call CallRef `json:"call" validate:"required"`
	Args struct {
		Reason  string `json:"reason" validate:"required"`
		Message string `json:"message"`
	} `json:"args"`
}

type EndCallRequest struct {
	Call CallRef `json:"call" validate:"required"`
	Args struct {
		Outcome string `json:"outcome"`
		Summary string `json:"summary"`
	} `json:"args"`
}

// ToolResponse is the common response shape spoken back by the agent.
// ForceTransition tells the agent to stop re-invoking the same tool.
type ToolResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	ForceTransition bool   `json:"force_transition,omitempty"`
}

// LookupResponse extends the common shape with the found flag and the
// details the agent may confirm out loud.
type LookupResponse struct {
	Found           bool   `json:"found"`
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	CustomerName    string `json:"customer_name,omitempty"`
	CustomerAddress string `json:"customer_address,omitempty"`
	LastOutcome     string `json:"last_outcome,omitempty"`
}

// AvailabilityResponse carries offered slots back to the agent.
type AvailabilityResponse struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	Slots           []string `json:"slots,omitempty"`
	ForceTransition bool     `json:"force_transition,omitempty"`
}

// BookingResponse confirms or declines a booking attempt.
type BookingResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	BookingID       string `json:"booking_id,omitempty"`
	ScheduledTime   string `json:"scheduled_time,omitempty"`
	ForceTransition bool   `json:"force_transition,omitempty"`
}

// LifecycleEvent is the voice platform's lifecycle envelope. Only
// call_analyzed produces side effects; everything else is acknowledged.
type LifecycleEvent struct {
	Event string        `json:"event" validate:"required"`
	Call  LifecycleCall `json:"call" validate:"required"`
}

// LifecycleCall is the call body of a lifecycle event.
type LifecycleCall struct {
	CallID              string                  `json:"call_id" validate:"required"`
	Direction           string                  `json:"direction"`
	FromNumber          string                  `json:"from_number"`
	ToNumber            string                  `json:"to_number"`
	Transcript          string                  `json:"transcript"`
	TranscriptWithTools []reconcile.Utterance   `json:"transcript_with_tool_calls"`
	CallAnalysis        *reconcile.CallAnalysis `json:"call_analysis"`
	DynamicVariables    map[string]any          `json:"collected_dynamic_variables"`
	DisconnectionReason string                  `json:"disconnection_reason"`
	StartTimestamp      int64                   `json:"start_timestamp"`
	EndTimestamp        int64                   `json:"end_timestamp"`
}

// analysis converts the wire shape into the reconciler's input.
func (lc LifecycleCall) analysis() reconcile.Analysis {
	return reconcile.Analysis{
		CallID:              lc.CallID,
		Direction:           lc.Direction,
		FromNumber:          lc.FromNumber,
		ToNumber:            lc.ToNumber,
		Transcript:          lc.Transcript,
		TranscriptWithTools: lc.TranscriptWithTools,
		CallAnalysis:        lc.CallAnalysis,
		DynamicVariables:    lc.DynamicVariables,
		DisconnectionReason: lc.DisconnectionReason,
		StartTimestampMS:    lc.StartTimestamp,
		EndTimestampMS:      lc.EndTimestamp,
	}
}
