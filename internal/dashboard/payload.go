package dashboard

import (
	"time"

	"receptionist_backend/internal/classify"
	"receptionist_backend/internal/session"
)

// JobPayload is the job/lead projection sent to the dashboard. Keyed by
// call id; the receiver upserts, so resends are safe.
type JobPayload struct {
	CallID          string   `json:"call_id"`
	CustomerName    string   `json:"customer_name,omitempty"`
	CustomerPhone   string   `json:"customer_phone,omitempty"`
	CustomerAddress string   `json:"customer_address,omitempty"`
	Problem         string   `json:"problem,omitempty"`
	EquipmentType   string   `json:"equipment_type,omitempty"`
	EquipmentBrand  string   `json:"equipment_brand,omitempty"`
	EquipmentAge    string   `json:"equipment_age,omitempty"`
	CallType        string   `json:"call_type"`
	WorkType        string   `json:"work_type"`
	CallerType      string   `json:"caller_type"`
	Intent          string   `json:"intent"`
	Outcome         string   `json:"outcome,omitempty"`
	Urgency         string   `json:"urgency"`
	SafetyEmergency bool     `json:"safety_emergency"`
	PriorityColor   string   `json:"priority_color"`
	PriorityReason  string   `json:"priority_reason,omitempty"`
	PrioritySignals []string `json:"priority_signals,omitempty"`
	RevenueTier     string   `json:"revenue_tier"`
	RevenueRange    string   `json:"revenue_range,omitempty"`
	RevenueSignals  []string `json:"revenue_signals,omitempty"`
	Confidence      string   `json:"revenue_confidence,omitempty"`
	BookingID       string   `json:"booking_id,omitempty"`
	ScheduledTime   string   `json:"scheduled_time,omitempty"`

	Tags map[string][]string `json:"tags,omitempty"`
}

// CallHistoryPayload is the call-log projection.
type CallHistoryPayload struct {
	CallID              string `json:"call_id"`
	Direction           string `json:"direction,omitempty"`
	FromNumber          string `json:"from_number,omitempty"`
	ToNumber            string `json:"to_number,omitempty"`
	CustomerName        string `json:"customer_name,omitempty"`
	Outcome             string `json:"outcome,omitempty"`
	Summary             string `json:"summary,omitempty"`
	Sentiment           string `json:"sentiment,omitempty"`
	DisconnectionReason string `json:"disconnection_reason,omitempty"`
	DurationSeconds     int    `json:"duration_seconds,omitempty"`
	StartedAt           string `json:"started_at,omitempty"`
	EndedAt             string `json:"ended_at,omitempty"`
}

// AlertPayload is the urgent-review projection. Sent only for calls that
// need a human now: safety emergencies and callback-risk calls.
type AlertPayload struct {
	CallID        string `json:"call_id"`
	AlertType     string `json:"alert_type"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Address       string `json:"address,omitempty"`
	Problem       string `json:"problem,omitempty"`
	Urgency       string `json:"urgency"`
	Reason        string `json:"reason,omitempty"`
}

// Alert types.
const (
	AlertSafetyEmergency = "safety_emergency"
	AlertCallbackRisk    = "callback_risk"
)

// BuildJob projects a classified session into the job payload.
func BuildJob(s *session.CallSession, c classify.Classification) JobPayload {
	return JobPayload{
		CallID:          s.CallID,
		CustomerName:    session.StringValue(s.CustomerName),
		CustomerPhone:   coalesce(session.StringValue(s.CustomerPhone), session.StringValue(s.FromNumber)),
		CustomerAddress: session.StringValue(s.CustomerAddress),
		Problem:         session.StringValue(s.ProblemDescription),
		EquipmentType:   session.StringValue(s.EquipmentType),
		EquipmentBrand:  session.StringValue(s.EquipmentBrand),
		EquipmentAge:    session.StringValue(s.EquipmentAge),
		CallType:        c.Derived.CallType,
		WorkType:        c.Derived.WorkType,
		CallerType:      c.Derived.CallerType,
		Intent:          c.Derived.Intent,
		Outcome:         string(s.Outcome),
		Urgency:         string(s.Urgency),
		SafetyEmergency: s.SafetyEmergency,
		PriorityColor:   c.Priority.Color,
		PriorityReason:  c.Priority.Reason,
		PrioritySignals: c.Priority.Signals,
		RevenueTier:     c.Revenue.TierName,
		RevenueRange:    c.Revenue.Range,
		RevenueSignals:  c.Revenue.Signals,
		Confidence:      c.Revenue.Confidence,
		BookingID:       session.StringValue(s.BookingID),
		ScheduledTime:   formatTime(s.ScheduledTime),
		Tags:            c.Tags,
	}
}

// BuildCallHistory projects a session into the call-log payload.
func BuildCallHistory(s *session.CallSession) CallHistoryPayload {
	return CallHistoryPayload{
		CallID:              s.CallID,
		Direction:           s.Direction,
		FromNumber:          session.StringValue(s.FromNumber),
		ToNumber:            session.StringValue(s.ToNumber),
		CustomerName:        session.StringValue(s.CustomerName),
		Outcome:             string(s.Outcome),
		Summary:             session.StringValue(s.CallSummary),
		Sentiment:           session.StringValue(s.UserSentiment),
		DisconnectionReason: session.StringValue(s.DisconnectionReason),
		DurationSeconds:     durationSeconds(s.StartedAt, s.EndedAt),
		StartedAt:           formatTime(s.StartedAt),
		EndedAt:             formatTime(s.EndedAt),
	}
}

// BuildAlert projects a session into an alert payload, or reports that no
// alert is warranted.
func BuildAlert(s *session.CallSession, c classify.Classification) (AlertPayload, bool) {
	var alertType string
	switch {
	case s.SafetyEmergency:
		alertType = AlertSafetyEmergency
	case c.Priority.Color == classify.PriorityCallbackRisk:
		alertType = AlertCallbackRisk
	default:
		return AlertPayload{}, false
	}

	return AlertPayload{
		CallID:        s.CallID,
		AlertType:     alertType,
		CustomerName:  session.StringValue(s.CustomerName),
		CustomerPhone: coalesce(session.StringValue(s.CustomerPhone), session.StringValue(s.FromNumber)),
		Address:       session.StringValue(s.CustomerAddress),
		Problem:       session.StringValue(s.ProblemDescription),
		Urgency:       string(s.Urgency),
		Reason:        c.Priority.Reason,
	}, true
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func durationSeconds(start, end *time.Time) int {
	if start == nil || end == nil {
		return 0
	}
	d := end.Sub(*start)
	if d < 0 {
		return 0
	}
	return int(d.Seconds())
}
