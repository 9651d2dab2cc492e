package reconcile

import (
	"testing"
	"time"

	"receptionist_backend/internal/session"
)

func strPtr(s string) *string { return &s }

func TestPrecedenceStoredBeatsLowerSources(t *testing.T) {
	stored := session.NewCallSession("call_1")
	stored.CustomerName = strPtr("Maria Lopez")
	stored.ProblemDescription = strPtr("AC blowing warm air")

	ev := Analysis{
		CallID: "call_1",
		DynamicVariables: map[string]any{
			"customer_name":       "M. Lopez",
			"problem_description": "cooling issue",
		},
		CallAnalysis: &CallAnalysis{
			CustomAnalysisData: map[string]any{"customer_name": "Maria L"},
		},
		Transcript: "User: my name is Mary Lo",
	}

	got := Reconcile(stored, ev)

	if session.StringValue(got.CustomerName) != "Maria Lopez" {
		t.Errorf("live-collected name must win, got %q", session.StringValue(got.CustomerName))
	}
	if session.StringValue(got.ProblemDescription) != "AC blowing warm air" {
		t.Errorf("live-collected problem must win, got %q", session.StringValue(got.ProblemDescription))
	}
}

func TestPrecedenceDynamicVariablesBeatTranscript(t *testing.T) {
	ev := Analysis{
		CallID:           "call_2",
		DynamicVariables: map[string]any{"customer_name": "Dan Brewer"},
		Transcript:       "User: my name is Someone Else",
	}

	got := Reconcile(nil, ev)
	if session.StringValue(got.CustomerName) != "Dan Brewer" {
		t.Fatalf("dynamic variable must beat transcript mining, got %q", session.StringValue(got.CustomerName))
	}
}

func TestNeverDowngradePopulatedField(t *testing.T) {
	stored := session.NewCallSession("call_3")
	stored.CustomerAddress = strPtr("14 Oak Street")
	stored.SafetyEmergency = true

	got := Reconcile(stored, Analysis{CallID: "call_3"})

	if session.StringValue(got.CustomerAddress) != "14 Oak Street" {
		t.Errorf("empty event must not clear address, got %q", session.StringValue(got.CustomerAddress))
	}
	if !got.SafetyEmergency {
		t.Errorf("safety flag must never be lowered")
	}
}

func TestTranscriptMiningFillsGaps(t *testing.T) {
	ev := Analysis{
		CallID: "call_4",
		Transcript: "Agent: Hi, this is Riley with Comfort Air.\n" +
			"User: Hey, my name is John Smith, I'm at 482 Maplewood Drive, Austin 78745 and I smell gas in the basement.",
	}

	got := Reconcile(nil, ev)

	if session.StringValue(got.CustomerName) != "John Smith" {
		t.Errorf("name = %q, want John Smith", session.StringValue(got.CustomerName))
	}
	if addr := session.StringValue(got.CustomerAddress); addr == "" {
		t.Errorf("address should be mined from transcript")
	}
	if !got.SafetyEmergency {
		t.Errorf("safety keywords in transcript must set the emergency flag")
	}
	if got.Urgency != session.UrgencyEmergency {
		t.Errorf("urgency = %s, want emergency", got.Urgency)
	}
	if got.Outcome != session.OutcomeSafetyEmergency {
		t.Errorf("outcome = %s, want safety_emergency", got.Outcome)
	}
}

func TestAgentLinesExcludedFromNameMining(t *testing.T) {
	ev := Analysis{
		CallID:     "call_5",
		Transcript: "Agent: Hello, this is Riley, how can I help?\nUser: just checking your hours",
	}

	got := Reconcile(nil, ev)
	if name := session.StringValue(got.CustomerName); name != "" {
		t.Fatalf("agent self-introduction leaked into customer name: %q", name)
	}
}

func TestBookingRecoveryFromToolCalls(t *testing.T) {
	ev := Analysis{
		CallID: "call_6",
		TranscriptWithTools: []Utterance{
			{Role: "agent", Content: "Let me book that for you."},
			{Role: "tool_call_invocation", Name: "book-appointment", ToolCallID: "tc_1", Arguments: `{"slot":"tomorrow 9am"}`},
			{Role: "tool_call_result", ToolCallID: "tc_1", Content: `{"success": true, "booking_id": "bk_789", "scheduled_time": "2026-09-01T09:00:00Z"}`},
		},
		DisconnectionReason: "agent_hangup",
	}

	got := Reconcile(nil, ev)

	if !got.BookingConfirmed {
		t.Fatalf("successful tool result must confirm the booking")
	}
	if session.StringValue(got.BookingID) != "bk_789" {
		t.Errorf("booking id = %q, want bk_789", session.StringValue(got.BookingID))
	}
	if got.ScheduledTime == nil || !got.ScheduledTime.Equal(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("scheduled time not recovered: %v", got.ScheduledTime)
	}
	if got.Outcome != session.OutcomeCompleted {
		t.Errorf("booked call ended by agent should default to completed, got %s", got.Outcome)
	}
}

func TestBookingRecoveryIgnoresFailedResult(t *testing.T) {
	ev := Analysis{
		CallID: "call_7",
		TranscriptWithTools: []Utterance{
			{Role: "tool_call_invocation", Name: "book-appointment", ToolCallID: "tc_1"},
			{Role: "tool_call_result", ToolCallID: "tc_1", Content: `{"success": false, "message": "no slots"}`},
		},
	}

	if got := Reconcile(nil, ev); got.BookingConfirmed {
		t.Fatalf("failed booking result must not confirm a booking")
	}
}

func TestDisconnectDefaults(t *testing.T) {
	tests := []struct {
		name        string
		reason      string
		booked      bool
		wantOutcome session.Outcome
	}{
		{"agent hangup with booking", "agent_hangup", true, session.OutcomeCompleted},
		{"agent hangup without booking", "agent_hangup", false, session.OutcomeCallbackRequested},
		{"user hangup without booking", "user_hangup", false, session.OutcomeHangUp},
		{"user hangup with booking", "user_hangup", true, session.OutcomeCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := session.NewCallSession("call_8")
			stored.BookingConfirmed = tt.booked

			got := Reconcile(stored, Analysis{CallID: "call_8", DisconnectionReason: tt.reason})
			if got.Outcome != tt.wantOutcome {
				t.Fatalf("outcome = %s, want %s", got.Outcome, tt.wantOutcome)
			}
		})
	}
}

func TestDeadEndDetection(t *testing.T) {
	stored := session.NewCallSession("call_9")
	stored.LastAgentState = strPtr("booking")
	stored.Urgency = session.UrgencyLow

	got := Reconcile(stored, Analysis{CallID: "call_9", DisconnectionReason: "agent_hangup"})

	if got.Outcome != session.OutcomeCallbackRequested {
		t.Errorf("dead-end outcome = %s, want callback_requested", got.Outcome)
	}
	if got.Urgency != session.UrgencyMedium {
		t.Errorf("dead-end urgency = %s, want medium (raised one tier)", got.Urgency)
	}
}

func TestDeadEndNotTriggeredWhenBooked(t *testing.T) {
	stored := session.NewCallSession("call_10")
	stored.LastAgentState = strPtr("booking")
	stored.BookingConfirmed = true
	stored.Urgency = session.UrgencyLow

	got := Reconcile(stored, Analysis{CallID: "call_10", DisconnectionReason: "agent_hangup"})

	if got.Urgency != session.UrgencyLow {
		t.Errorf("booked call should not raise urgency, got %s", got.Urgency)
	}
	if got.Outcome != session.OutcomeCompleted {
		t.Errorf("outcome = %s, want completed", got.Outcome)
	}
}

func TestDeadEndRedeliveryDoesNotRatchetUrgency(t *testing.T) {
	stored := session.NewCallSession("call_9b")
	stored.LastAgentState = strPtr("booking")
	stored.Urgency = session.UrgencyLow

	ev := Analysis{CallID: "call_9b", DisconnectionReason: "agent_hangup"}

	first := Reconcile(stored, ev)
	if first.Urgency != session.UrgencyMedium {
		t.Fatalf("first delivery urgency = %s, want medium", first.Urgency)
	}

	second := Reconcile(first, ev)
	third := Reconcile(second, ev)
	if second.Urgency != session.UrgencyMedium || third.Urgency != session.UrgencyMedium {
		t.Fatalf("redelivery changed urgency: %s then %s, want medium both times",
			second.Urgency, third.Urgency)
	}
	if second.Outcome != session.OutcomeCallbackRequested {
		t.Errorf("redelivery outcome = %s, want callback_requested", second.Outcome)
	}
}

func TestUrgencyNeverLowered(t *testing.T) {
	stored := session.NewCallSession("call_11")
	stored.Urgency = session.UrgencyHigh

	got := Reconcile(stored, Analysis{
		CallID:           "call_11",
		DynamicVariables: map[string]any{"urgency": "low"},
	})

	if got.Urgency != session.UrgencyHigh {
		t.Fatalf("urgency lowered from high to %s", got.Urgency)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	ev := Analysis{
		CallID: "call_12",
		DynamicVariables: map[string]any{
			"customer_name": "Ana Ruiz",
			"urgency":       "high",
		},
		CallAnalysis:        &CallAnalysis{CallSummary: "no heat upstairs", UserSentiment: "Neutral"},
		Transcript:          "User: no heat upstairs since last night",
		DisconnectionReason: "agent_hangup",
	}

	first := Reconcile(nil, ev)
	second := Reconcile(first, ev)

	if session.StringValue(second.CustomerName) != session.StringValue(first.CustomerName) ||
		second.Urgency != first.Urgency ||
		second.Outcome != first.Outcome ||
		second.SafetyEmergency != first.SafetyEmergency {
		t.Fatalf("re-applying the same event changed the session:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"I'm at 482 Maplewood Drive", true},
		{"the house is 7 Elm St, 02134", true},
		{"somewhere on the north side", false},
		{"", false},
	}

	for _, tt := range tests {
		got := ExtractAddress(tt.in)
		if (got != "") != tt.want {
			t.Errorf("ExtractAddress(%q) = %q, want match=%v", tt.in, got, tt.want)
		}
	}
}
