package session

import (
	"testing"
)

func TestLoopGuardThreshold(t *testing.T) {
	s := NewCallSession("call_1")

	for visit := 1; visit <= 6; visit++ {
		s.RecordVisit("check_availability")
		got := s.IsLooping("check_availability", DefaultLoopThreshold)
		want := visit >= 4
		if got != want {
			t.Fatalf("visit %d: looping = %v, want %v", visit, got, want)
		}
	}

	if s.IsLooping("book_appointment", DefaultLoopThreshold) {
		t.Errorf("counters must be independent per operation")
	}
}

func TestLoopGuardNilCounters(t *testing.T) {
	s := &CallSession{CallID: "call_bare"}

	if s.IsLooping("lookup_customer", DefaultLoopThreshold) {
		t.Fatalf("no visits recorded, must not loop")
	}
	s.RecordVisit("lookup_customer")
	if s.VisitCounts["lookup_customer"] != 1 {
		t.Fatalf("RecordVisit must lazily allocate the counter map")
	}
}

func TestLoopGuardThresholdFallback(t *testing.T) {
	s := NewCallSession("call_2")
	for i := 0; i < 4; i++ {
		s.RecordVisit("op")
	}
	if !s.IsLooping("op", 0) {
		t.Errorf("non-positive threshold must fall back to the default")
	}
}

func TestStatusForwardOnly(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusCreated, StatusInProgress, true},
		{StatusInProgress, StatusEnded, true},
		{StatusEnded, StatusAnalyzed, true},
		{StatusAnalyzed, StatusSynced, true},
		{StatusCreated, StatusSynced, true},
		{StatusAnalyzed, StatusAnalyzed, true},
		{StatusSynced, StatusAnalyzed, false},
		{StatusAnalyzed, StatusInProgress, false},
		{StatusEnded, StatusCreated, false},
		{Status("bogus"), StatusEnded, false},
		{StatusCreated, Status("bogus"), false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAdvanceStatusIgnoresRegression(t *testing.T) {
	s := NewCallSession("call_3")
	s.AdvanceStatus(StatusAnalyzed)
	s.AdvanceStatus(StatusInProgress)
	if s.Status != StatusAnalyzed {
		t.Fatalf("late tool webhook regressed status to %s", s.Status)
	}
}

func TestParseOutcome(t *testing.T) {
	if o, ok := ParseOutcome("callback_requested"); !ok || o != OutcomeCallbackRequested {
		t.Errorf("known outcome rejected")
	}
	if _, ok := ParseOutcome("exploded"); ok {
		t.Errorf("unknown outcome accepted")
	}
	if _, ok := ParseOutcome(""); ok {
		t.Errorf("empty outcome accepted")
	}
}

func TestUrgencyRaise(t *testing.T) {
	tests := []struct {
		in, want Urgency
	}{
		{UrgencyLow, UrgencyMedium},
		{UrgencyMedium, UrgencyHigh},
		{UrgencyHigh, UrgencyEmergency},
		{UrgencyEmergency, UrgencyEmergency},
		{Urgency("weird"), UrgencyMedium},
	}
	for _, tt := range tests {
		if got := tt.in.Raise(); got != tt.want {
			t.Errorf("Raise(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSetStringKeepsEmptyOut(t *testing.T) {
	var dst *string
	SetString(&dst, "")
	if dst != nil {
		t.Fatalf("empty value must not allocate")
	}
	SetString(&dst, "filled")
	if StringValue(dst) != "filled" {
		t.Fatalf("value not set")
	}
	SetString(&dst, "overwritten")
	if StringValue(dst) != "overwritten" {
		t.Fatalf("SetString is a plain write; precedence lives in the reconciler")
	}
}
