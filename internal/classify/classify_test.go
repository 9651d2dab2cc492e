package classify

import (
	"testing"
	"time"
)

func TestTaxonomyLabelCount(t *testing.T) {
	if got := LabelCount(); got != 117 {
		t.Fatalf("expected 117 labels in the taxonomy table, got %d", got)
	}
}

func TestTagsGasLeak(t *testing.T) {
	in := Input{
		ProblemText: "I smell gas near the furnace and it's getting worse",
		Timestamp:   time.Date(2026, 7, 14, 10, 30, 0, 0, time.UTC),
	}
	tags := Tags(in)

	if !tags.Has(CategoryHazard, "gas_leak") {
		t.Errorf("expected hazard/gas_leak, got %v", tags[CategoryHazard])
	}
	if !tags.Has(CategoryServiceType, "furnace_repair") {
		t.Errorf("expected service_type/furnace_repair, got %v", tags[CategoryServiceType])
	}
	if !tags.Has(CategoryUrgency, "worsening_symptom") {
		t.Errorf("expected urgency/worsening_symptom, got %v", tags[CategoryUrgency])
	}
}

func TestTagsNewCustomerFallback(t *testing.T) {
	tags := Tags(Input{ProblemText: "my air conditioner stopped working"})
	if !tags.Has(CategoryCallerRelationship, "new_customer") {
		t.Fatalf("expected new_customer fallback, got %v", tags[CategoryCallerRelationship])
	}

	tags = Tags(Input{ProblemText: "you guys installed my air conditioner last year"})
	if tags.Has(CategoryCallerRelationship, "new_customer") {
		t.Fatalf("new_customer must not fire alongside relationship evidence: %v", tags[CategoryCallerRelationship])
	}
}

func TestTagsNoMatchesOnEmptyInput(t *testing.T) {
	tags := Tags(Input{})
	if n := tags.Count(); n != 0 {
		t.Fatalf("empty input should yield no tags, got %d: %v", n, tags)
	}
}

func TestTagsTimeBased(t *testing.T) {
	saturday := time.Date(2026, 8, 29, 23, 15, 0, 0, time.UTC)
	tags := Tags(Input{ProblemText: "no heat", Timestamp: saturday})

	if !tags.Has(CategoryUrgency, "after_hours_call") {
		t.Errorf("expected after_hours_call on a Saturday night")
	}
	if !tags.Has(CategorySituationalContext, "weekend_call") {
		t.Errorf("expected weekend_call on a Saturday")
	}
	if !tags.Has(CategorySituationalContext, "night_call") {
		t.Errorf("expected night_call at 23:15")
	}
}

func TestParseEquipmentAge(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want int
		ok   bool
	}{
		{"years old phrase", "about 18 years old", 18, true},
		{"bare number", "12", 12, true},
		{"installed year", "installed in 2009", 17, true},
		{"abbreviated", "20 yrs", 20, true},
		{"implausible", "75 years old", 0, false},
		{"empty", "", 0, false},
		{"garbage", "pretty old I think", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseEquipmentAge(tt.raw, now)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("parseEquipmentAge(%q) = (%d, %v), want (%d, %v)", tt.raw, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRevenueTiers(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		wantTier RevenueTier
	}{
		{
			"obsolete refrigerant forces replacement",
			Input{ProblemText: "the tech said it still uses r-22"},
			TierReplacement,
		},
		{
			"old equipment forces replacement",
			Input{ProblemText: "it just stopped", EquipmentAge: "17 years old"},
			TierReplacement,
		},
		{
			"major component",
			Input{ProblemText: "they told me the compressor is shot"},
			TierMajorRepair,
		},
		{
			"standard component",
			Input{ProblemText: "probably just needs a new capacitor"},
			TierStandardRepair,
		},
		{
			"maintenance only",
			Input{ProblemText: "just want a seasonal check before summer"},
			TierMinor,
		},
		{
			"no signals",
			Input{ProblemText: "it's making a weird noise sometimes"},
			TierDiagnosticUnknown,
		},
		{
			"higher group wins over lower",
			Input{ProblemText: "capacitor was replaced but the compressor died, time for a new system"},
			TierReplacement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Revenue(tt.in)
			if got.Tier != tt.wantTier {
				t.Fatalf("tier = %s, want %s (signals %v)", got.TierName, tt.wantTier, got.Signals)
			}
			if got.Range == "" {
				t.Errorf("every tier must carry a range")
			}
		})
	}
}

func TestRevenueConfidence(t *testing.T) {
	// Two independent signals: high.
	got := Revenue(Input{ProblemText: "compressor is gone, want a quote on a new system"})
	if got.Confidence != ConfidenceHigh {
		t.Errorf("two signals should be high confidence, got %s (signals %v)", got.Confidence, got.Signals)
	}

	// One signal plus equipment facts: medium.
	got = Revenue(Input{ProblemText: "the compressor is making noise", EquipmentType: "central AC", EquipmentBrand: "Trane"})
	if got.Confidence != ConfidenceMedium {
		t.Errorf("one signal with equipment context should be medium, got %s", got.Confidence)
	}

	// Nothing: low.
	got = Revenue(Input{ProblemText: "not sure what's wrong"})
	if got.Confidence != ConfidenceLow {
		t.Errorf("no signals should be low confidence, got %s", got.Confidence)
	}
}

func TestPriorityPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		in        Input
		wantColor string
	}{
		{
			"callback risk beats high value",
			Input{ProblemText: "this is the second time calling about replacing the whole system"},
			PriorityCallbackRisk,
		},
		{
			"negative hangup without booking",
			Input{Sentiment: "Negative", DisconnectReason: "user_hangup"},
			PriorityCallbackRisk,
		},
		{
			"negative hangup with booking stays standard",
			Input{Sentiment: "Negative", DisconnectReason: "user_hangup", BookingConfirmed: true},
			PriorityStandard,
		},
		{
			"single spam keyword is not enough",
			Input{ProblemText: "I also do seo on the side but my furnace broke"},
			PriorityStandard,
		},
		{
			"two spam keywords park the call",
			Input{ProblemText: "we improve your google ranking and social media marketing"},
			PriorityLowValue,
		},
		{
			"callback risk beats spam pattern",
			Input{ProblemText: "no one showed last time, stop the press 1 menus and marketing services pitches"},
			PriorityCallbackRisk,
		},
		{
			"safety emergency is never parked as spam",
			Input{ProblemText: "gas leak, press 1 for our marketing services", SafetyEmergency: true},
			PriorityHighValue,
		},
		{
			"commercial keyword",
			Input{ProblemText: "our restaurant cooler is acting up"},
			PriorityHighValue,
		},
		{
			"plain repair",
			Input{ProblemText: "dripping faucet in the hall bathroom"},
			PriorityStandard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Priority(tt.in, Revenue(tt.in))
			if got.Color != tt.wantColor {
				t.Fatalf("color = %s (%s), want %s", got.Color, got.Reason, tt.wantColor)
			}
		})
	}
}

func TestPrioritySignalsListMatchedKeywords(t *testing.T) {
	in := Input{ProblemText: "we improve your google ranking and social media marketing"}
	got := Priority(in, Revenue(in))

	if got.Color != PriorityLowValue {
		t.Fatalf("color = %s (%s), want low_value", got.Color, got.Reason)
	}
	if len(got.Signals) != 2 {
		t.Fatalf("signals = %v, want both matched solicitation keywords", got.Signals)
	}
	if got.Signals[0] != "google ranking" || got.Signals[1] != "social media marketing" {
		t.Errorf("signals = %v, want [google ranking social media marketing]", got.Signals)
	}
}

func TestPriorityHighValueFromRevenueTier(t *testing.T) {
	in := Input{ProblemText: "heat exchanger is cracked"}
	got := Priority(in, Revenue(in))
	if got.Color != PriorityHighValue {
		t.Fatalf("major repair tier should color high_value, got %s (%s)", got.Color, got.Reason)
	}
}

func TestDeriveFallbacksAreTotal(t *testing.T) {
	d := Derive(Input{}, TaxonomyTags{}, RevenueEstimate{Tier: TierDiagnosticUnknown})

	if d.CallType != CallTypeOther {
		t.Errorf("call type fallback = %s, want %s", d.CallType, CallTypeOther)
	}
	if d.WorkType != WorkTypeUnknown {
		t.Errorf("work type fallback = %s, want %s", d.WorkType, WorkTypeUnknown)
	}
	if d.CallerType != CallerNew {
		t.Errorf("caller type fallback = %s, want %s", d.CallerType, CallerNew)
	}
	if d.Intent != IntentInformation {
		t.Errorf("intent fallback = %s, want %s", d.Intent, IntentInformation)
	}
}

func TestDeriveEmergency(t *testing.T) {
	in := Input{ProblemText: "I smell gas in the kitchen", SafetyEmergency: true}
	c := Run(in)

	if c.Derived.CallType != CallTypeEmergency {
		t.Errorf("call type = %s, want %s", c.Derived.CallType, CallTypeEmergency)
	}
	if c.Derived.Intent != IntentEmergencyHelp {
		t.Errorf("intent = %s, want %s", c.Derived.Intent, IntentEmergencyHelp)
	}
}

func TestRunDeterministic(t *testing.T) {
	in := Input{
		ProblemText:   "compressor is dead, unit is 20 years old, want a quote on a new system",
		EquipmentType: "heat pump",
		EquipmentAge:  "20 years",
		Timestamp:     time.Date(2026, 8, 15, 14, 0, 0, 0, time.UTC),
	}

	first := Run(in)
	for i := 0; i < 5; i++ {
		again := Run(in)
		if again.Revenue.TierName != first.Revenue.TierName ||
			again.Priority.Color != first.Priority.Color ||
			again.Derived != first.Derived ||
			again.Tags.Count() != first.Tags.Count() {
			t.Fatalf("classification is not deterministic: run %d differs", i)
		}
	}
}
