package classify

// RevenueTier orders job-value estimates from least to most valuable.
// Comparisons use the integer ordering, so a later tier never loses to an
// earlier one during reconciliation.
type RevenueTier int

const (
	TierDiagnosticUnknown RevenueTier = iota
	TierMinor
	TierStandardRepair
	TierMajorRepair
	TierReplacement
)

func (t RevenueTier) String() string {
	switch t {
	case TierMinor:
		return "minor"
	case TierStandardRepair:
		return "standard_repair"
	case TierMajorRepair:
		return "major_repair"
	case TierReplacement:
		return "replacement"
	default:
		return "diagnostic_unknown"
	}
}

// Confidence levels for a revenue estimate.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// RevenueEstimate is the output of the revenue classifier.
type RevenueEstimate struct {
	Tier       RevenueTier `json:"-"`
	TierName   string      `json:"tier"`
	Range      string      `json:"range"`
	Confidence string      `json:"confidence"`
	Signals    []string    `json:"signals,omitempty"`
}

// Dollar ranges shown on the dashboard per tier. Rough planning figures,
// not quotes.
var tierRanges = map[RevenueTier]string{
	TierDiagnosticUnknown: "$89-$250",
	TierMinor:             "$150-$450",
	TierStandardRepair:    "$350-$1,200",
	TierMajorRepair:       "$1,200-$4,500",
	TierReplacement:       "$6,000-$18,000",
}

// Signal groups evaluated highest tier first. The first group with a hit
// fixes the tier; hits in the same group and below still count as signals
// for confidence.
var (
	obsoleteRefrigerantKeywords = []string{"r-22", "r22", "freon"}

	replacementIntentKeywords = []string{
		"replace the whole", "full replacement", "whole new system", "replace the unit",
		"new system", "new unit", "time for a new", "quote on a new", "estimate for a new",
		"upgrade the system",
	}

	majorComponentKeywords = []string{
		"compressor", "heat exchanger", "evaporator coil", "condenser coil",
		"condenser fan", "blower motor", "inducer motor", "control board",
		"reversing valve", "txv", "expansion valve", "gas valve",
	}

	standardComponentKeywords = []string{
		"capacitor", "contactor", "fan motor", "igniter", "ignitor",
		"flame sensor", "pressure switch", "thermostat", "float switch",
		"condensate pump", "transformer", "relay",
	}

	maintenanceKeywords = []string{
		"tune-up", "tune up", "tuneup", "maintenance", "filter",
		"cleaning", "seasonal check", "checkup", "check-up", "inspection",
	}
)

// Revenue estimates the job-value tier from problem text, transcript, and
// equipment facts. Signal groups are checked from highest tier down; the
// first group that fires decides the tier. No signals at all yields
// diagnostic_unknown at low confidence.
func Revenue(in Input) RevenueEstimate {
	text := in.combinedText() + "\n" + in.equipmentText()

	var signals []string
	tier := TierDiagnosticUnknown

	if kw, ok := firstMatch(text, obsoleteRefrigerantKeywords); ok {
		tier = TierReplacement
		signals = append(signals, "obsolete_refrigerant:"+kw)
	}
	if age, ok := parseEquipmentAge(in.EquipmentAge, in.Timestamp); ok && age >= 15 {
		if tier < TierReplacement {
			tier = TierReplacement
		}
		signals = append(signals, "equipment_age:15+")
	}
	if kw, ok := firstMatch(text, replacementIntentKeywords); ok {
		if tier < TierReplacement {
			tier = TierReplacement
		}
		signals = append(signals, "replacement_intent:"+kw)
	}
	if kw, ok := firstMatch(text, majorComponentKeywords); ok {
		if tier < TierMajorRepair {
			tier = TierMajorRepair
		}
		signals = append(signals, "major_component:"+kw)
	}
	if kw, ok := firstMatch(text, standardComponentKeywords); ok {
		if tier < TierStandardRepair {
			tier = TierStandardRepair
		}
		signals = append(signals, "standard_component:"+kw)
	}
	if kw, ok := firstMatch(text, maintenanceKeywords); ok {
		if tier < TierMinor {
			tier = TierMinor
		}
		signals = append(signals, "maintenance:"+kw)
	}

	return RevenueEstimate{
		Tier:       tier,
		TierName:   tier.String(),
		Range:      tierRanges[tier],
		Confidence: revenueConfidence(len(signals), in.hasEquipmentContext()),
		Signals:    signals,
	}
}

// revenueConfidence grades the estimate: two or more independent signals is
// high, one signal backed by collected equipment facts is medium, anything
// less is low.
func revenueConfidence(signalCount int, hasContext bool) string {
	switch {
	case signalCount >= 2:
		return ConfidenceHigh
	case signalCount == 1 && hasContext:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
