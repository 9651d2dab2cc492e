// Package classify implements the deterministic post-call classification
// engine: taxonomy tagging, revenue tiering, priority coloring, and the
// derived call/work/caller/intent fields computed from their outputs.
//
// Every classifier is a pure function of the call record and is total over
// its input domain: missing or partial data yields a conservative default,
// never an error.
package classify

import (
	"strings"
	"time"
)

// Input carries the evidence the classifiers work from. All fields are
// optional; zero values are handled.
type Input struct {
	ProblemText      string
	EquipmentType    string
	EquipmentBrand   string
	EquipmentAge     string
	TranscriptText   string
	Sentiment        string
	DisconnectReason string
	BookingConfirmed bool
	SafetyEmergency  bool
	Direction        string
	Timestamp        time.Time
}

// Classification is the combined output of all classifiers.
type Classification struct {
	Tags     TaxonomyTags    `json:"tags"`
	Revenue  RevenueEstimate `json:"revenue"`
	Priority PriorityResult  `json:"priority"`
	Derived  DerivedFields   `json:"derived"`
}

// Run executes all classifiers over the input. Deterministic, idempotent:
// the same input always yields the same classification, so results are
// re-derivable and never need to be merged across concurrent writers.
func Run(input Input) Classification {
	tags := Tags(input)
	revenue := Revenue(input)
	priority := Priority(input, revenue)
	derived := Derive(input, tags, revenue)

	return Classification{
		Tags:     tags,
		Revenue:  revenue,
		Priority: priority,
		Derived:  derived,
	}
}

// combinedText returns the lowercased concatenation of problem and
// transcript text, the haystack most detectors scan.
func (in Input) combinedText() string {
	return strings.ToLower(in.ProblemText + "\n" + in.TranscriptText)
}

// equipmentText returns the lowercased concatenation of equipment facts.
func (in Input) equipmentText() string {
	return strings.ToLower(in.EquipmentType + " " + in.EquipmentBrand + " " + in.EquipmentAge)
}

// hasEquipmentContext reports whether any structured equipment facts were
// collected; used as the contextual-data input to revenue confidence.
func (in Input) hasEquipmentContext() bool {
	return in.EquipmentType != "" || in.EquipmentBrand != "" || in.EquipmentAge != ""
}

// containsAny checks if text contains any of the keywords.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// allMatches returns every keyword found in text, in vocabulary order,
// for signal reporting.
func allMatches(text string, keywords []string) []string {
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// firstMatch returns the first keyword found in text, for signal reporting.
func firstMatch(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}
