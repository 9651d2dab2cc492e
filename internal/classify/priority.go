package classify

import "strings"

// Priority colors in precedence order. A call gets exactly one color; the
// first matching branch wins.
const (
	PriorityCallbackRisk = "callback_risk"
	PriorityLowValue     = "low_value"
	PriorityHighValue    = "high_value"
	PriorityStandard     = "standard"
)

// PriorityResult carries the assigned color, the branch that assigned it,
// and the keyword hits supporting the decision.
type PriorityResult struct {
	Color   string   `json:"color"`
	Reason  string   `json:"reason"`
	Signals []string `json:"signals,omitempty"`
}

var callbackRiskKeywords = []string{
	"call back", "called before", "calling back", "no one showed",
	"nobody showed", "still waiting", "second time calling", "third time calling",
	"never heard back", "nobody called me back", "no one called back",
	"speak to a manager", "frustrated",
}

var spamKeywords = []string{
	"seo", "google listing", "google ranking", "business loan",
	"merchant services", "credit card processing", "solar panels",
	"extended warranty", "final notice", "press 1", "press one",
	"website for your business", "lead generation service", "marketing services",
	"social media marketing",
}

var highValueKeywords = []string{
	"commercial", "restaurant", "office building", "warehouse",
	"multiple units", "several units", "all the units", "property management",
	"new system", "full replacement", "whole new system", "financing",
}

// Priority assigns the dashboard color. Branch order is fixed: a frustrated
// repeat caller outranks a big-ticket lead, and suspected spam needs at
// least two independent keyword hits before it is parked as low value.
func Priority(in Input, revenue RevenueEstimate) PriorityResult {
	text := in.combinedText()

	if hits := allMatches(text, callbackRiskKeywords); len(hits) > 0 {
		return PriorityResult{Color: PriorityCallbackRisk, Reason: "caller signal: " + hits[0], Signals: hits}
	}
	if strings.EqualFold(in.Sentiment, "negative") && isHangup(in.DisconnectReason) && !in.BookingConfirmed {
		return PriorityResult{
			Color:   PriorityCallbackRisk,
			Reason:  "negative sentiment with abandoned call",
			Signals: []string{"negative sentiment", "caller hung up unbooked"},
		}
	}

	if in.SafetyEmergency {
		return PriorityResult{Color: PriorityHighValue, Reason: "safety emergency", Signals: []string{"safety emergency flag"}}
	}

	if hits := allMatches(text, spamKeywords); len(hits) >= 2 {
		return PriorityResult{Color: PriorityLowValue, Reason: "solicitation pattern", Signals: hits}
	}

	if revenue.Tier >= TierMajorRepair {
		return PriorityResult{Color: PriorityHighValue, Reason: "revenue tier " + revenue.TierName, Signals: revenue.Signals}
	}
	if hits := allMatches(text, highValueKeywords); len(hits) > 0 {
		return PriorityResult{Color: PriorityHighValue, Reason: "opportunity signal: " + hits[0], Signals: hits}
	}

	return PriorityResult{Color: PriorityStandard, Reason: "no elevated signals"}
}

func isHangup(reason string) bool {
	r := strings.ToLower(reason)
	return strings.Contains(r, "hangup") || strings.Contains(r, "hang_up") || strings.Contains(r, "hung up")
}
