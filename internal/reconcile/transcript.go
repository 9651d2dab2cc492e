package reconcile

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Transcript mining patterns. These run only when every higher-precedence
// source left the field empty, so recall matters more than precision.
var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmy name is ([A-Z][a-z]+(?: [A-Z][a-z]+)?)`),
		regexp.MustCompile(`(?i)\bthis is ([A-Z][a-z]+(?: [A-Z][a-z]+)?)\b`),
		regexp.MustCompile(`(?i)\bit'?s ([A-Z][a-z]+(?: [A-Z][a-z]+)?) calling\b`),
		regexp.MustCompile(`(?i)\bname'?s ([A-Z][a-z]+(?: [A-Z][a-z]+)?)\b`),
	}

	// House number, street words, a street suffix, optionally city/state
	// and a ZIP.
	addressPattern = regexp.MustCompile(`(?i)\b(\d{1,5} (?:[A-Za-z]+ ){1,4}(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Lane|Ln|Boulevard|Blvd|Court|Ct|Way|Circle|Cir|Place|Pl|Terrace|Trail|Parkway|Pkwy)\.?(?:,? [A-Za-z ]+)?(?:,? \d{5})?)\b`)

	safetyKeywords = []string{
		"gas leak", "smell gas", "smells like gas", "smelling gas",
		"carbon monoxide", "co alarm", "co detector",
		"burning smell", "electrical burning", "sparking", "sparks",
		"smoke coming", "see smoke",
		"flooding", "water everywhere",
	}

	// Names the agent uses when introducing itself; lines spoken by the
	// agent are excluded from name mining entirely.
	agentLinePrefix = regexp.MustCompile(`(?i)^\s*(agent|assistant|ai)\s*:`)

	bookingToolNames = map[string]bool{
		"book-appointment": true,
		"book_appointment": true,
		"bookappointment":  true,
	}
)

// ExtractCallerName mines a caller name from transcript text. Lines spoken
// by the agent are removed first so the agent introducing itself does not
// leak into the customer name field. Returns "" when nothing matches.
func ExtractCallerName(transcript string) string {
	var callerLines []string
	for _, line := range strings.Split(transcript, "\n") {
		if agentLinePrefix.MatchString(line) {
			continue
		}
		callerLines = append(callerLines, line)
	}
	text := strings.Join(callerLines, "\n")

	for _, p := range namePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return normalizeName(m[1])
		}
	}
	return ""
}

// normalizeName title-cases a mined name so "john smith" and "JOHN SMITH"
// store identically.
func normalizeName(raw string) string {
	words := strings.Fields(raw)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// ExtractAddress mines a US street address from transcript text. Returns
// "" when nothing matches.
func ExtractAddress(transcript string) string {
	if m := addressPattern.FindStringSubmatch(transcript); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ContainsSafetyHazard reports whether the transcript mentions any phrase
// from the fixed hazard keyword set.
func ContainsSafetyHazard(transcript string) bool {
	lowered := strings.ToLower(transcript)
	for _, kw := range safetyKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// bookingResult is the subset of a booking tool-result payload needed to
// recover a confirmation.
type bookingResult struct {
	Success       bool   `json:"success"`
	Booked        bool   `json:"booked"`
	BookingID     string `json:"booking_id"`
	AppointmentID string `json:"appointment_id"`
	ScheduledTime string `json:"scheduled_time"`
	StartTime     string `json:"start_time"`
}

// BookingFromToolCalls scans transcript tool entries for a successful
// booking result and returns its id and scheduled time. Invocation entries
// pair with result entries by tool call id; only the result payload is
// trusted, since an invocation proves nothing about success.
func BookingFromToolCalls(entries []Utterance) (bookingID, scheduledTime string, ok bool) {
	toolNameByID := map[string]string{}
	for _, e := range entries {
		if e.Role == "tool_call_invocation" {
			toolNameByID[e.ToolCallID] = strings.ToLower(e.Name)
		}
	}

	for _, e := range entries {
		if e.Role != "tool_call_result" {
			continue
		}
		name := strings.ToLower(e.Name)
		if name == "" {
			name = toolNameByID[e.ToolCallID]
		}
		if !bookingToolNames[name] {
			continue
		}

		var res bookingResult
		if err := json.Unmarshal([]byte(e.Content), &res); err != nil {
			continue
		}
		if !res.Success && !res.Booked {
			continue
		}

		id := res.BookingID
		if id == "" {
			id = res.AppointmentID
		}
		when := res.ScheduledTime
		if when == "" {
			when = res.StartTime
		}
		return id, when, true
	}
	return "", "", false
}
