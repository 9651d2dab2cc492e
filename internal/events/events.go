// Package events defines the domain events of the call pipeline and
// re-exports the platform bus types so modules import one package.
package events

import (
	platform "receptionist_backend/platform/events"
)

// Re-exported platform types.
type (
	Event       = platform.Event
	BaseEvent   = platform.BaseEvent
	Handler     = platform.Handler
	HandlerFunc = platform.HandlerFunc
	Bus         = platform.Bus
	InMemoryBus = platform.InMemoryBus
)

var (
	NewBaseEvent   = platform.NewBaseEvent
	NewInMemoryBus = platform.NewInMemoryBus
)

// Event names.
const (
	CallAnalyzedName    = "call.analyzed"
	SafetyEmergencyName = "call.safety_emergency"
	SyncFailedName      = "call.sync_failed"
)

// CallAnalyzed fires after a post-call analysis event has been reconciled,
// classified, and persisted.
type CallAnalyzed struct {
	BaseEvent
	CallID        string `json:"callId"`
	Outcome       string `json:"outcome"`
	Urgency       string `json:"urgency"`
	PriorityColor string `json:"priorityColor"`
	RevenueTier   string `json:"revenueTier"`
	CallType      string `json:"callType"`
}

func (CallAnalyzed) EventName() string { return CallAnalyzedName }

// SafetyEmergency fires when a call carries the safety-emergency flag,
// either live during the call or discovered at analysis time. Subscribers
// alert the business owner out of band.
type SafetyEmergency struct {
	BaseEvent
	CallID          string `json:"callId"`
	CustomerName    string `json:"customerName,omitempty"`
	CustomerPhone   string `json:"customerPhone,omitempty"`
	CustomerAddress string `json:"customerAddress,omitempty"`
	ProblemSummary  string `json:"problemSummary,omitempty"`
}

func (SafetyEmergency) EventName() string { return SafetyEmergencyName }

// SyncFailed fires when dashboard delivery exhausted its retry budget.
// The session keeps synced=false; a subscriber enqueues a deferred resync.
type SyncFailed struct {
	BaseEvent
	CallID   string `json:"callId"`
	Endpoint string `json:"endpoint"`
	Attempts int    `json:"attempts"`
	Reason   string `json:"reason"`
}

func (SyncFailed) EventName() string { return SyncFailedName }
